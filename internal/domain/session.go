package domain

import "time"

// Session is a persisted per-user record keyed by the sender or user id.
type Session struct {
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields,omitempty"`
	ErrorCount int            `json:"errorCount"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}
