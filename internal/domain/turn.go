package domain

// TurnResult is the flattened output of one query to the conversational agent.
type TurnResult struct {
	ResponseID   string         `json:"responseId,omitempty"`
	Messages     []string       `json:"messages"`
	Intent       *Intent        `json:"intent"`
	Parameters   map[string]any `json:"parameters"`
	CurrentPage  *Page          `json:"currentPage"`
	LanguageCode string         `json:"languageCode,omitempty"`
	QueryText    string         `json:"queryText,omitempty"`
}

type Intent struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Confidence  float64 `json:"confidence"`
}

type Page struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// FirstMessage returns the first reply fragment, or "" when the agent returned none.
func (t TurnResult) FirstMessage() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0]
}
