package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"channel-relay/internal/domain"
)

const (
	DefaultSessionsCollection = "sessions"
	DefaultListLimit          = 100

	fieldErrorCount = "errorCount"
	fieldCreatedAt  = "createdAt"
	fieldUpdatedAt  = "updatedAt"
)

// Sessions stores one Firestore document per user or sender id.
type Sessions struct {
	docs       documentAPI
	collection string
}

func NewSessions(docs documentAPI, collection string) (*Sessions, error) {
	if docs == nil {
		return nil, errors.New("repository: documents api must not be nil")
	}
	if strings.TrimSpace(collection) == "" {
		collection = DefaultSessionsCollection
	}
	return &Sessions{docs: docs, collection: collection}, nil
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("repository: session id must not be empty")
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("repository: session id %q must not contain '/'", id)
	}
	return nil
}

func (s *Sessions) Exists(ctx context.Context, id string) (bool, error) {
	if err := validID(id); err != nil {
		return false, err
	}
	_, err := s.docs.Get(ctx, s.collection, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repository: session exists %s: %w", id, err)
	}
	return true, nil
}

// CreateOrUpdate merges fields into the session. createdAt is stamped only
// when the document did not exist before.
func (s *Sessions) CreateOrUpdate(ctx context.Context, id string, fields map[string]any) error {
	if err := validID(id); err != nil {
		return err
	}
	data := stripManaged(fields)
	data[fieldUpdatedAt] = serverTime{}

	create := maps.Clone(data)
	create[fieldCreatedAt] = serverTime{}
	if _, ok := create[fieldErrorCount]; !ok {
		create[fieldErrorCount] = 0
	}
	err := s.docs.Create(ctx, s.collection, id, create)
	if errors.Is(err, ErrAlreadyExists) {
		err = s.docs.Merge(ctx, s.collection, id, data)
	}
	if err != nil {
		return fmt.Errorf("repository: create or update session %s: %w", id, err)
	}
	return nil
}

// Update changes fields of an existing session and fails with ErrNotFound
// when the session is absent.
func (s *Sessions) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := validID(id); err != nil {
		return err
	}
	data := stripManaged(fields)
	data[fieldUpdatedAt] = serverTime{}
	if err := s.docs.Update(ctx, s.collection, id, data); err != nil {
		return fmt.Errorf("repository: update session %s: %w", id, err)
	}
	return nil
}

// Get returns nil without error when the session does not exist.
func (s *Sessions) Get(ctx context.Context, id string) (*domain.Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	data, err := s.docs.Get(ctx, s.collection, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get session %s: %w", id, err)
	}
	sess := toSession(id, data)
	return &sess, nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, s.collection, id); err != nil {
		return fmt.Errorf("repository: delete session %s: %w", id, err)
	}
	return nil
}

func (s *Sessions) IncrementErrorCount(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	err := s.docs.Update(ctx, s.collection, id, map[string]any{
		fieldErrorCount: increment(1),
		fieldUpdatedAt:  serverTime{},
	})
	if err != nil {
		return fmt.Errorf("repository: increment error count %s: %w", id, err)
	}
	return nil
}

func (s *Sessions) ResetErrorCount(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	err := s.docs.Update(ctx, s.collection, id, map[string]any{
		fieldErrorCount: 0,
		fieldUpdatedAt:  serverTime{},
	})
	if err != nil {
		return fmt.Errorf("repository: reset error count %s: %w", id, err)
	}
	return nil
}

// List returns up to limit sessions in store order. A non-positive limit means DefaultListLimit.
func (s *Sessions) List(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	docs, err := s.docs.List(ctx, s.collection, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: list sessions: %w", err)
	}
	out := make([]domain.Session, 0, len(docs))
	for _, d := range docs {
		out = append(out, toSession(d.ID, d.Data))
	}
	return out, nil
}

func stripManaged(fields map[string]any) map[string]any {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if k == fieldCreatedAt || k == fieldUpdatedAt {
			continue
		}
		data[k] = v
	}
	return data
}

func toSession(id string, data map[string]any) domain.Session {
	sess := domain.Session{ID: id, Fields: map[string]any{}}
	for k, v := range data {
		switch k {
		case fieldErrorCount:
			sess.ErrorCount = toInt(v)
		case fieldCreatedAt:
			sess.CreatedAt, _ = v.(time.Time)
		case fieldUpdatedAt:
			sess.UpdatedAt, _ = v.(time.Time)
		default:
			sess.Fields[k] = v
		}
	}
	return sess
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
