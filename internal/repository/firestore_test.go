package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var fakeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memDocs is an in-memory documentAPI resolving serverTime and increment the
// way Firestore does.
type memDocs struct {
	mu    sync.Mutex
	data  map[string]map[string]map[string]any
	err   error
	calls []string
}

func newMemDocs() *memDocs {
	return &memDocs{data: map[string]map[string]map[string]any{}}
}

func (m *memDocs) coll(c string) map[string]map[string]any {
	if m.data[c] == nil {
		m.data[c] = map[string]map[string]any{}
	}
	return m.data[c]
}

func (m *memDocs) apply(dst, src map[string]any) {
	for k, v := range src {
		switch v := v.(type) {
		case serverTime:
			dst[k] = fakeNow
		case increment:
			cur, _ := dst[k].(int64)
			dst[k] = cur + int64(v)
		case int:
			dst[k] = int64(v)
		default:
			dst[k] = v
		}
	}
}

func (m *memDocs) Get(_ context.Context, c, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "get")
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.coll(c)[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := map[string]any{}
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *memDocs) Create(_ context.Context, c, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create")
	if m.err != nil {
		return m.err
	}
	if _, ok := m.coll(c)[id]; ok {
		return ErrAlreadyExists
	}
	doc := map[string]any{}
	m.apply(doc, data)
	m.coll(c)[id] = doc
	return nil
}

func (m *memDocs) Merge(_ context.Context, c, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "merge")
	if m.err != nil {
		return m.err
	}
	doc, ok := m.coll(c)[id]
	if !ok {
		doc = map[string]any{}
		m.coll(c)[id] = doc
	}
	m.apply(doc, data)
	return nil
}

func (m *memDocs) Update(_ context.Context, c, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "update")
	if m.err != nil {
		return m.err
	}
	doc, ok := m.coll(c)[id]
	if !ok {
		return ErrNotFound
	}
	m.apply(doc, data)
	return nil
}

func (m *memDocs) Delete(_ context.Context, c, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete")
	if m.err != nil {
		return m.err
	}
	delete(m.coll(c), id)
	return nil
}

func (m *memDocs) List(_ context.Context, c string, limit int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "list")
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]string, 0, len(m.coll(c)))
	for id := range m.coll(c) {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, Document{ID: id, Data: m.coll(c)[id]})
	}
	return out, nil
}

func TestMapCode(t *testing.T) {
	require.ErrorIs(t, mapCode(status.Error(codes.NotFound, "no doc")), ErrNotFound)
	require.ErrorIs(t, mapCode(status.Error(codes.AlreadyExists, "dup")), ErrAlreadyExists)

	other := status.Error(codes.Unavailable, "down")
	require.Equal(t, other, mapCode(other))
	require.NoError(t, mapCode(nil))

	plain := errors.New("plain")
	require.Equal(t, plain, mapCode(plain))
}

func TestTranslate_ConvertsSentinels(t *testing.T) {
	out := translate(map[string]any{"a": serverTime{}, "b": increment(2), "c": "x"})
	require.Len(t, out, 3)
	require.Equal(t, "x", out["c"])
	require.NotEqual(t, serverTime{}, out["a"])
	require.NotEqual(t, increment(2), out["b"])
}

func TestNewFirestore_NilClient(t *testing.T) {
	_, err := NewFirestore(nil)
	require.Error(t, err)
}
