package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound      = errors.New("repository: document not found")
	ErrAlreadyExists = errors.New("repository: document already exists")
)

// Document is one stored record with its id.
type Document struct {
	ID   string
	Data map[string]any
}

// serverTime is replaced with the commit timestamp on write.
type serverTime struct{}

// increment adds n to a numeric field, treating a missing field as zero.
type increment int64

// documentAPI is the subset of Firestore used by the stores. Values in data
// may be serverTime or increment.
type documentAPI interface {
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Create(ctx context.Context, collection, id string, data map[string]any) error
	Merge(ctx context.Context, collection, id string, data map[string]any) error
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, limit int) ([]Document, error)
}

// Firestore adapts a *firestore.Client to documentAPI.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) (*Firestore, error) {
	if client == nil {
		return nil, errors.New("repository: firestore client must not be nil")
	}
	return &Firestore{client: client}, nil
}

// DialFirestore opens a client for the given database; empty means "(default)".
func DialFirestore(ctx context.Context, projectID, database string) (*firestore.Client, error) {
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	c, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return nil, fmt.Errorf("repository: create firestore client: %w", err)
	}
	return c, nil
}

func translate(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch v := v.(type) {
		case serverTime:
			out[k] = firestore.ServerTimestamp
		case increment:
			out[k] = firestore.Increment(int64(v))
		default:
			out[k] = v
		}
	}
	return out
}

func mapCode(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapCode(err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	return snap.Data(), nil
}

func (f *Firestore) Create(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Create(ctx, translate(data))
	return mapCode(err)
}

func (f *Firestore) Merge(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, translate(data), firestore.MergeAll)
	return mapCode(err)
}

func (f *Firestore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	updates := make([]firestore.Update, 0, len(data))
	for k, v := range translate(data) {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	return mapCode(err)
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return mapCode(err)
}

func (f *Firestore) List(ctx context.Context, collection string, limit int) ([]Document, error) {
	snaps, err := f.client.Collection(collection).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapCode(err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, Document{ID: s.Ref.ID, Data: s.Data()})
	}
	return docs, nil
}
