// Package gcs stores generated and uploaded files in Cloud Storage buckets
// and hands back their public URLs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	DefaultLocation     = "US"
	DefaultStorageClass = "STANDARD"
	publicCacheControl  = "public, max-age=3600"
	publicReadRole      = "roles/storage.objectViewer"
	allUsers            = "allUsers"
)

// BucketInfo reports what the store needs to know about an existing bucket.
type BucketInfo struct {
	UniformAccess bool
}

// Object is one upload.
type Object struct {
	Bucket       string
	Path         string
	Data         []byte
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// Upload describes a stored object.
type Upload struct {
	BucketName string `json:"bucketName"`
	FilePath   string `json:"filePath"`
	PublicURL  string `json:"publicUrl"`
	FileSize   int    `json:"fileSize"`
}

// ErrBucketNotFound is returned by bucketAPI.Bucket for a missing bucket.
var ErrBucketNotFound = errors.New("gcs: bucket not found")

type bucketAPI interface {
	Bucket(ctx context.Context, name string) (BucketInfo, error)
	CreateBucket(ctx context.Context, projectID, name, location, class string) error
	AddBucketMember(ctx context.Context, name, member, role string) error
	Write(ctx context.Context, obj Object) error
	MakeObjectPublic(ctx context.Context, bucket, path string) error
}

type Store struct {
	api       bucketAPI
	projectID string
	location  string

	mu      sync.Mutex
	buckets map[string]BucketInfo
}

func New(api bucketAPI, projectID, location string) (*Store, error) {
	if api == nil {
		return nil, errors.New("gcs: api must not be nil")
	}
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("gcs: project id is required")
	}
	if location == "" {
		location = DefaultLocation
	}
	return &Store{
		api:       api,
		projectID: projectID,
		location:  location,
		buckets:   map[string]BucketInfo{},
	}, nil
}

// PublicURL is the anonymous download URL of an object.
func PublicURL(bucket, path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, path)
}

// EnsureBucket creates the bucket with public read access when it does not
// exist yet. Results are cached per bucket for the life of the store.
func (s *Store) EnsureBucket(ctx context.Context, name string) (BucketInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.buckets[name]; ok {
		return info, nil
	}

	info, err := s.api.Bucket(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, ErrBucketNotFound):
		slog.InfoContext(ctx, "creating bucket", "bucket", name, "location", s.location)
		if err := s.api.CreateBucket(ctx, s.projectID, name, s.location, DefaultStorageClass); err != nil {
			return BucketInfo{}, fmt.Errorf("gcs: create bucket %s: %w", name, err)
		}
		if err := s.api.AddBucketMember(ctx, name, allUsers, publicReadRole); err != nil {
			return BucketInfo{}, fmt.Errorf("gcs: grant public read on %s: %w", name, err)
		}
		info = BucketInfo{UniformAccess: true}
	default:
		return BucketInfo{}, fmt.Errorf("gcs: get bucket %s: %w", name, err)
	}

	s.buckets[name] = info
	return info, nil
}

// Upload writes obj and, when public is set on a bucket with fine-grained
// ACLs, grants anonymous read on the object itself.
func (s *Store) Upload(ctx context.Context, obj Object, public bool) (Upload, error) {
	if obj.Bucket == "" || obj.Path == "" {
		return Upload{}, errors.New("gcs: bucket and path are required")
	}
	info, err := s.EnsureBucket(ctx, obj.Bucket)
	if err != nil {
		return Upload{}, err
	}
	if obj.CacheControl == "" && public {
		obj.CacheControl = publicCacheControl
	}
	if err := s.api.Write(ctx, obj); err != nil {
		return Upload{}, fmt.Errorf("gcs: write %s/%s: %w", obj.Bucket, obj.Path, err)
	}
	if public && !info.UniformAccess {
		if err := s.api.MakeObjectPublic(ctx, obj.Bucket, obj.Path); err != nil {
			return Upload{}, fmt.Errorf("gcs: make %s/%s public: %w", obj.Bucket, obj.Path, err)
		}
	}

	return Upload{
		BucketName: obj.Bucket,
		FilePath:   obj.Path,
		PublicURL:  PublicURL(obj.Bucket, obj.Path),
		FileSize:   len(obj.Data),
	}, nil
}
