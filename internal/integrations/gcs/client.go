package gcs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/iam"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsClient adapts *storage.Client to bucketAPI.
type gcsClient struct {
	client *storage.Client
}

// Dial opens a Cloud Storage client and wraps it in a Store.
func Dial(ctx context.Context, projectID, location string, opts ...option.ClientOption) (*Store, func() error, error) {
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs: create client: %w", err)
	}
	s, err := New(&gcsClient{client: c}, projectID, location)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return s, c.Close, nil
}

func (g *gcsClient) Bucket(ctx context.Context, name string) (BucketInfo, error) {
	attrs, err := g.client.Bucket(name).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return BucketInfo{}, ErrBucketNotFound
	}
	if err != nil {
		return BucketInfo{}, err
	}
	return BucketInfo{UniformAccess: attrs.UniformBucketLevelAccess.Enabled}, nil
}

func (g *gcsClient) CreateBucket(ctx context.Context, projectID, name, location, class string) error {
	return g.client.Bucket(name).Create(ctx, projectID, &storage.BucketAttrs{
		Location:                 location,
		StorageClass:             class,
		UniformBucketLevelAccess: storage.UniformBucketLevelAccess{Enabled: true},
	})
}

func (g *gcsClient) AddBucketMember(ctx context.Context, name, member, role string) error {
	handle := g.client.Bucket(name).IAM()
	policy, err := handle.Policy(ctx)
	if err != nil {
		return err
	}
	policy.Add(member, iam.RoleName(role))
	return handle.SetPolicy(ctx, policy)
}

func (g *gcsClient) Write(ctx context.Context, obj Object) error {
	w := g.client.Bucket(obj.Bucket).Object(obj.Path).NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.CacheControl = obj.CacheControl
	w.Metadata = obj.Metadata
	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *gcsClient) MakeObjectPublic(ctx context.Context, bucket, path string) error {
	return g.client.Bucket(bucket).Object(path).ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
}
