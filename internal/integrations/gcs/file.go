package gcs

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var now = time.Now

const textFilePrefix = "text-files/"

// UploadFile copies a local file into bucket. An empty destination becomes
// text-files/{unixMillis}_{base name}.
func (s *Store) UploadFile(ctx context.Context, localPath, bucket, destination string, public bool) (Upload, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return Upload{}, fmt.Errorf("gcs: read %s: %w", localPath, err)
	}
	if destination == "" {
		destination = fmt.Sprintf("%s%d_%s", textFilePrefix, now().UnixMilli(), filepath.Base(localPath))
	}
	return s.Upload(ctx, Object{
		Bucket:      bucket,
		Path:        destination,
		Data:        data,
		ContentType: contentTypeFor(localPath),
		Metadata: map[string]string{
			"originalName": filepath.Base(localPath),
			"uploadedAt":   now().UTC().Format(time.RFC3339),
			"fileSize":     strconv.Itoa(len(data)),
		},
	}, public)
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "text/plain"
}
