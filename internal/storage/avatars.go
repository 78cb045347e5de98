// Package storage wraps the MinIO client used for avatar objects.
package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bagvault/api/internal/config"
)

const minioTimeout = 10 * time.Second

// Avatars manages user avatar objects in a single bucket. The API server
// only ever deletes through this type (the retention sweeper cascades
// avatar removal when it purges unverified users); uploads come in via a
// separate frontend pipeline.
type Avatars struct {
	mc     *minio.Client
	bucket string
}

// NewAvatars builds the client and verifies the bucket exists, creating
// it on first run.
func NewAvatars(cfg config.Config) (*Avatars, error) {
	mc, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("avatars: create client: %w", err)
	}
	a := &Avatars{mc: mc, bucket: cfg.MinioBucket}

	ctx, cancel := context.WithTimeout(context.Background(), minioTimeout)
	defer cancel()
	exists, err := mc.BucketExists(ctx, a.bucket)
	if err != nil {
		return nil, fmt.Errorf("avatars: check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("avatars: create bucket: %w", err)
		}
		log.Printf("avatars: created bucket %s", a.bucket)
	}
	return a, nil
}

// Delete removes one avatar object. A missing object is not an error;
// the goal is for it to be gone.
func (a *Avatars) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := a.mc.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("avatars: delete %s: %w", key, err)
	}
	return nil
}

// KeyFromURL extracts the object key from a stored avatar URL of the form
// http(s)://endpoint/bucket/key... Returns "" when the URL does not point
// into our bucket.
func (a *Avatars) KeyFromURL(url string) string {
	marker := "/" + a.bucket + "/"
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	return url[i+len(marker):]
}
