// Package objstore wraps the MinIO client used for uploaded files: feed
// attachments and resource-library documents.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Buckets used by the portal.
const (
	BucketAttachments = "feed-attachments"
	BucketResources   = "resources"
)

// Config carries connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	// PublicBaseURL is prepended to object paths when building the stored
	// URL. Defaults to the endpoint itself.
	PublicBaseURL string
}

// Client performs uploads and deletes against S3-compatible storage.
type Client struct {
	client  *minio.Client
	baseURL string
}

// New connects to the object store and ensures the portal buckets exist.
func New(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: connect: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.Secure {
			scheme = "https"
		}
		base = scheme + "://" + endpoint
	}

	c := &Client{client: mc, baseURL: strings.TrimRight(base, "/")}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for _, bucket := range []string{BucketAttachments, BucketResources} {
		exists, err := mc.BucketExists(ensureCtx, bucket)
		if err != nil {
			return nil, fmt.Errorf("objstore: check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := mc.MakeBucket(ensureCtx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("objstore: create bucket %s: %w", bucket, err)
			}
		}
	}

	return c, nil
}

// Upload stores an object and returns its public URL. The caller treats the
// URL as an opaque attachment reference.
func (c *Client) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("objstore: put %s/%s: %w", bucket, key, err)
	}
	return c.baseURL + "/" + bucket + "/" + url.PathEscape(key), nil
}

// Remove deletes an object. Removing a missing object is not an error.
func (c *Client) Remove(ctx context.Context, bucket, key string) error {
	err := c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("objstore: remove %s/%s: %w", bucket, key, err)
	}
	return nil
}
