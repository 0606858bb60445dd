package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	blob "github.com/angelmondragon/storefront-backend/pkg/storage"
)

// Client stores objects in a single Cloud Storage bucket.
type Client struct {
	client *storage.Client
	bucket string
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	var opts []option.ClientOption
	switch {
	case gcp.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case gcp.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return &Client{client: client, bucket: cfg.BucketName}, nil
}

func (c *Client) object(key string) *storage.ObjectHandle {
	return c.client.Bucket(c.bucket).Object(strings.TrimLeft(key, "/"))
}

// NewWriter starts an upload bound to its own cancelable context; Abort
// cancels it so Cloud Storage never finalizes the object.
func (c *Client) NewWriter(ctx context.Context, key, contentType string) (blob.Writer, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("storage key is required")
	}
	uploadCtx, cancel := context.WithCancel(ctx)
	w := c.object(key).NewWriter(uploadCtx)
	if contentType != "" {
		w.ContentType = contentType
	}
	return &uploadWriter{Writer: w, cancel: cancel}, nil
}

type uploadWriter struct {
	*storage.Writer
	cancel context.CancelFunc
}

func (w *uploadWriter) Close() error {
	defer w.cancel()
	return w.Writer.Close()
}

func (w *uploadWriter) Abort() error {
	w.cancel()
	if err := w.Writer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := c.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, blob.ErrNotFound
	}
	return r, err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return blob.ErrNotFound
	}
	return err
}

// Ping verifies the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("gcs client not initialized")
	}
	_, err := c.client.Bucket(c.bucket).Attrs(ctx)
	return err
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

var _ blob.Blob = (*Client)(nil)
