package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"libris/internal/config"
	"libris/internal/port"
)

const defaultBaseURL = "https://storage.googleapis.com"

// ErrObjectExists is returned when a non-overwriting upload targets an existing object.
var ErrObjectExists = errors.New("gcs: object already exists")

type gcsClient struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	baseURL string
}

// NewGCSClient creates a Google Cloud Storage backed BlobStore bound to cfg.Bucket.
func NewGCSClient(ctx context.Context, cfg *config.GCSConfig) (port.BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket must be provided")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}

	return &gcsClient{
		client:  client,
		bucket:  client.Bucket(cfg.Bucket),
		baseURL: PublicBaseURL(cfg),
	}, nil
}

// PublicBaseURL returns the URL prefix under which objects of cfg.Bucket are served.
func PublicBaseURL(cfg *config.GCSConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	return defaultBaseURL + "/" + cfg.Bucket
}

func (c *gcsClient) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	obj := c.bucket.Object(input.Key)
	if !input.Overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = input.ContentType

	if _, err := io.Copy(w, input.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gcs upload %s: %w", input.Key, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return nil, fmt.Errorf("gcs upload %s: %w", input.Key, ErrObjectExists)
		}
		return nil, fmt.Errorf("gcs upload %s: finalize: %w", input.Key, err)
	}

	attrs := w.Attrs()
	out := &port.UploadOutput{Location: c.PublicURL(input.Key)}
	if attrs != nil {
		out.ETag = attrs.Etag
	}
	return out, nil
}

func (c *gcsClient) PublicURL(key string) string {
	return c.baseURL + "/" + key
}

// Close releases the underlying storage client.
func (c *gcsClient) Close() error {
	return c.client.Close()
}
