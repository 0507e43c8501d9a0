package storage

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"google.golang.org/api/option"
)

// GCS stores case documents in a Cloud Storage bucket, optionally under a
// fixed object prefix.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.DocumentStorage = &GCS{}

type GCSOption func(*gcsConfig)

type gcsConfig struct {
	credentialsFile string
	prefix          string
}

// WithCredentialsFile uses a service account key instead of ADC
func WithCredentialsFile(path string) GCSOption {
	return func(c *gcsConfig) {
		c.credentialsFile = path
	}
}

// WithPrefix stores objects under prefix/
func WithPrefix(prefix string) GCSOption {
	return func(c *gcsConfig) {
		c.prefix = prefix
	}
}

func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	var cfg gcsConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var clientOpts []option.ClientOption
	if cfg.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.credentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{client: client, bucket: bucket, prefix: cfg.prefix}, nil
}

func (g *GCS) objectName(path string) string {
	if g.prefix == "" {
		return path
	}
	return g.prefix + "/" + path
}

func (g *GCS) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	w := g.client.Bucket(g.bucket).Object(g.objectName(path)).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to upload object", goerr.V("bucket", g.bucket), goerr.V("path", path))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", g.bucket), goerr.V("path", path))
	}
	return nil
}

func (g *GCS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rd, err := g.client.Bucket(g.bucket).Object(g.objectName(path)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "object not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("bucket", g.bucket), goerr.V("path", path))
	}
	return rd, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
