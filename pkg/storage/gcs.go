package storage

import (
	"context"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/errors"
	"github.com/gaon-data/gaon/pkg/logger"
)

// GCSSink writes payloads to a Google Cloud Storage bucket.
type GCSSink struct {
	client *gcstorage.Client
	bucket *gcstorage.BucketHandle
	logger *zap.Logger
}

// NewGCSSink creates a GCS sink and verifies the bucket is reachable.
func NewGCSSink(ctx context.Context, cfg *config.StorageConfig) (*GCSSink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create GCS client")
	}

	bucket := client.Bucket(cfg.BucketName)
	if _, err := bucket.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "bucket is not accessible").
			WithDetail("bucket", cfg.BucketName)
	}

	log := logger.Get().With(zap.String("sink", "gcs"), zap.String("bucket", cfg.BucketName))
	log.Debug("connected to bucket")

	return &GCSSink{
		client: client,
		bucket: bucket,
		logger: log,
	}, nil
}

// Put writes one object. Writing the same key again overwrites it.
func (s *GCSSink) Put(ctx context.Context, key string, payload []byte) error {
	writer := s.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = "application/x-ndjson"

	if _, err := writer.Write(payload); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object").
			WithDetail("key", key)
	}

	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to finalize object").
			WithDetail("key", key)
	}

	s.logger.Debug("object written", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// Close releases the GCS client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
