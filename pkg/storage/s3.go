package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/errors"
	"github.com/gaon-data/gaon/pkg/logger"
)

// S3Sink writes payloads to an Amazon S3 bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Sink creates an S3 sink and verifies the bucket is reachable.
// Credentials come from the standard AWS configuration chain.
func NewS3Sink(ctx context.Context, cfg *config.StorageConfig) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.CredentialsPath != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{cfg.CredentialsPath}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "bucket is not accessible").
			WithDetail("bucket", cfg.BucketName)
	}

	log := logger.Get().With(zap.String("sink", "s3"), zap.String("bucket", cfg.BucketName))
	log.Debug("connected to bucket")

	return &S3Sink{
		client: client,
		bucket: cfg.BucketName,
		logger: log,
	}, nil
}

// Put writes one object. Writing the same key again overwrites it.
func (s *S3Sink) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write object").
			WithDetail("key", key)
	}

	s.logger.Debug("object written", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// Close is a no-op; the S3 client holds no persistent resources.
func (s *S3Sink) Close() error {
	return nil
}
