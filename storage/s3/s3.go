package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kbukum/transcribe/awsclient"
	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderS3, func(ctx context.Context, providerCfg any, log *logger.Logger) (storage.Storage, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("s3: expected *s3.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStorage(ctx, c)
	})
}

// API is the subset of the S3 client used for staging.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
}

// Storage implements storage.Storage on Amazon S3 or an S3-compatible
// endpoint.
type Storage struct {
	client API
	bucket string
	scheme string
}

// NewStorage creates a new S3 storage client from the given config.
func NewStorage(ctx context.Context, cfg *Config) (*Storage, error) {
	awsCfg, err := awsclient.Load(ctx, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// Non-AWS endpoints reject the SDK's default checksum trailers.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Scheme), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket, scheme string) *Storage {
	if scheme == "" {
		scheme = SchemeS3
	}
	return &Storage{client: client, bucket: bucket, scheme: scheme}
}

// Upload writes data to the bucket under key.
func (s *Storage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	in := &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return awsclient.Classify("", err)
	}
	return nil
}

// Delete removes an object. S3 reports success for missing keys; other
// stores answer 404, which is also treated as success.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err = awsclient.Classify("", err); err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

// Exists checks whether an object exists.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if err = awsclient.Classify("", err); errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// MediaURI returns {scheme}://{bucket}/{key}.
func (s *Storage) MediaURI(key string) string {
	return fmt.Sprintf("%s://%s/%s", s.scheme, s.bucket, key)
}

var _ storage.Storage = (*Storage)(nil)
