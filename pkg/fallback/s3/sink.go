// Package s3 persists undeliverable content as objects in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/fallback"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// Config holds configuration for the S3 sink.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// KeyPrefix is prepended to all object keys (e.g., "fallback/").
	KeyPrefix string

	// ForcePathStyle forces path-style addressing (required for MinIO).
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the SDK default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// PutObjectAPI is the subset of the S3 client used by the sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Sink writes each item to s3://Bucket/KeyPrefix<name>.
type Sink struct {
	client    PutObjectAPI
	bucket    string
	keyPrefix string

	mu     sync.RWMutex
	closed bool
}

var _ pipeline.FallbackSink = (*Sink)(nil)

// New creates a sink with an existing client.
func New(client PutObjectAPI, config Config) *Sink {
	return &Sink{
		client:    client,
		bucket:    config.Bucket,
		keyPrefix: config.KeyPrefix,
	}
}

// NewFromConfig creates a sink by building an S3 client from config.
func NewFromConfig(ctx context.Context, config Config) (*Sink, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if config.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}
	if config.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return New(s3.NewFromConfig(awsCfg, s3Opts...), config), nil
}

// fullKey returns the full S3 key for a sanitized name.
func (s *Sink) fullKey(name string) string {
	return s.keyPrefix + name
}

// Persist uploads r as one object and returns its s3:// URL.
//
// Seekable readers (files) are streamed; anything else is buffered first
// because request signing needs a rewindable body.
func (s *Sink) Persist(ctx context.Context, name string, r io.Reader) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", fallback.ErrSinkClosed
	}

	clean, err := fallback.SanitizeName(name)
	if err != nil {
		return "", err
	}

	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", clean, err)
		}
		body = bytes.NewReader(data)
	}

	key := s.fullKey(clean)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	loc := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	logger.DebugCtx(ctx, "Fallback object written", logger.KeyBucket, s.bucket, logger.KeyKey, key)
	return loc, nil
}

// Close rejects further writes.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
