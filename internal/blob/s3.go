package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotConfigured is returned by a nil *S3Store.
var ErrNotConfigured = errors.New("blob store not configured")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL, when set, is the base URL objects are served from.
	PublicURL string
	// Prefix is prepended to every object key.
	Prefix string
}

// Enabled reports whether cfg carries enough to talk to a bucket.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// S3Store stores binary assets in an S3-compatible bucket.
type S3Store struct {
	client s3Client
	cfg    Config
}

// NewS3Store returns nil when cfg is not enabled.
func NewS3Store(cfg Config) *S3Store {
	if !cfg.Enabled() {
		return nil
	}
	return &S3Store{client: newS3Client(cfg), cfg: cfg}
}

func newS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (s *S3Store) key(name string) string {
	if s.cfg.Prefix == "" {
		return name
	}
	return strings.TrimSuffix(s.cfg.Prefix, "/") + "/" + name
}

// Location returns the reference handed back to callers for an object key.
func (s *S3Store) Location(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
}

// Upload writes data under name, replacing any existing object, and returns
// its location.
func (s *S3Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if s == nil {
		return "", ErrNotConfigured
	}
	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return s.Location(key), nil
}

// Delete removes the object stored under name.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	if s == nil {
		return ErrNotConfigured
	}
	key := s.key(name)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s from s3: %w", key, err)
	}
	return nil
}
