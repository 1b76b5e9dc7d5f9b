package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Cache stores artifacts as S3 objects keyed by the criteria hash, with
// content type and filename carried in object metadata.
type S3Cache struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config holds configuration for the S3 cache backend.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
	Prefix   string // Optional key prefix
}

const metaFilename = "artifact-filename"

// NewS3Cache creates an S3-backed artifact cache.
func NewS3Cache(ctx context.Context, cfg S3Config) (*S3Cache, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	}

	return &S3Cache{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3Cache) objectKey(c Criteria) string {
	return s.prefix + c.Key() + ".blob"
}

func (s *S3Cache) Get(ctx context.Context, c Criteria) (Artifact, bool, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(c)),
	})
	if err != nil {
		// The SDK wraps NoSuchKey in operation errors; any failure to
		// fetch is a miss as far as the probe is concerned.
		return Artifact{}, false, nil
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Artifact{}, false, fmt.Errorf("s3 read: %w", err)
	}

	a := Artifact{Bytes: data}
	if result.ContentType != nil {
		a.ContentType = *result.ContentType
	}
	if name, ok := result.Metadata[metaFilename]; ok {
		a.Filename = name
	}
	return a, true, nil
}

func (s *S3Cache) Put(ctx context.Context, c Criteria, a Artifact) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(c)),
		Body:        bytes.NewReader(a.Bytes),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{metaFilename: a.Filename},
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}
