// Package publish uploads finished videos to remote storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const s3Scheme = "s3://"

// ErrInvalidURI is wrapped by ParseS3URI for malformed destinations.
var ErrInvalidURI = errors.New("invalid s3 uri")

// S3Config contains minimal configuration for creating an S3 client.
// Empty values fall back to the standard AWS config/credential chain.
type S3Config struct {
	Region       string
	Profile      string
	UsePathStyle bool
}

// putObjectAPI is the part of *s3.Client the publisher needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Publisher struct {
	client putObjectAPI
	logger *zap.Logger
}

func NewS3Publisher(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Publisher, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Publisher{client: c, logger: logger}, nil
}

// IsS3URI reports whether dest names an S3 object rather than a local path.
func IsS3URI(dest string) bool {
	return strings.HasPrefix(dest, s3Scheme)
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("%w: %q has no s3:// scheme", ErrInvalidURI, uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q needs a bucket and an object key", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}

// Publish uploads localPath to the s3:// destination and returns the URI.
func (p *S3Publisher) Publish(ctx context.Context, localPath, dest string) (string, error) {
	bucket, key, err := ParseS3URI(dest)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to %s: %w", dest, err)
	}

	p.logger.Info("Uploaded video", zap.String("bucket", bucket), zap.String("key", key))
	return dest, nil
}
