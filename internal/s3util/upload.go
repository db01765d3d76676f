// Package s3util publishes a run's result file to S3.
package s3util

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// DefaultLinkExpiry is how long the presigned link to an uploaded file stays valid.
const DefaultLinkExpiry = 24 * time.Hour

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads result files to one bucket.
type Publisher struct {
	client  PutObjectAPI
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewPublisher builds a Publisher from the default AWS credential chain.
func NewPublisher(ctx context.Context, bucket, prefix string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	p := NewPublisherWithClient(client, bucket, prefix)
	p.presign = s3.NewPresignClient(client)
	return p, nil
}

// NewPublisherWithClient builds a Publisher around an existing client. No
// presigned links are produced.
func NewPublisherWithClient(client PutObjectAPI, bucket, prefix string) *Publisher {
	return &Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ResultKey returns <prefix>/<runID>/<base name of file>, omitting an empty prefix.
func ResultKey(prefix, runID, file string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, runID, filepath.Base(file))
	return path.Join(parts...)
}

// Publish uploads the file at localPath under ResultKey and returns its s3:// URI.
func (p *Publisher) Publish(ctx context.Context, runID, localPath string) (string, error) {
	key := ResultKey(p.prefix, runID, localPath)
	if err := UploadResults(ctx, p.client, p.bucket, key, localPath); err != nil {
		return "", err
	}
	uri := fmt.Sprintf("s3://%s/%s", p.bucket, key)

	if p.presign != nil {
		url, err := GeneratePresignedURL(ctx, p.presign, p.bucket, key, DefaultLinkExpiry)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Could not create download link")
		} else {
			log.Info().Str("url", url).Dur("expires_in", DefaultLinkExpiry).Msg("Results download link")
		}
	}
	return uri, nil
}

// UploadResults uploads a JSON results file to bucket/key.
func UploadResults(ctx context.Context, client PutObjectAPI, bucket, key, localPath string) error {
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Str("path", localPath).
		Msg("Uploading results to S3")

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/json; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload results to S3: %w", err)
	}

	log.Info().
		Str("bucket", bucket).
		Str("key", key).
		Msg("Results uploaded to S3")
	return nil
}

// GeneratePresignedURL creates a pre-signed GET URL for an S3 object.
func GeneratePresignedURL(ctx context.Context, presignClient *s3.PresignClient, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}
