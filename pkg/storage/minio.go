package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Store wraps a MinIO client scoped to the emoji bucket. Generated images
// are world-readable so the catalog can hand out plain URLs.
type Store struct {
	client     *minio.Client
	bucket     string
	cdnBaseURL string
}

type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	CDNBaseURL string
}

func Connect(opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
		log.Info().Str("bucket", opts.Bucket).Msg("Created MinIO bucket")
	}

	// Public-read policy so emoji URLs resolve without presigning
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Action": ["s3:GetBucketLocation", "s3:ListBucket"],
				"Effect": "Allow",
				"Principal": "*",
				"Resource": ["arn:aws:s3:::%s"]
			},
			{
				"Action": ["s3:GetObject"],
				"Effect": "Allow",
				"Principal": "*",
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, opts.Bucket, opts.Bucket)
	if err := client.SetBucketPolicy(ctx, opts.Bucket, policy); err != nil {
		log.Warn().Err(err).Str("bucket", opts.Bucket).Msg("Failed to set public policy on bucket")
	}

	log.Info().Str("endpoint", opts.Endpoint).Str("bucket", opts.Bucket).Msg("Connected to MinIO")

	return &Store{
		client:     client,
		bucket:     opts.Bucket,
		cdnBaseURL: strings.TrimSuffix(opts.CDNBaseURL, "/"),
	}, nil
}

// Upload stores data under objectName and returns its public URL.
func (s *Store) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return s.PublicURL(objectName), nil
}

// PublicURL builds the CDN-facing URL for an object.
func (s *Store) PublicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.cdnBaseURL, s.bucket, objectName)
}

// Remove deletes an object, used to clean up after a failed catalog insert.
func (s *Store) Remove(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
