package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/unimarket/unimarket-backend/config"
)

// S3Storage handles presigned upload URLs for user-submitted images.
type S3Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	region        string
	presignExpiry time.Duration
}

// PresignedURLResponse is returned to clients who want to upload a file.
type PresignedURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// NewS3Storage creates an S3 storage backed by the given config.
func NewS3Storage(cfg *config.S3Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &S3Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		presignExpiry: 15 * time.Minute,
	}, nil
}

// GeneratePresignedURL creates a presigned PUT URL under the given folder.
// The object key is randomized so clients cannot overwrite each other.
func (s *S3Storage) GeneratePresignedURL(ctx context.Context, folder, filename, contentType string) (*PresignedURLResponse, error) {
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)

	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	fileURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)

	return &PresignedURLResponse{
		UploadURL: request.URL,
		FileURL:   fileURL,
		Key:       key,
		ExpiresIn: int(s.presignExpiry.Seconds()),
	}, nil
}

// DeleteObject removes an uploaded object, used by the retention cleanup.
func (s *S3Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// ValidateContentType checks whether the content type is an allowed image type.
func ValidateContentType(contentType string) bool {
	allowed := []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/heic",
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, a := range allowed {
		if contentType == a {
			return true
		}
	}
	return false
}

// ValidateFileSize checks the declared size against the 10MB upload cap.
func ValidateFileSize(size int64) bool {
	const maxSize = 10 * 1024 * 1024
	return size > 0 && size <= maxSize
}
