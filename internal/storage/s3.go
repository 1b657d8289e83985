package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service stores cover images in Amazon S3 (or compatible APIs).
type S3Service struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
}

func NewS3Service(client *s3.Client, bucket string) *S3Service {
	return &S3Service{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
	}
}

func (s *S3Service) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if key == "" {
		return fmt.Errorf("object key is required")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
		ACL:    types.ObjectCannedACLPrivate,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("object key is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

var _ Service = (*S3Service)(nil)
