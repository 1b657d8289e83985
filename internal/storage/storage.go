package storage

import (
	"context"
	"io"
	"time"
)

// Service stores and serves book cover images in remote object storage.
type Service interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	// PresignGet returns a short-lived URL the client can fetch the object from.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
