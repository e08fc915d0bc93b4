// Package storage keeps uploaded images and hands back durable URLs.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore persists image bytes under a key.
type ObjectStore interface {
	// Put stores data and returns the URL clients should reference.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
