package storage

import "context"

// BlobStore persists captured image bytes under a key. Keys are
// slash-separated (`<session-id>/<timestamp>.jpg`). Save returns a location
// string suitable for logs.
type BlobStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
