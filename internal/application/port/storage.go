package port

import (
	"context"
	"time"
)

// AttachmentStore abstracts binary attachment storage. Implementations
// return opaque storage keys; presigned URLs grant temporary download
// access without further authentication.
type AttachmentStore interface {
	// Put stores content under directory and returns the storage key.
	Put(ctx context.Context, content []byte, directory, filename string) (string, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, storageKey string) error

	// Presign returns a time-limited download URL for the object.
	Presign(storageKey string, ttl time.Duration) (string, error)
}
