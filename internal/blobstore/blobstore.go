// Package blobstore abstracts binary object storage: write a blob under a
// path, resolve a fetchable URL for it, delete it.
package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrPermission means the caller may not write to the store.
	ErrPermission = errors.New("blobstore: permission denied")
	// ErrChecksum means an integrity/attestation layer rejected the write.
	ErrChecksum = errors.New("blobstore: integrity check rejected write")
	// ErrBucketNotFound means the target container does not exist.
	ErrBucketNotFound = errors.New("blobstore: bucket not found")
	// ErrNotFound means no blob exists at the path.
	ErrNotFound = errors.New("blobstore: blob not found")
)

type Store interface {
	// Put writes a blob. The content type is a hint for later serving.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// URL resolves a fetchable URL for a stored blob.
	URL(path string) (string, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
}
