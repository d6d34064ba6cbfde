package status

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage is returned when a status or reply message is empty
	// after trimming.
	ErrEmptyMessage = errors.New("status: message is empty")

	// ErrNotAuthenticated is returned when the acting user has no uid.
	ErrNotAuthenticated = errors.New("status: author uid required")

	// ErrStatusNotFound is returned when the target status does not exist.
	ErrStatusNotFound = errors.New("status: not found")

	// ErrEmojiRequired is returned when a reaction toggle names no emoji.
	ErrEmojiRequired = errors.New("status: emoji is required")
)

// UploadErrorKind classifies image upload failures into actionable
// categories. The presentation layer maps kinds to user-facing copy.
type UploadErrorKind string

const (
	UploadNoAuthorID            UploadErrorKind = "no_author_id"
	UploadLocalReadError        UploadErrorKind = "local_read_error"
	UploadPermissionDenied      UploadErrorKind = "permission_denied"
	UploadIntegrityCheckBlocked UploadErrorKind = "integrity_check_blocked"
	UploadBucketMisconfigured   UploadErrorKind = "bucket_misconfigured"
	UploadURLResolutionFailed   UploadErrorKind = "url_resolution_failed"
	UploadFailed                UploadErrorKind = "upload_failed"
)

// UploadError wraps an image pipeline failure with its classification and
// the target storage path.
type UploadError struct {
	Kind UploadErrorKind
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("status: image upload %s (%s)", e.Kind, e.Path)
	}
	return fmt.Sprintf("status: image upload %s (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
