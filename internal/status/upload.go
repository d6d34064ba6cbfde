package status

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/mhalesto/localloop/internal/blobstore"
)

// Image is a local image reference handed to CreateStatus. Either Data holds
// the bytes directly (HTTP multipart) or Path points at a readable file.
type Image struct {
	Path        string
	Data        []byte
	ContentType string
}

// uploadResult is the URL/path pair persisted on the status document.
type uploadResult struct {
	URL         string
	StoragePath string
}

// uploadImage writes a status image to the blob store under a deterministic
// per-author, per-status path and resolves its public URL. A failure after a
// successful Put leaves an orphaned blob; this pipeline does not clean it up.
func (e *Engine) uploadImage(ctx context.Context, img Image, uid, statusID string) (*uploadResult, error) {
	if uid == "" {
		return nil, &UploadError{Kind: UploadNoAuthorID}
	}
	path := fmt.Sprintf("%s/%s/%s", Collection, uid, statusID)

	data := img.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(img.Path)
		if err != nil {
			return nil, &UploadError{Kind: UploadLocalReadError, Path: path, Err: err}
		}
	}
	if len(data) == 0 {
		return nil, &UploadError{Kind: UploadLocalReadError, Path: path, Err: errors.New("image is empty")}
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(img.Path))
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	if err := e.blobs.Put(ctx, path, data, contentType); err != nil {
		return nil, &UploadError{Kind: classifyPutError(err), Path: path, Err: err}
	}

	url, err := e.blobs.URL(path)
	if err != nil {
		// The blob exists but is not linked to the status yet.
		return nil, &UploadError{Kind: UploadURLResolutionFailed, Path: path, Err: err}
	}
	return &uploadResult{URL: url, StoragePath: path}, nil
}

func classifyPutError(err error) UploadErrorKind {
	switch {
	case errors.Is(err, blobstore.ErrPermission):
		return UploadPermissionDenied
	case errors.Is(err, blobstore.ErrChecksum):
		return UploadIntegrityCheckBlocked
	case errors.Is(err, blobstore.ErrBucketNotFound):
		return UploadBucketMisconfigured
	default:
		return UploadFailed
	}
}
