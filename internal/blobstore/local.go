package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores blobs as files under a root directory and builds URLs by
// joining the blob path onto a public base URL.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Put(_ context.Context, blobPath string, data []byte, _ string) error {
	full, err := l.resolve(blobPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, l.root)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return err
	}
	return nil
}

func (l *Local) URL(blobPath string) (string, error) {
	if _, err := l.resolve(blobPath); err != nil {
		return "", err
	}
	u, err := url.JoinPath(l.baseURL, strings.Split(path.Clean(blobPath), "/")...)
	if err != nil {
		return "", fmt.Errorf("resolve blob url: %w", err)
	}
	return u, nil
}

func (l *Local) Delete(_ context.Context, blobPath string) error {
	full, err := l.resolve(blobPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return err
	}
	return nil
}

// resolve maps a blob path to a filesystem path, rejecting traversal.
func (l *Local) resolve(blobPath string) (string, error) {
	clean := path.Clean("/" + blobPath)
	if clean == "/" {
		return "", fmt.Errorf("blobstore: empty path")
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}
