package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "blobs")
	l, err := NewLocal(root, "http://blobs.test/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l, root
}

func TestLocalPutAndURL(t *testing.T) {
	l, root := newTestLocal(t)
	ctx := context.Background()

	payload := []byte("jpeg bytes")
	if err := l.Put(ctx, "statuses/u1/s1", payload, "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "statuses", "u1", "s1"))
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("stored bytes = %q, want %q", got, payload)
	}

	u, err := l.URL("statuses/u1/s1")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if u != "http://blobs.test/statuses/u1/s1" {
		t.Fatalf("URL = %q", u)
	}
}

func TestLocalPutOverwrites(t *testing.T) {
	l, root := newTestLocal(t)
	ctx := context.Background()

	if err := l.Put(ctx, "a/b", []byte("one"), ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := l.Put(ctx, "a/b", []byte("two"), ""); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(root, "a", "b"))
	if string(got) != "two" {
		t.Fatalf("stored bytes = %q, want %q", got, "two")
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	l, root := newTestLocal(t)
	ctx := context.Background()

	// Traversal segments collapse inside the root instead of escaping it.
	if err := l.Put(ctx, "../../etc/escape", []byte("x"), ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "etc", "escape")); err != nil {
		t.Fatalf("blob not confined to root: %v", err)
	}
	outside := filepath.Join(filepath.Dir(root), "etc", "escape")
	if _, err := os.Stat(outside); err == nil {
		t.Fatalf("blob escaped root to %s", outside)
	}

	if err := l.Put(ctx, "", []byte("x"), ""); err == nil {
		t.Fatal("Put with empty path succeeded")
	}
	if _, err := l.URL(".."); err == nil {
		t.Fatal("URL for empty cleaned path succeeded")
	}
}

func TestLocalDelete(t *testing.T) {
	l, root := newTestLocal(t)
	ctx := context.Background()

	if err := l.Put(ctx, "a/b", []byte("x"), ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := l.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "b")); !os.IsNotExist(err) {
		t.Fatalf("blob still present after Delete: %v", err)
	}
	// Deleting a missing blob is not an error.
	if err := l.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("Delete missing = %v, want nil", err)
	}
}

func TestLocalPutMissingRoot(t *testing.T) {
	l, root := newTestLocal(t)
	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("remove root: %v", err)
	}
	err := l.Put(context.Background(), "a/b", []byte("x"), "")
	if !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("Put with missing root = %v, want ErrBucketNotFound", err)
	}
}
