package status

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mhalesto/localloop/internal/blobstore"
	"github.com/mhalesto/localloop/internal/docstore"
)

const testThreshold = 3

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func docDocument(data map[string]any) docstore.Document {
	return docstore.Document{Collection: Collection, ID: "s1", Data: data}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*Engine, *docstore.Memory, *blobstore.Memory, *fakeClock) {
	t.Helper()
	docs := docstore.NewMemory()
	blobs := blobstore.NewMemory("http://blobs.test")
	clock := newFakeClock()
	engine := New(docs, blobs, Options{
		StatusTTL:       time.Hour,
		ReportThreshold: testThreshold,
		Now:             clock.Now,
	}, testLogger())
	return engine, docs, blobs, clock
}

func testAuthor(uid string) Author {
	return Author{UID: uid, DisplayName: "User " + uid, Email: uid + "@example.com"}
}

func mustCreate(t *testing.T, e *Engine, message string, author Author, loc *Location) *Status {
	t.Helper()
	s, err := e.CreateStatus(context.Background(), message, nil, author, loc)
	if err != nil {
		t.Fatalf("CreateStatus(%q): %v", message, err)
	}
	return s
}

func TestCreateStatusRejectsBlankMessage(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	_, err := engine.CreateStatus(context.Background(), "   ", nil, testAuthor("u1"), nil)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestCreateStatusRejectsMissingUID(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	_, err := engine.CreateStatus(context.Background(), "hi", nil, Author{DisplayName: "nobody"}, nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestCreateStatusInitialState(t *testing.T) {
	engine, docs, _, clock := newTestEngine(t)

	s := mustCreate(t, engine, "  hello world  ", testAuthor("u1"), &Location{City: "Cape Town", Country: "ZA"})

	if s.Message != "hello world" {
		t.Errorf("message not trimmed: %q", s.Message)
	}
	now := clock.Now().UnixMilli()
	if s.CreatedAt != now {
		t.Errorf("createdAt = %d, want %d", s.CreatedAt, now)
	}
	if s.ExpiresAt != now+time.Hour.Milliseconds() {
		t.Errorf("expiresAt = %d, want createdAt+TTL", s.ExpiresAt)
	}
	if s.LastInteractionAt != now {
		t.Errorf("lastInteractionAt = %d, want %d", s.LastInteractionAt, now)
	}
	if s.IsHidden || s.ReportCount != 0 || s.RepliesCount != 0 || len(s.Reactions) != 0 || len(s.Reports) != 0 {
		t.Errorf("counters/maps not zeroed: %+v", s)
	}
	if s.City != "Cape Town" || s.Country != "ZA" {
		t.Errorf("location not denormalized: %+v", s)
	}

	// Persisted and readable back through normalization.
	data, err := docs.Get(context.Background(), Collection, s.ID)
	if err != nil {
		t.Fatalf("persisted doc missing: %v", err)
	}
	round := statusFromDoc(docstore.Document{Collection: Collection, ID: s.ID, Data: data})
	if round.Message != "hello world" || round.CreatedAt != now {
		t.Errorf("round-trip mismatch: %+v", round)
	}
}

func TestCreateStatusWithImage(t *testing.T) {
	engine, _, blobs, _ := newTestEngine(t)

	img := &Image{Path: "photo.png", Data: []byte{0x89, 0x50, 0x4e, 0x47}, ContentType: "image/png"}
	s, err := engine.CreateStatus(context.Background(), "look", img, testAuthor("u1"), nil)
	if err != nil {
		t.Fatalf("CreateStatus: %v", err)
	}
	wantPath := "statuses/u1/" + s.ID
	if s.ImageStoragePath != wantPath {
		t.Errorf("storage path = %q, want %q", s.ImageStoragePath, wantPath)
	}
	if !strings.HasPrefix(s.ImageURL, "http://blobs.test/") {
		t.Errorf("image url = %q", s.ImageURL)
	}
	if !blobs.Has(wantPath) {
		t.Error("blob not written")
	}
}

func TestCreateStatusUploadFailureAbortsCreation(t *testing.T) {
	docs := docstore.NewMemory()
	engine := New(docs, &failingBlobs{putErr: blobstore.ErrPermission}, Options{}, testLogger())

	img := &Image{Path: "photo.png", Data: []byte{1}}
	_, err := engine.CreateStatus(context.Background(), "hi", img, testAuthor("u1"), nil)

	var upErr *UploadError
	if !errors.As(err, &upErr) || upErr.Kind != UploadPermissionDenied {
		t.Fatalf("err = %v, want UploadError(permission_denied)", err)
	}

	statuses, _ := docs.Query(context.Background(), docstore.Query{Collection: Collection})
	if len(statuses) != 0 {
		t.Errorf("partial status persisted after upload failure: %d docs", len(statuses))
	}
}

func TestStatusIDsAreUnique(t *testing.T) {
	now := time.Now().UnixMilli()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newID(now)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
