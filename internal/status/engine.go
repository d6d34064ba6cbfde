package status

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mhalesto/localloop/internal/blobstore"
	"github.com/mhalesto/localloop/internal/docstore"
)

// Options carries the engine's configuration. TTL and report threshold are
// deliberately constructor parameters rather than globals.
type Options struct {
	// StatusTTL is how long a status lives after creation.
	StatusTTL time.Duration

	// ReportThreshold is the report count at which a status auto-hides.
	ReportThreshold int

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the status-board engine. All state lives in the document and
// blob stores; the engine itself is stateless and safe for concurrent use.
type Engine struct {
	docs      docstore.Store
	blobs     blobstore.Store
	ttl       time.Duration
	threshold int
	now       func() time.Time
	logger    *slog.Logger
}

func New(docs docstore.Store, blobs blobstore.Store, opts Options, logger *slog.Logger) *Engine {
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = 24 * time.Hour
	}
	if opts.ReportThreshold < 1 {
		opts.ReportThreshold = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		docs:      docs,
		blobs:     blobs,
		ttl:       opts.StatusTTL,
		threshold: opts.ReportThreshold,
		now:       opts.Now,
		logger:    logger,
	}
}

// Location is the optional denormalized location attached at creation,
// used only for feed filtering.
type Location struct {
	City     string
	Province string
	Country  string
}

// CreateStatus validates, uploads the optional image, and persists a new
// status. Any failure aborts the whole call; no partial status document is
// written (an upload that succeeded before a persist failure can leave an
// orphaned blob).
func (e *Engine) CreateStatus(ctx context.Context, message string, img *Image, author Author, loc *Location) (*Status, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if author.UID == "" {
		return nil, ErrNotAuthenticated
	}

	now := e.now().UnixMilli()
	id := newID(now)

	s := &Status{
		ID:                id,
		Message:           message,
		CreatedAt:         now,
		ExpiresAt:         now + e.ttl.Milliseconds(),
		LastInteractionAt: now,
		Author:            author,
		Reactions:         map[string]Reaction{},
		Reports:           map[string]Report{},
	}
	if loc != nil {
		s.City = loc.City
		s.Province = loc.Province
		s.Country = loc.Country
	}

	if img != nil {
		up, err := e.uploadImage(ctx, *img, author.UID, id)
		if err != nil {
			return nil, err
		}
		s.ImageURL = up.URL
		s.ImageStoragePath = up.StoragePath
	}

	if err := e.docs.Create(ctx, Collection, id, s.toDoc()); err != nil {
		return nil, fmt.Errorf("persist status: %w", err)
	}
	e.logger.Info("status created", "status_id", id, "author", author.UID)
	return s, nil
}

// newID builds a time-prefixed unique id: base-36 epoch millis plus a random
// suffix. Never reused; the prefix keeps ids roughly creation-ordered.
func newID(epochMillis int64) string {
	return strconv.FormatInt(epochMillis, 36) + "-" + uuid.NewString()[:8]
}
