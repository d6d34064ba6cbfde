package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mhalesto/localloop/internal/docstore"
)

// CleanupExpired deletes up to limit statuses whose expiry has passed, along
// with their attached image and reply sub-list. Per-status deletions run
// concurrently; a failure on one status is logged and does not abort the
// rest. Blob and reply deletion are best-effort. Returns the number of
// status documents removed.
func (e *Engine) CleanupExpired(ctx context.Context, limit int) (int, error) {
	now := float64(e.now().UnixMilli())
	docs, err := e.docs.Query(ctx, docstore.Query{
		Collection: Collection,
		Bound:      &docstore.Bound{Field: "expiresAt", Op: "<=", Value: now},
		OrderBy:    "expiresAt",
		Limit:      limit,
	})
	if err != nil {
		return 0, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		removed int
	)
	for _, doc := range docs {
		s := statusFromDoc(doc)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.cleanupOne(ctx, s) {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if removed > 0 {
		e.logger.Info("expired statuses cleaned up", "removed", removed, "candidates", len(docs))
	}
	return removed, nil
}

func (e *Engine) cleanupOne(ctx context.Context, s Status) bool {
	if s.ImageStoragePath != "" {
		// A dangling blob beats a blocked cleanup.
		if err := e.blobs.Delete(ctx, s.ImageStoragePath); err != nil {
			e.logger.Warn("expired status image delete failed", "status_id", s.ID, "path", s.ImageStoragePath, "error", err)
		}
	}

	if err := e.docs.Delete(ctx, Collection, s.ID); err != nil {
		e.logger.Error("expired status delete failed", "status_id", s.ID, "error", err)
		return false
	}

	// Cascade the reply sub-list. The original client skipped this and
	// leaked reply documents; deleting here is deliberate.
	replies, err := e.docs.Query(ctx, repliesQuery(s.ID))
	if err != nil {
		e.logger.Warn("expired status reply query failed", "status_id", s.ID, "error", err)
		return true
	}
	for _, r := range replies {
		if err := e.docs.Delete(ctx, r.Collection, r.ID); err != nil {
			e.logger.Warn("expired status reply delete failed", "status_id", s.ID, "reply_id", r.ID, "error", err)
		}
	}
	return true
}

// FetchReported returns statuses with at least one report, most-reported
// first, for moderation tooling. Hidden and expired statuses are included.
func (e *Engine) FetchReported(ctx context.Context, limit int) ([]Status, error) {
	docs, err := e.docs.Query(ctx, docstore.Query{
		Collection: Collection,
		Bound:      &docstore.Bound{Field: "reportCount", Op: ">=", Value: 1},
		OrderBy:    "reportCount",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(docs))
	for _, doc := range docs {
		out = append(out, statusFromDoc(doc))
	}
	return out, nil
}

// Sweeper periodically runs CleanupExpired in the background.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	batch    int
	logger   *slog.Logger

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewSweeper(engine *Engine, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		batch:    batch,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the sweep loop. Call Stop to shut it down.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.doneChan)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.engine.CleanupExpired(context.Background(), s.batch); err != nil {
					s.logger.Error("expiry sweep failed", "error", err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
}
