package status

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mhalesto/localloop/internal/docstore"
)

// AddReply appends a reply under a status, then separately increments the
// parent's denormalized repliesCount and bumps lastInteractionAt. The two
// writes are not atomic: if the increment fails after the reply persisted,
// the counter under-counts. That drift is logged, not returned, and is left
// to a periodic recount if exact counts matter.
func (e *Engine) AddReply(ctx context.Context, statusID, message string, author Author) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if author.UID == "" {
		return nil, ErrNotAuthenticated
	}

	if _, err := e.docs.Get(ctx, Collection, statusID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrStatusNotFound
		}
		return nil, err
	}

	now := e.now().UnixMilli()
	r := &Reply{
		ID:        newID(now),
		Message:   message,
		CreatedAt: now,
		Author:    author,
	}
	if err := e.docs.Create(ctx, repliesCollection(statusID), r.ID, r.toDoc()); err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	err := e.docs.RunTransaction(ctx, Collection, statusID, func(tx docstore.Tx) error {
		data, err := tx.Get()
		if err != nil {
			return err
		}
		data["repliesCount"] = asInt(data["repliesCount"]) + 1
		data["lastInteractionAt"] = e.now().UnixMilli()
		return tx.Set(data)
	})
	if err != nil {
		e.logger.Error("reply counter increment failed", "status_id", statusID, "reply_id", r.ID, "error", err)
	}
	return r, nil
}
