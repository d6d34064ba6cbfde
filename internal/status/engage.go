package status

import (
	"context"
	"errors"
	"sort"

	"github.com/mhalesto/localloop/internal/docstore"
)

// ReactionResult is the soft-fail result of a reaction toggle. On failure
// the caller keeps its pre-existing client state and decides how to
// reconcile.
type ReactionResult struct {
	OK        bool
	Reactions map[string]Reaction
	Err       error
}

// ReportResult is the soft-fail result of an abuse report.
type ReportResult struct {
	OK              bool
	ReportCount     int
	IsHidden        bool
	AlreadyReported bool
	Err             error
}

// ToggleReaction atomically toggles one (emoji, uid) pair on a status. A
// user may hold reactions under multiple emoji at once; only the named pair
// flips. The whole read-modify-write runs inside a store transaction and is
// retried on write conflict, so the body must stay free of other side
// effects.
func (e *Engine) ToggleReaction(ctx context.Context, statusID, emoji, uid string) ReactionResult {
	if uid == "" {
		return ReactionResult{Err: ErrNotAuthenticated}
	}
	if emoji == "" {
		return ReactionResult{Err: ErrEmojiRequired}
	}

	var updated map[string]Reaction
	err := e.docs.RunTransaction(ctx, Collection, statusID, func(tx docstore.Tx) error {
		data, err := tx.Get()
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrStatusNotFound
		}
		if err != nil {
			return err
		}

		reactions := sanitizeReactions(data["reactions"])
		r := reactions[emoji]
		if idx := indexOf(r.Reactors, uid); idx >= 0 {
			r.Reactors = append(r.Reactors[:idx], r.Reactors[idx+1:]...)
		} else {
			r.Reactors = append(r.Reactors, uid)
			sort.Strings(r.Reactors)
		}
		if len(r.Reactors) == 0 {
			delete(reactions, emoji)
		} else {
			r.Count = len(r.Reactors)
			reactions[emoji] = r
		}

		data["reactions"] = reactionsToDoc(reactions)
		data["lastInteractionAt"] = e.now().UnixMilli()
		updated = reactions
		return tx.Set(data)
	})
	if err != nil {
		return ReactionResult{Err: err}
	}
	return ReactionResult{OK: true, Reactions: updated}
}

// ReportStatus atomically records one user's abuse report. Re-reports are
// idempotent. Crossing the report threshold hides the status; the hidden
// flag never resets through this path.
func (e *Engine) ReportStatus(ctx context.Context, statusID, uid, reason string) ReportResult {
	if uid == "" {
		return ReportResult{Err: ErrNotAuthenticated}
	}

	var result ReportResult
	var becameHidden bool
	err := e.docs.RunTransaction(ctx, Collection, statusID, func(tx docstore.Tx) error {
		data, err := tx.Get()
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrStatusNotFound
		}
		if err != nil {
			return err
		}

		reports := sanitizeReports(data["reports"])
		hidden := asBool(data["isHidden"])

		if _, ok := reports[uid]; ok {
			result = ReportResult{OK: true, ReportCount: len(reports), IsHidden: hidden, AlreadyReported: true}
			return nil
		}

		reports[uid] = Report{Reason: reason, ReportedAt: e.now().UnixMilli()}
		count := len(reports)
		becameHidden = !hidden && count >= e.threshold
		hidden = hidden || count >= e.threshold

		data["reports"] = reportsToDoc(reports)
		data["reportCount"] = count
		data["isHidden"] = hidden
		data["lastInteractionAt"] = e.now().UnixMilli()
		result = ReportResult{OK: true, ReportCount: count, IsHidden: hidden}
		return tx.Set(data)
	})
	if err != nil {
		return ReportResult{Err: err}
	}
	if becameHidden {
		e.logger.Info("status hidden by reports", "status_id", statusID, "report_count", result.ReportCount)
	}
	return result
}

func indexOf(list []string, val string) int {
	for i, s := range list {
		if s == val {
			return i
		}
	}
	return -1
}
