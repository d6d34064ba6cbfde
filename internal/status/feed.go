package status

import (
	"context"

	"github.com/mhalesto/localloop/internal/docstore"
)

// FeedFilter selects the feed slice to watch. At most one location field is
// applied server-side: city wins over province, province over country.
type FeedFilter struct {
	City     string
	Province string
	Country  string

	// Limit bounds the server-side query result.
	Limit int

	// IncludeHidden keeps statuses that are hidden or at the report
	// threshold in the snapshot (moderation views).
	IncludeHidden bool
}

func (f FeedFilter) query() docstore.Query {
	q := docstore.Query{
		Collection: Collection,
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      f.Limit,
	}
	switch {
	case f.City != "":
		q.Filters = []docstore.Filter{{Field: "city", Value: f.City}}
	case f.Province != "":
		q.Filters = []docstore.Filter{{Field: "province", Value: f.Province}}
	case f.Country != "":
		q.Filters = []docstore.Filter{{Field: "country", Value: f.Country}}
	}
	return q
}

// visible applies the client-side rules the store query cannot express in
// one round trip: expiry, the hidden flag, and the report threshold (the
// threshold check covers write-propagation lag on isHidden).
func (e *Engine) visible(s Status, includeHidden bool, nowMillis int64) bool {
	if s.ExpiresAt <= nowMillis {
		return false
	}
	if includeHidden {
		return true
	}
	return !s.IsHidden && s.ReportCount < e.threshold
}

func (e *Engine) filterSnapshot(docs []docstore.Document, includeHidden bool) []Status {
	now := e.now().UnixMilli()
	out := make([]Status, 0, len(docs))
	for _, doc := range docs {
		s := statusFromDoc(doc)
		if e.visible(s, includeHidden, now) {
			out = append(out, s)
		}
	}
	return out
}

// SubscribeToStatuses opens a live feed. Every store snapshot is normalized
// and re-filtered, then delivered whole to onStatuses; consumers replace
// their working set per call, not patch it. Query errors go to onError and do
// not tear the subscription down. The returned cancel is safe to call more
// than once.
func (e *Engine) SubscribeToStatuses(f FeedFilter, onStatuses func([]Status), onError func(error)) (cancel func()) {
	return e.docs.Subscribe(f.query(), func(docs []docstore.Document) {
		onStatuses(e.filterSnapshot(docs, f.IncludeHidden))
	}, onError)
}

// FetchStatuses is the one-shot form of SubscribeToStatuses.
func (e *Engine) FetchStatuses(ctx context.Context, f FeedFilter) ([]Status, error) {
	docs, err := e.docs.Query(ctx, f.query())
	if err != nil {
		return nil, err
	}
	return e.filterSnapshot(docs, f.IncludeHidden), nil
}

func repliesQuery(statusID string) docstore.Query {
	return docstore.Query{
		Collection: repliesCollection(statusID),
		OrderBy:    "createdAt",
	}
}

// SubscribeToStatusReplies watches one status's replies, oldest first, with
// no filtering.
func (e *Engine) SubscribeToStatusReplies(statusID string, onReplies func([]Reply), onError func(error)) (cancel func()) {
	return e.docs.Subscribe(repliesQuery(statusID), func(docs []docstore.Document) {
		replies := make([]Reply, 0, len(docs))
		for _, doc := range docs {
			replies = append(replies, replyFromDoc(doc))
		}
		onReplies(replies)
	}, onError)
}

// FetchStatusReplies is the one-shot form of SubscribeToStatusReplies.
func (e *Engine) FetchStatusReplies(ctx context.Context, statusID string) ([]Reply, error) {
	docs, err := e.docs.Query(ctx, repliesQuery(statusID))
	if err != nil {
		return nil, err
	}
	replies := make([]Reply, 0, len(docs))
	for _, doc := range docs {
		replies = append(replies, replyFromDoc(doc))
	}
	return replies, nil
}
