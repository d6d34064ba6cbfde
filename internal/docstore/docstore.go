// Package docstore provides a small document-oriented storage abstraction:
// schemaless JSON documents addressed by collection path and id, single-document
// read-modify-write transactions retried on write conflict, and push-based
// snapshot subscriptions over ordered, filtered queries.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrExists   = errors.New("docstore: document already exists")
)

// Document is one stored record. Data values round-trip through JSON, so
// numeric fields may come back as float64 regardless of how they were written.
type Document struct {
	Collection string
	ID         string
	Data       map[string]any
}

// Filter is a server-side equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Bound is a numeric range condition on a top-level field.
// Op is one of "<=" or ">=".
type Bound struct {
	Field string
	Op    string
	Value float64
}

// Query selects documents from a single collection. OrderBy and Bound fields
// must hold numeric values.
type Query struct {
	Collection string
	Filters    []Filter
	Bound      *Bound
	OrderBy    string
	Descending bool
	Limit      int
}

// Tx is the handle passed to a transaction callback. It addresses the single
// document the transaction was opened on.
type Tx interface {
	// Get returns the document data, or ErrNotFound.
	Get() (map[string]any, error)
	// Set replaces the document data (creating the document if absent).
	Set(data map[string]any) error
	// Delete removes the document.
	Delete() error
}

// Store is the document store consumed by the status engine.
type Store interface {
	// Create writes a new document, failing with ErrExists if the id is taken.
	Create(ctx context.Context, collection, id string, data map[string]any) error

	// Get returns a document's data, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]any, error)

	// Set writes a document unconditionally (upsert).
	Set(ctx context.Context, collection, id string, data map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Query runs a one-shot query.
	Query(ctx context.Context, q Query) ([]Document, error)

	// RunTransaction runs fn against the document at (collection, id) with
	// serializable isolation. fn may be invoked more than once: the store
	// retries the whole callback on write conflict, so fn must be free of
	// side effects beyond the Tx calls themselves.
	RunTransaction(ctx context.Context, collection, id string, fn func(Tx) error) error

	// Subscribe opens a live query. onSnapshot receives the full result set
	// each time it changes; onError receives query failures without tearing
	// the subscription down. The returned cancel is idempotent and stops all
	// future delivery.
	Subscribe(q Query, onSnapshot func([]Document), onError func(error)) (cancel func())
}

// matches reports whether data satisfies the query's filters and bound.
func (q Query) matches(data map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := data[f.Field]
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	if q.Bound != nil {
		n, ok := asFloat(data[q.Bound.Field])
		if !ok {
			return false
		}
		switch q.Bound.Op {
		case "<=":
			if n > q.Bound.Value {
				return false
			}
		case ">=":
			if n < q.Bound.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// evaluate applies a query to an unordered document slice in memory. The GORM
// store pushes the same semantics down to SQL; the memory store and the
// subscription pollers share this path.
func (q Query) evaluate(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.matches(d.Data) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := asFloat(out[i].Data[q.OrderBy])
			b, _ := asFloat(out[j].Data[q.OrderBy])
			if q.Descending {
				return a > b
			}
			return a < b
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
