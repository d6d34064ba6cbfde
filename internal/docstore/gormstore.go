package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	txMaxAttempts = 5
	pollInterval  = 2 * time.Second
)

// docRow is the single-table representation of a document.
type docRow struct {
	Collection string         `gorm:"primaryKey;size:255"`
	DocID      string         `gorm:"primaryKey;size:255"`
	Data       datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time
}

func (docRow) TableName() string { return "documents" }

// fieldPattern guards JSON field names interpolated into SQL expressions.
var fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// GormStore implements Store on a relational database through GORM, storing
// documents as JSON rows. Works against PostgreSQL (production) and the
// cgo-free SQLite driver (dev/test); JSON extraction syntax differs per
// dialect, everything else is shared.
type GormStore struct {
	db       *gorm.DB
	postgres bool

	mu       sync.Mutex
	watchers map[int]*gormWatcher
	next     int
}

type gormWatcher struct {
	collection string
	wake       chan struct{}
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&docRow{}); err != nil {
		return nil, fmt.Errorf("docstore migration failed: %w", err)
	}
	return &GormStore{
		db:       db,
		postgres: db.Dialector.Name() == "postgres",
		watchers: make(map[int]*gormWatcher),
	}, nil
}

func (s *GormStore) Create(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	row := docRow{Collection: collection, DocID: id, Data: raw}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return ErrExists
		}
		return err
	}
	s.notify(collection)
	return nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var row docRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRow(row)
}

func (s *GormStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	row := docRow{Collection: collection, DocID: id, Data: raw}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return err
	}
	s.notify(collection)
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&docRow{}).Error
	if err != nil {
		return err
	}
	s.notify(collection)
	return nil
}

func (s *GormStore) Query(ctx context.Context, q Query) ([]Document, error) {
	tx := s.db.WithContext(ctx).Model(&docRow{}).Where("collection = ?", q.Collection)

	for _, f := range q.Filters {
		expr, err := s.jsonText(f.Field)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr+" = ?", fmt.Sprint(f.Value))
	}
	if q.Bound != nil {
		if q.Bound.Op != "<=" && q.Bound.Op != ">=" {
			return nil, fmt.Errorf("docstore: unsupported bound op %q", q.Bound.Op)
		}
		expr, err := s.jsonNumber(q.Bound.Field)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(expr+" "+q.Bound.Op+" ?", q.Bound.Value)
	}
	if q.OrderBy != "" {
		expr, err := s.jsonNumber(q.OrderBy)
		if err != nil {
			return nil, err
		}
		dir := " ASC"
		if q.Descending {
			dir = " DESC"
		}
		tx = tx.Order(expr + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []docRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		data, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Collection: row.Collection, ID: row.DocID, Data: data})
	}
	return docs, nil
}

// jsonText returns the dialect-specific SQL expression extracting a JSON
// field as text. Field names are validated before interpolation.
func (s *GormStore) jsonText(field string) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("docstore: invalid field name %q", field)
	}
	if s.postgres {
		return "data ->> '" + field + "'", nil
	}
	return "json_extract(data, '$." + field + "')", nil
}

// jsonNumber is jsonText with a numeric cast, for bounds and ordering.
func (s *GormStore) jsonNumber(field string) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("docstore: invalid field name %q", field)
	}
	if s.postgres {
		return "(data ->> '" + field + "')::numeric", nil
	}
	return "CAST(json_extract(data, '$." + field + "') AS NUMERIC)", nil
}

type gormTx struct {
	data    map[string]any
	exists  bool
	deleted bool
	dirty   bool
}

func (t *gormTx) Get() (map[string]any, error) {
	if !t.exists || t.deleted {
		return nil, ErrNotFound
	}
	return t.data, nil
}

func (t *gormTx) Set(data map[string]any) error {
	t.data = data
	t.exists = true
	t.deleted = false
	t.dirty = true
	return nil
}

func (t *gormTx) Delete() error {
	t.deleted = true
	t.dirty = true
	return nil
}

func (s *GormStore) RunTransaction(ctx context.Context, collection, id string, fn func(Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
			q := dbtx.Where("collection = ? AND doc_id = ?", collection, id)
			if s.postgres {
				// Row lock serializes concurrent writers on the same document.
				// SQLite has no FOR UPDATE; its writer lock covers the whole DB.
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}

			t := &gormTx{}
			var row docRow
			switch err := q.First(&row).Error; {
			case err == nil:
				data, err := decodeRow(row)
				if err != nil {
					return err
				}
				t.data = data
				t.exists = true
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return err
			}

			if err := fn(t); err != nil {
				return err
			}
			if !t.dirty {
				return nil
			}
			if t.deleted {
				return dbtx.Where("collection = ? AND doc_id = ?", collection, id).Delete(&docRow{}).Error
			}
			raw, err := json.Marshal(t.data)
			if err != nil {
				return fmt.Errorf("encode document: %w", err)
			}
			return dbtx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
				UpdateAll: true,
			}).Create(&docRow{Collection: collection, DocID: id, Data: raw}).Error
		})
		if err == nil {
			s.notify(collection)
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return fmt.Errorf("docstore: transaction retries exhausted: %w", lastErr)
}

// retryable reports whether the error is a write conflict worth re-running
// the transaction for.
func retryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "40001") || // serialization_failure
		strings.Contains(msg, "40P01") || // deadlock_detected
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func (s *GormStore) Subscribe(q Query, onSnapshot func([]Document), onError func(error)) func() {
	ctx, cancelCtx := context.WithCancel(context.Background())
	w := &gormWatcher{collection: q.Collection, wake: make(chan struct{}, 1)}

	s.mu.Lock()
	key := s.next
	s.next++
	s.watchers[key] = w
	s.mu.Unlock()

	var once sync.Once
	stop := make(chan struct{})

	go func() {
		// The limiter paces re-queries when commits arrive in bursts; the
		// ticker catches writes from other processes sharing the database.
		limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var lastFP uint64
		first := true
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			docs, err := s.Query(ctx, q)
			select {
			case <-stop:
				return
			default:
			}
			if err != nil {
				if onError != nil {
					onError(err)
				}
			} else if fp := fingerprint(docs); first || fp != lastFP {
				onSnapshot(docs)
				lastFP = fp
				first = false
			}

			select {
			case <-stop:
				return
			case <-w.wake:
			case <-ticker.C:
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
			cancelCtx()
			s.mu.Lock()
			delete(s.watchers, key)
			s.mu.Unlock()
		})
	}
}

// notify wakes pollers watching the written collection.
func (s *GormStore) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		if w.collection == collection {
			select {
			case w.wake <- struct{}{}:
			default:
			}
		}
	}
}

func decodeRow(row docRow) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", row.Collection, row.DocID, err)
	}
	return data, nil
}

func fingerprint(docs []Document) uint64 {
	h := fnv.New64a()
	for _, d := range docs {
		h.Write([]byte(d.ID))
		if raw, err := json.Marshal(d.Data); err == nil {
			h.Write(raw)
		}
		h.Write([]byte{0})
	}
	return h.Sum64()
}
