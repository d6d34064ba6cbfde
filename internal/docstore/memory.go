package docstore

import (
	"context"
	"sync"
)

// Memory is a map-backed Store. It is the default for tests and serializes
// every transaction behind a single mutex, which trivially satisfies the
// conflict-retry contract (a transaction body never observes a concurrent
// writer, so it runs exactly once).
type Memory struct {
	mu    sync.Mutex
	colls map[string]map[string]map[string]any
	subs  map[int]*memSub
	next  int
}

func NewMemory() *Memory {
	return &Memory{
		colls: make(map[string]map[string]map[string]any),
		subs:  make(map[int]*memSub),
	}
}

func (m *Memory) Create(_ context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	coll, ok := m.colls[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		m.colls[collection] = coll
	}
	if _, ok := coll[id]; ok {
		m.mu.Unlock()
		return ErrExists
	}
	coll[id] = cloneMap(data)
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.colls[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMap(data), nil
}

func (m *Memory) Set(_ context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	coll, ok := m.colls[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		m.colls[collection] = coll
	}
	coll[id] = cloneMap(data)
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.colls[collection], id)
	m.mu.Unlock()
	m.notify(collection)
	return nil
}

func (m *Memory) Query(_ context.Context, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(q), nil
}

func (m *Memory) queryLocked(q Query) []Document {
	docs := make([]Document, 0, len(m.colls[q.Collection]))
	for id, data := range m.colls[q.Collection] {
		docs = append(docs, Document{Collection: q.Collection, ID: id, Data: cloneMap(data)})
	}
	return q.evaluate(docs)
}

type memTx struct {
	store      *Memory
	collection string
	id         string
	data       map[string]any
	exists     bool
	deleted    bool
	dirty      bool
}

func (t *memTx) Get() (map[string]any, error) {
	if !t.exists || t.deleted {
		return nil, ErrNotFound
	}
	return cloneMap(t.data), nil
}

func (t *memTx) Set(data map[string]any) error {
	t.data = cloneMap(data)
	t.exists = true
	t.deleted = false
	t.dirty = true
	return nil
}

func (t *memTx) Delete() error {
	t.deleted = true
	t.dirty = true
	return nil
}

func (m *Memory) RunTransaction(_ context.Context, collection, id string, fn func(Tx) error) error {
	m.mu.Lock()
	data, exists := m.colls[collection][id]
	tx := &memTx{store: m, collection: collection, id: id, exists: exists}
	if exists {
		tx.data = cloneMap(data)
	}
	if err := fn(tx); err != nil {
		m.mu.Unlock()
		return err
	}
	changed := tx.dirty
	if tx.dirty {
		coll, ok := m.colls[collection]
		if !ok {
			coll = make(map[string]map[string]any)
			m.colls[collection] = coll
		}
		if tx.deleted {
			delete(coll, id)
		} else {
			coll[id] = tx.data
		}
	}
	m.mu.Unlock()
	if changed {
		m.notify(collection)
	}
	return nil
}

type memSub struct {
	q          Query
	onSnapshot func([]Document)

	mu      sync.Mutex
	latest  []Document
	hasNext bool

	wake chan struct{}
	stop chan struct{}
	once sync.Once
}

// push stores the newest snapshot, coalescing any undelivered one. Snapshots
// are whole result sets, so delivering only the latest is sound.
func (s *memSub) push(snap []Document) {
	s.mu.Lock()
	s.latest = snap
	s.hasNext = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memSub) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		snap, ok := s.latest, s.hasNext
		s.hasNext = false
		s.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case <-s.stop:
			return
		default:
			s.onSnapshot(snap)
		}
	}
}

func (m *Memory) Subscribe(q Query, onSnapshot func([]Document), _ func(error)) func() {
	sub := &memSub{
		q:          q,
		onSnapshot: onSnapshot,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}

	m.mu.Lock()
	key := m.next
	m.next++
	m.subs[key] = sub
	initial := m.queryLocked(q)
	m.mu.Unlock()

	go sub.run()
	sub.push(initial)

	return func() {
		sub.once.Do(func() {
			close(sub.stop)
			m.mu.Lock()
			delete(m.subs, key)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) notify(collection string) {
	m.mu.Lock()
	type delivery struct {
		sub  *memSub
		snap []Document
	}
	var pending []delivery
	for _, sub := range m.subs {
		if sub.q.Collection == collection {
			pending = append(pending, delivery{sub, m.queryLocked(sub.q)})
		}
	}
	m.mu.Unlock()
	for _, d := range pending {
		d.sub.push(d.snap)
	}
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
