package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Backend with the same observable contract as the
// Firestore implementation. Tests across the repo use it so they can run
// without an emulator.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]interface{}
	nextID      int
	subs        map[int]*memorySub
	nextSub     int
}

type memorySub struct {
	collection string
	query      Query
	fn         func([]Document)
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]interface{}),
		subs:        make(map[int]*memorySub),
	}
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("doc-%04d", m.nextID)
	m.collection(collection)[id] = copyDoc(data)
	pending := m.pendingNotifications(collection)
	m.mu.Unlock()

	deliver(pending)
	return id, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.collection(collection)[id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Data: copyDoc(data)}, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	m.collection(collection)[id] = copyDoc(data)
	pending := m.pendingNotifications(collection)
	m.mu.Unlock()

	deliver(pending)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	existing, ok := m.collection(collection)[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("updating %s/%s: document not found", collection, id)
	}
	for k, v := range data {
		existing[k] = v
	}
	pending := m.pendingNotifications(collection)
	m.mu.Unlock()

	deliver(pending)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.collection(collection), id)
	pending := m.pendingNotifications(collection)
	m.mu.Unlock()

	deliver(pending)
	return nil
}

func (m *Memory) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run(collection, q), nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, q Query, fn func([]Document)) (func(), error) {
	m.mu.Lock()
	m.nextSub++
	key := m.nextSub
	m.subs[key] = &memorySub{collection: collection, query: q, fn: fn}
	initial := m.run(collection, q)
	m.mu.Unlock()

	// Initial snapshot fires immediately, like Firestore's onSnapshot.
	fn(initial)

	return func() {
		m.mu.Lock()
		delete(m.subs, key)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) collection(name string) map[string]map[string]interface{} {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]map[string]interface{})
		m.collections[name] = c
	}
	return c
}

// run evaluates a query. Callers must hold the lock.
func (m *Memory) run(collection string, q Query) []Document {
	var docs []Document
	for id, data := range m.collection(collection) {
		if !matches(data, q.Filters) {
			continue
		}
		docs = append(docs, Document{ID: id, Data: copyDoc(data)})
	}
	if q.OrderBy != "" {
		sort.Slice(docs, func(i, j int) bool {
			a, _ := docs[i].Data[q.OrderBy].(string)
			b, _ := docs[j].Data[q.OrderBy].(string)
			if q.Descending {
				return a > b
			}
			return a < b
		})
	} else {
		// Deterministic order for tests.
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	}
	return docs
}

type notification struct {
	fn   func([]Document)
	docs []Document
}

// pendingNotifications snapshots the result set for every subscriber of the
// collection. Callers must hold the lock; delivery happens after unlock so
// callbacks can safely re-enter the backend.
func (m *Memory) pendingNotifications(collection string) []notification {
	var pending []notification
	for _, sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		pending = append(pending, notification{fn: sub.fn, docs: m.run(collection, sub.query)})
	}
	return pending
}

func deliver(pending []notification) {
	for _, n := range pending {
		n.fn(n.docs)
	}
}

func matches(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		if data[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func copyDoc(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// MemoryUploader is an in-memory Uploader for tests.
type MemoryUploader struct {
	mu      sync.Mutex
	Bucket  string
	Objects map[string][]byte
}

// NewMemoryUploader returns an empty in-memory uploader.
func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{Bucket: "test-bucket", Objects: make(map[string][]byte)}
}

func (u *MemoryUploader) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	u.Objects[path] = buf
	return DownloadURL(u.Bucket, path), nil
}
