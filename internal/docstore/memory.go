package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and by the CLI's
// --memory dry-run mode. It mirrors the hosted store's behavior:
// subscriptions see the current document immediately and on every
// change, batch updates apply atomically, and writes can be made to
// fail on demand.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Fields
	subs map[string]map[int]func(Document)
	next int

	writeErr        error // every write fails with this when set
	failAfterWrites int   // writes still allowed to succeed before writeErr applies
	writes          int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Fields),
		subs: make(map[string]map[int]func(Document)),
	}
}

var _ Store = (*Memory)(nil)

// FailWrites makes every subsequent write fail with err. Pass nil to
// restore normal operation.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
	m.failAfterWrites = 0
}

// FailWritesAfter lets n more writes succeed, then fails the rest with
// err. Used to exercise partially-applied cascades.
func (m *Memory) FailWritesAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
	m.failAfterWrites = n
}

// WriteCount reports how many writes have been accepted.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Seed stores fields at path without notifying subscribers or counting
// as a write. Test setup helper.
func (m *Memory) Seed(path string, fields Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = cloneFields(fields, time.Now())
}

func (m *Memory) checkWrite() error {
	if m.writeErr != nil {
		if m.failAfterWrites > 0 {
			m.failAfterWrites--
		} else {
			return m.writeErr
		}
	}
	m.writes++
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, path string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.docs[path]
	if !ok {
		return Document{Path: path}, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	return Document{Path: path, Fields: cloneFields(fields, time.Now()), Exists: true}, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, path string, fields Fields) error {
	m.mu.Lock()
	if err := m.checkWrite(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.docs[path] = cloneFields(fields, time.Now())
	notify := m.snapshotLocked(path)
	m.mu.Unlock()

	notify()
	return nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, path string, fields Fields) error {
	m.mu.Lock()
	if err := m.checkWrite(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mergeLocked(path, fields)
	notify := m.snapshotLocked(path)
	m.mu.Unlock()

	notify()
	return nil
}

// Delete removes the document at path, notifying subscribers with an
// Exists=false snapshot.
func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	if err := m.checkWrite(); err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.docs, path)
	notify := m.snapshotLocked(path)
	m.mu.Unlock()

	notify()
	return nil
}

// Subscribe implements Store. The current document is delivered before
// Subscribe returns.
func (m *Memory) Subscribe(path string, onChange func(Document), _ func(error)) CancelFunc {
	m.mu.Lock()
	id := m.next
	m.next++
	if m.subs[path] == nil {
		m.subs[path] = make(map[int]func(Document))
	}
	m.subs[path][id] = onChange
	doc := m.documentLocked(path)
	m.mu.Unlock()

	onChange(doc)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[path], id)
		})
	}
}

// QueryWhere implements Store. Matches documents directly inside the
// collection whose field equals value.
func (m *Memory) QueryWhere(_ context.Context, collection, field string, value any) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := collection + "/"
	var out []Document
	for path, fields := range m.docs {
		if !strings.HasPrefix(path, prefix) || strings.Contains(path[len(prefix):], "/") {
			continue
		}
		if fields[field] == value {
			out = append(out, Document{Path: path, Fields: cloneFields(fields, time.Now()), Exists: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := collection + "/"
	var out []Document
	for path, fields := range m.docs {
		if !strings.HasPrefix(path, prefix) || strings.Contains(path[len(prefix):], "/") {
			continue
		}
		out = append(out, Document{Path: path, Fields: cloneFields(fields, time.Now()), Exists: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// BatchUpdate implements Store. The whole group applies or none of it.
func (m *Memory) BatchUpdate(_ context.Context, updates []Update) error {
	if len(updates) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(updates), BatchLimit)
	}

	m.mu.Lock()
	if err := m.checkWrite(); err != nil {
		m.mu.Unlock()
		return err
	}
	notifiers := make([]func(), 0, len(updates))
	for _, u := range updates {
		m.mergeLocked(u.Path, u.Fields)
		notifiers = append(notifiers, m.snapshotLocked(u.Path))
	}
	m.mu.Unlock()

	for _, n := range notifiers {
		n()
	}
	return nil
}

func (m *Memory) mergeLocked(path string, fields Fields) {
	now := time.Now()
	existing, ok := m.docs[path]
	if !ok {
		existing = make(Fields)
		m.docs[path] = existing
	}
	for k, v := range cloneFields(fields, now) {
		existing[k] = v
	}
}

func (m *Memory) documentLocked(path string) Document {
	fields, ok := m.docs[path]
	if !ok {
		return Document{Path: path}
	}
	return Document{Path: path, Fields: cloneFields(fields, time.Now()), Exists: true}
}

// snapshotLocked captures the document and subscriber set so the
// notification can run after the lock is released. Callbacks may call
// back into the store without deadlocking.
func (m *Memory) snapshotLocked(path string) func() {
	doc := m.documentLocked(path)
	subs := make([]func(Document), 0, len(m.subs[path]))
	for _, fn := range m.subs[path] {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(doc)
		}
	}
}

// cloneFields deep-copies one level of nesting (field maps and string
// slices, the shapes the app stores) and resolves ServerTimestamp.
func cloneFields(fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case serverTimestamp:
			out[k] = now
		case Fields:
			inner := make(Fields, len(val))
			for ik, iv := range val {
				inner[ik] = iv
			}
			out[k] = inner
		case map[string]any:
			inner := make(map[string]any, len(val))
			for ik, iv := range val {
				inner[ik] = iv
			}
			out[k] = inner
		case []string:
			out[k] = append([]string(nil), val...)
		case []any:
			out[k] = append([]any(nil), val...)
		default:
			out[k] = v
		}
	}
	return out
}
