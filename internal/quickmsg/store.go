// Package quickmsg manages a pair's quick messages: the short list of
// canned chat strings offered as one-tap sends. Unlike the registries,
// quick messages are plain ordered strings with no keys and no
// referencing records, so the whole list lives in one settings document
// and saves are full replacements.
package quickmsg

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/log"
	"github.com/zjrosen/futari/internal/pair"
)

const (
	// MinMessages and MaxMessages bound the list size. Client-side
	// guards only, same as the registry bounds.
	MinMessages = 1
	MaxMessages = 12

	settingsDoc   = "quickMessages"
	fieldMessages = "messages"
)

// DefaultMessages is the compiled-in list used when a pair has never
// customized their quick messages.
var DefaultMessages = []string{
	"今から帰ります",
	"遅くなります",
	"ご飯炊いておいて",
	"買い物して帰ります",
	"お疲れ様",
	"了解",
}

// CapacityError is returned when a save would violate the size bounds.
type CapacityError struct {
	Size int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("quick messages must have between %d and %d entries, got %d",
		MinMessages, MaxMessages, e.Size)
}

// WriteError wraps a save the document store rejected.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("quick messages write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store holds one pair's quick messages, kept current through the
// document change stream like the registry stores.
type Store struct {
	docs   docstore.Store
	pairID pair.ID
	path   string

	mu      sync.RWMutex
	current []string

	cancel    docstore.CancelFunc
	closeOnce sync.Once
	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore creates a closed store for one pair.
func NewStore(docs docstore.Store, pairID pair.ID) *Store {
	return &Store{
		docs:   docs,
		pairID: pairID,
		path:   pair.SettingsDoc(pairID, settingsDoc),
		ready:  make(chan struct{}),
	}
}

// Open subscribes to the settings document and blocks until the first
// snapshot arrives or ctx is done. An absent or malformed document
// degrades to the defaults.
func (s *Store) Open(ctx context.Context) error {
	s.cancel = s.docs.Subscribe(s.path,
		func(doc docstore.Document) {
			messages := reconcile(doc)
			s.mu.Lock()
			s.current = messages
			s.mu.Unlock()
			s.readyOnce.Do(func() { close(s.ready) })
		},
		func(err error) {
			log.ErrorErr(log.CatQuickMsg, "quick message stream failed", err, "pair", s.pairID)
		},
	)

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}
}

// Close tears down the subscription. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Messages returns a copy of the current list.
func (s *Store) Messages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.current...)
}

// Save replaces the whole list. Blank entries are dropped before the
// bounds check; a list outside the bounds fails with CapacityError
// before any write.
func (s *Store) Save(ctx context.Context, messages []string) error {
	trimmed := make([]string, 0, len(messages))
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			trimmed = append(trimmed, m)
		}
	}
	if len(trimmed) < MinMessages || len(trimmed) > MaxMessages {
		return &CapacityError{Size: len(trimmed)}
	}

	err := s.docs.Update(ctx, s.path, docstore.Fields{
		fieldMessages: trimmed,
		"updatedAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		return &WriteError{Err: err}
	}

	s.mu.Lock()
	s.current = trimmed
	s.mu.Unlock()

	log.Info(log.CatQuickMsg, "quick messages saved", "pair", s.pairID, "count", len(trimmed))
	return nil
}

// Add appends one message to the end of the list.
func (s *Store) Add(ctx context.Context, message string) error {
	return s.Save(ctx, append(s.Messages(), message))
}

// Remove drops the message at index. Removing from a list already at
// the minimum fails with CapacityError before any write.
func (s *Store) Remove(ctx context.Context, index int) error {
	current := s.Messages()
	if index < 0 || index >= len(current) {
		return fmt.Errorf("quick message index %d out of range [0,%d)", index, len(current))
	}
	return s.Save(ctx, append(current[:index], current[index+1:]...))
}

// Reorder moves the message at index from to index to, shifting the
// rest.
func (s *Store) Reorder(ctx context.Context, from, to int) error {
	current := s.Messages()
	if from < 0 || from >= len(current) || to < 0 || to >= len(current) {
		return fmt.Errorf("quick message move %d->%d out of range [0,%d)", from, to, len(current))
	}
	msg := current[from]
	current = append(current[:from], current[from+1:]...)
	rest := append([]string(nil), current[to:]...)
	current = append(append(current[:to:to], msg), rest...)
	return s.Save(ctx, current)
}

// reconcile normalizes the persisted document: absence or garbage
// yields the defaults.
func reconcile(doc docstore.Document) []string {
	if !doc.Exists {
		return append([]string(nil), DefaultMessages...)
	}

	var messages []string
	switch val := doc.Fields[fieldMessages].(type) {
	case []string:
		messages = append(messages, val...)
	case []any:
		for _, v := range val {
			if s, ok := v.(string); ok {
				messages = append(messages, s)
			}
		}
	}

	if len(messages) == 0 {
		return append([]string(nil), DefaultMessages...)
	}
	return messages
}
