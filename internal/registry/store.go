package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/futari/internal/cascade"
	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/log"
	"github.com/zjrosen/futari/internal/pair"
	"github.com/zjrosen/futari/internal/pubsub"
)

var tracer = otel.Tracer("github.com/zjrosen/futari/internal/registry")

// ErrAlreadyOpen is returned by Open on a store that is already open.
var ErrAlreadyOpen = errors.New("registry: store already open")

// State is the lifecycle of one store instance.
// Uninitialized → Loading → Ready; once Ready, every remote change
// transitions Ready → Ready, never back to Loading.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Store is the single source of truth for one pair's registry of one
// kind. It bridges the persisted document and the in-memory snapshot:
// mutations write to the document store first and apply locally only
// after the store acknowledges, and remote changes made by the partner
// flow back in through the subscription bridge.
//
// Writes are field-level merges: renaming labels touches only the
// "labels" field and reordering only "_order", so the two most common
// concurrent edits from the two partners commute instead of silently
// reverting each other.
type Store struct {
	docs     docstore.Store
	pairID   pair.ID
	kind     Kind
	path     string
	resolver *cascade.Resolver

	mu      sync.RWMutex
	state   State
	current Registry

	broker    *pubsub.Broker[Registry]
	bridge    *bridge
	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	cascadeOpts []cascade.Option
}

// WithUsageCountTTL overrides how long usage counts are cached.
func WithUsageCountTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.cascadeOpts = append(c.cascadeOpts, cascade.WithCountTTL(ttl))
	}
}

// NewStore creates a closed store for one (pair, kind). The pair id
// comes from the auth layer; the store never resolves it itself.
func NewStore(docs docstore.Store, pairID pair.ID, kind Kind, opts ...StoreOption) *Store {
	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store{
		docs:   docs,
		pairID: pairID,
		kind:   kind,
		path:   pair.SettingsDoc(pairID, kind.SettingsDoc()),
		resolver: cascade.NewResolver(
			docs,
			pair.Collection(pairID, kind.Collection()),
			kind.ReferenceField(),
			cfg.cascadeOpts...,
		),
		broker: pubsub.NewBroker[Registry](),
		ready:  make(chan struct{}),
	}
}

// Kind returns the registry kind this store manages.
func (s *Store) Kind() Kind { return s.kind }

// Pair returns the owning pair.
func (s *Store) Pair() pair.ID { return s.pairID }

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Open subscribes to the registry document and blocks until the first
// snapshot arrives or ctx is done. It never fails because of document
// shape: an absent or malformed document degrades to the compiled-in
// defaults.
func (s *Store) Open(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "registry.Open")
	defer span.End()
	span.SetAttributes(
		attribute.String("registry.kind", string(s.kind)),
		attribute.String("registry.pair", string(s.pairID)),
	)

	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.state = StateLoading
	s.mu.Unlock()

	s.bridge = openBridge(s.docs, s.path, s.kind, s.applySnapshot, func(error) {
		// The bridge already logged the stream failure. The store stays
		// in its current state; it never regresses to Loading.
	})

	select {
	case <-s.ready:
		log.Info(log.CatStore, "registry loaded",
			"kind", s.kind, "pair", s.pairID, "entries", s.Snapshot().Len())
		return nil
	case <-ctx.Done():
		s.bridge.close()
		return ctx.Err()
	}
}

// Close tears down the subscription and the observer broker. Safe to
// call more than once; a write already in flight completes or fails on
// its own.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.bridge != nil {
			s.bridge.close()
		}
		s.broker.Close()
	})
}

// applySnapshot installs a reconciled registry coming from the bridge.
func (s *Store) applySnapshot(reg Registry) {
	s.mu.Lock()
	s.current = reg
	s.state = StateReady
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.broker.Publish(pubsub.SnapshotEvent, reg.Clone())
}

// Snapshot returns a copy of the current registry. Only meaningful once
// the store is Ready.
func (s *Store) Snapshot() Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Watch returns a feed of registry snapshots for UI observers. The
// subscription must be cancelled when the observer unmounts.
func (s *Store) Watch() (<-chan pubsub.Event[Registry], *pubsub.Subscription) {
	return s.broker.Subscribe()
}

// snapshotReady returns the current registry or a NotFoundError when
// the store has not loaded yet.
func (s *Store) snapshotReady() (Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return Registry{}, &NotFoundError{Pair: string(s.pairID), Kind: s.kind}
	}
	return s.current.Clone(), nil
}

// SaveLabels persists a new label map, keeping the current order for
// whatever keys survive. Used for renames; the key set normally stays
// the same. Only the "labels" field is written, so a concurrent reorder
// by the partner is preserved. On WriteError the in-memory snapshot is
// unchanged.
func (s *Store) SaveLabels(ctx context.Context, labels map[Key]string) error {
	ctx, span := tracer.Start(ctx, "registry.SaveLabels")
	defer span.End()

	cur, err := s.snapshotReady()
	if err != nil {
		return err
	}

	newLabels := make(map[Key]string, len(labels))
	for k, v := range labels {
		newLabels[k] = v
	}

	err = s.docs.Update(ctx, s.path, docstore.Fields{
		fieldLabels:    labelsField(newLabels),
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return &WriteError{Op: "saveLabels", Err: err}
	}

	keys := make(map[Key]bool, len(newLabels))
	for k := range newLabels {
		keys[k] = true
	}
	s.applyLocal(func(r *Registry) {
		r.Labels = newLabels
		r.Order = normalizeOrder(keys, cur.Order, Default(s.kind).Order)
	})
	return nil
}

// Reorder persists a new ordering, leaving labels untouched. newOrder
// must be an exact permutation of the current key set; anything else is
// a caller bug and is rejected before any write.
func (s *Store) Reorder(ctx context.Context, newOrder []Key) error {
	ctx, span := tracer.Start(ctx, "registry.Reorder")
	defer span.End()

	cur, err := s.snapshotReady()
	if err != nil {
		return err
	}

	if !isPermutation(cur.Keys(), newOrder) {
		return ErrNotPermutation
	}
	order := append([]Key(nil), newOrder...)

	err = s.docs.Update(ctx, s.path, docstore.Fields{
		fieldOrder:     orderField(order),
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return &WriteError{Op: "reorder", Err: err}
	}

	s.applyLocal(func(r *Registry) {
		r.Order = order
	})
	return nil
}

// Add creates a new entry with a fresh key, appended to the end of the
// order. A blank label falls back to the kind's placeholder. Fails with
// CapacityError at the kind's maximum, before any write.
func (s *Store) Add(ctx context.Context, label string) (Key, error) {
	ctx, span := tracer.Start(ctx, "registry.Add")
	defer span.End()

	cur, err := s.snapshotReady()
	if err != nil {
		return "", err
	}

	if cur.Len() >= s.kind.MaxEntries() {
		return "", &CapacityError{Kind: s.kind, Op: "add", Limit: s.kind.MaxEntries()}
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = s.kind.Placeholder()
	}

	key := NewKey()
	newLabels := cur.Clone().Labels
	newLabels[key] = label
	newOrder := append(cur.Order, key)

	err = s.docs.Update(ctx, s.path, docstore.Fields{
		fieldLabels:    labelsField(newLabels),
		fieldOrder:     orderField(newOrder),
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return "", &WriteError{Op: "add", Err: err}
	}

	s.applyLocal(func(r *Registry) {
		r.Labels = newLabels
		r.Order = newOrder
	})

	log.Info(log.CatStore, "entry added", "kind", s.kind, "key", key)
	return key, nil
}

// Delete removes an entry and cascades: every referencing record has
// its reference rewritten to nil. When records still reference the key
// and confirmed is false, Delete fails with InUseError so the UI can
// ask the user first.
//
// The registry write and the cascade are independent; if the cascade
// partially fails the registry deletion has still committed, and the
// returned PartialCascadeError describes the dangling references, which
// Repair can clean up later.
func (s *Store) Delete(ctx context.Context, key Key, confirmed bool) error {
	ctx, span := tracer.Start(ctx, "registry.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("registry.key", string(key)))

	cur, err := s.snapshotReady()
	if err != nil {
		return err
	}

	if cur.Len() <= s.kind.MinEntries() {
		return &CapacityError{Kind: s.kind, Op: "delete", Limit: s.kind.MinEntries()}
	}
	if !cur.Has(key) {
		return fmt.Errorf("delete %s: %w", key, ErrUnknownKey)
	}

	usage, err := s.resolver.CountUsages(ctx, string(key))
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if usage > 0 && !confirmed {
		return &InUseError{Key: key, Count: usage}
	}

	newLabels := cur.Clone().Labels
	delete(newLabels, key)
	newOrder := make([]Key, 0, len(cur.Order))
	for _, k := range cur.Order {
		if k != key {
			newOrder = append(newOrder, k)
		}
	}

	err = s.docs.Update(ctx, s.path, docstore.Fields{
		fieldLabels:    labelsField(newLabels),
		fieldOrder:     orderField(newOrder),
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return &WriteError{Op: "delete", Err: err}
	}

	s.applyLocal(func(r *Registry) {
		r.Labels = newLabels
		r.Order = newOrder
	})

	nulled, err := s.resolver.NullifyReferences(ctx, string(key))
	if err != nil {
		log.ErrorErr(log.CatStore, "cascade after delete incomplete", err,
			"kind", s.kind, "key", key, "nulled", nulled)
		return err
	}

	log.Info(log.CatStore, "entry deleted", "kind", s.kind, "key", key, "cascaded", nulled)
	return nil
}

// UsageCount reports how many records currently reference key.
func (s *Store) UsageCount(ctx context.Context, key Key) (int, error) {
	return s.resolver.CountUsages(ctx, string(key))
}

// Repair nullifies references to keys the registry no longer contains,
// closing the window left by a crash between a deletion and its
// cascade. Returns the number of records repaired.
func (s *Store) Repair(ctx context.Context) (int, error) {
	cur, err := s.snapshotReady()
	if err != nil {
		return 0, err
	}
	keys := cur.Keys()
	return s.resolver.Repair(ctx, func(key string) bool {
		return keys[Key(key)]
	})
}

// applyLocal updates the in-memory snapshot after an acknowledged write
// and notifies observers. The remote echo of the same write reconciles
// to the same state.
func (s *Store) applyLocal(mutate func(*Registry)) {
	s.mu.Lock()
	reg := s.current.Clone()
	mutate(&reg)
	reg.UpdatedAt = time.Now()
	s.current = reg
	s.mu.Unlock()

	s.broker.Publish(pubsub.SnapshotEvent, reg.Clone())
}

// labelsField converts the typed label map to the persisted shape.
func labelsField(labels map[Key]string) map[string]any {
	out := make(map[string]any, len(labels))
	for k, v := range labels {
		out[string(k)] = v
	}
	return out
}

// orderField converts the typed order to the persisted shape.
func orderField(order []Key) []string {
	out := make([]string, len(order))
	for i, k := range order {
		out[i] = string(k)
	}
	return out
}
