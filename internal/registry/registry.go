// Package registry implements the shared, user-customizable ordered
// label vocabularies a pair jointly owns: schedule categories and
// dinner-status options. Either partner can rename, reorder, add, or
// delete entries; other records (schedules, daily dinner statuses)
// reference entries by key and are cascaded to nil when their entry is
// deleted.
package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key is the opaque, stable identifier of one registry entry. Keys are
// never reused: user-created entries get a fresh random key, and the
// compiled-in defaults use fixed well-known keys.
type Key string

// NewKey generates a collision-resistant key for a user-created entry.
func NewKey() Key {
	return Key("c_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Registry is the in-memory view of one pair's vocabulary of one kind.
// Order is always an exact permutation of the Labels key set; every
// Registry handed out by this package satisfies that, whatever shape
// the persisted document had.
type Registry struct {
	Kind      Kind
	Labels    map[Key]string
	Order     []Key
	UpdatedAt time.Time
}

// Len returns the number of entries.
func (r Registry) Len() int { return len(r.Labels) }

// Label returns the display string for key and whether it exists.
func (r Registry) Label(key Key) (string, bool) {
	label, ok := r.Labels[key]
	return label, ok
}

// Has reports whether key is an entry of the registry.
func (r Registry) Has(key Key) bool {
	_, ok := r.Labels[key]
	return ok
}

// Keys returns the key set as a lookup map.
func (r Registry) Keys() map[Key]bool {
	keys := make(map[Key]bool, len(r.Labels))
	for k := range r.Labels {
		keys[k] = true
	}
	return keys
}

// Clone returns a deep copy.
func (r Registry) Clone() Registry {
	labels := make(map[Key]string, len(r.Labels))
	for k, v := range r.Labels {
		labels[k] = v
	}
	return Registry{
		Kind:      r.Kind,
		Labels:    labels,
		Order:     append([]Key(nil), r.Order...),
		UpdatedAt: r.UpdatedAt,
	}
}

// consistent reports whether Order is an exact permutation of the
// Labels key set.
func (r Registry) consistent() bool {
	if len(r.Order) != len(r.Labels) {
		return false
	}
	seen := make(map[Key]bool, len(r.Order))
	for _, k := range r.Order {
		if seen[k] {
			return false
		}
		if _, ok := r.Labels[k]; !ok {
			return false
		}
		seen[k] = true
	}
	return true
}

// normalizeOrder rebuilds an ordering for keys: entries of order that
// name a live key keep their position (duplicates dropped), then keys
// absent from order are appended following the default order, and any
// still-unplaced keys follow sorted so the result is deterministic.
func normalizeOrder(keys map[Key]bool, order, defaultOrder []Key) []Key {
	out := make([]Key, 0, len(keys))
	placed := make(map[Key]bool, len(keys))

	for _, k := range order {
		if keys[k] && !placed[k] {
			out = append(out, k)
			placed[k] = true
		}
	}
	for _, k := range defaultOrder {
		if keys[k] && !placed[k] {
			out = append(out, k)
			placed[k] = true
		}
	}

	var rest []Key
	for k := range keys {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

// isPermutation reports whether order is an exact permutation of keys.
func isPermutation(keys map[Key]bool, order []Key) bool {
	if len(order) != len(keys) {
		return false
	}
	seen := make(map[Key]bool, len(order))
	for _, k := range order {
		if !keys[k] || seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}
