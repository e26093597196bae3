// Package testutil provides fixtures for tests that need a memory
// document store pre-seeded with pair documents.
package testutil

import (
	"fmt"
	"time"

	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/pair"
	"github.com/zjrosen/futari/internal/registry"
)

// RegistryDoc builds the persisted document for one registry, entry by
// entry. Order follows insertion unless overridden with WithOrder.
type RegistryDoc struct {
	kind   registry.Kind
	labels map[string]any
	order  []any
}

// NewRegistryDoc starts an empty registry document for the kind.
func NewRegistryDoc(kind registry.Kind) *RegistryDoc {
	return &RegistryDoc{
		kind:   kind,
		labels: make(map[string]any),
	}
}

// WithEntry adds one labeled key at the end of the order.
func (d *RegistryDoc) WithEntry(key registry.Key, label string) *RegistryDoc {
	d.labels[string(key)] = label
	d.order = append(d.order, string(key))
	return d
}

// WithOrder replaces the order outright. Use it to build documents
// whose order disagrees with the label set.
func (d *RegistryDoc) WithOrder(keys ...registry.Key) *RegistryDoc {
	d.order = nil
	for _, k := range keys {
		d.order = append(d.order, string(k))
	}
	return d
}

// Fields returns the document in its persisted shape.
func (d *RegistryDoc) Fields() docstore.Fields {
	return docstore.Fields{
		"labels":    d.labels,
		"_order":    d.order,
		"updatedAt": time.Now(),
	}
}

// SeedInto writes the document into the memory store without counting
// as a write or notifying subscribers.
func (d *RegistryDoc) SeedInto(docs *docstore.Memory, pairID pair.ID) {
	docs.Seed(pair.SettingsDoc(pairID, d.kind.SettingsDoc()), d.Fields())
}

// SeedReference seeds one record in the kind's referencing collection
// pointing at key. A nil key seeds an unreferenced record.
func SeedReference(docs *docstore.Memory, pairID pair.ID, kind registry.Kind, docID string, key registry.Key) {
	var ref any
	if key != "" {
		ref = string(key)
	}
	docs.Seed(
		fmt.Sprintf("%s/%s", pair.Collection(pairID, kind.Collection()), docID),
		docstore.Fields{kind.ReferenceField(): ref},
	)
}
