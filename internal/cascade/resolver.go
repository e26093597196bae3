// Package cascade maintains referential integrity between a registry
// and the records that reference its keys. When a key is deleted, every
// record pointing at it has its reference rewritten to nil in grouped
// batch writes.
package cascade

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/futari/internal/cachemanager"
	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/log"
)

var tracer = otel.Tracer("github.com/zjrosen/futari/internal/cascade")

// Resolver nullifies and counts references to registry keys within one
// pair-scoped collection (e.g. pairs/{pair}/schedules, field
// "category").
type Resolver struct {
	store      docstore.Store
	collection string
	field      string
	countTTL   time.Duration
	counts     *cachemanager.ReadThroughCache[string, int]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCountTTL overrides how long usage counts are cached. Counts only
// back a confirmation dialog, so staleness within the TTL is benign.
func WithCountTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.countTTL = ttl }
}

// NewResolver creates a resolver for one referencing collection.
func NewResolver(store docstore.Store, collection, field string, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		collection: collection,
		field:      field,
		countTTL:   cachemanager.DefaultExpiration,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.counts = cachemanager.NewReadThroughCache(
		cachemanager.NewInMemoryCacheManager[string, int](r.countTTL, cachemanager.DefaultCleanupInterval),
		r.countFresh,
	)
	return r
}

// CountUsages returns how many records currently reference key. The
// result may lag concurrent writes by up to the cache TTL; undercounting
// by a concurrent insert is acceptable for display purposes.
func (r *Resolver) CountUsages(ctx context.Context, key string) (int, error) {
	return r.counts.Get(ctx, key, r.countTTL)
}

func (r *Resolver) countFresh(ctx context.Context, key string) (int, error) {
	docs, err := r.store.QueryWhere(ctx, r.collection, r.field, key)
	if err != nil {
		return 0, fmt.Errorf("count usages of %s: %w", key, err)
	}
	return len(docs), nil
}

// NullifyReferences rewrites the reference field of every record
// pointing at key to nil. Matching sets larger than the store's batch
// limit are split into multiple grouped writes; if some groups fail the
// rest are still attempted and a PartialCascadeError reports what is
// left dangling. Returns the number of records nulled.
func (r *Resolver) NullifyReferences(ctx context.Context, key string) (int, error) {
	ctx, span := tracer.Start(ctx, "cascade.NullifyReferences")
	defer span.End()
	span.SetAttributes(
		attribute.String("cascade.collection", r.collection),
		attribute.String("cascade.key", key),
	)

	defer r.counts.Invalidate(ctx, key)

	docs, err := r.store.QueryWhere(ctx, r.collection, r.field, key)
	if err != nil {
		return 0, fmt.Errorf("find references to %s: %w", key, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	span.SetAttributes(attribute.Int("cascade.matches", len(docs)))

	nulled := 0
	remaining := 0
	var errs []error

	for start := 0; start < len(docs); start += docstore.BatchLimit {
		end := min(start+docstore.BatchLimit, len(docs))
		chunk := docs[start:end]

		updates := make([]docstore.Update, len(chunk))
		for i, doc := range chunk {
			updates[i] = docstore.Update{
				Path: doc.Path,
				Fields: docstore.Fields{
					r.field:     nil,
					"updatedAt": docstore.ServerTimestamp,
				},
			}
		}

		if err := r.store.BatchUpdate(ctx, updates); err != nil {
			log.ErrorErr(log.CatCascade, "nullify batch failed", err,
				"collection", r.collection, "key", key, "size", len(chunk))
			remaining += len(chunk)
			errs = append(errs, err)
			continue
		}
		nulled += len(chunk)
	}

	if len(errs) > 0 {
		return nulled, &PartialCascadeError{
			Key:       key,
			Nulled:    nulled,
			Remaining: remaining,
			Errs:      errs,
		}
	}

	log.Info(log.CatCascade, "references nulled",
		"collection", r.collection, "key", key, "count", nulled)
	return nulled, nil
}

// Repair scans the whole collection and nullifies references to keys
// the live registry no longer contains. A crash between a registry
// deletion and its cascade leaves such dangling references; at read
// time they are equivalent to nil, and Repair makes that durable.
// Returns the number of records repaired.
func (r *Resolver) Repair(ctx context.Context, isLive func(key string) bool) (int, error) {
	ctx, span := tracer.Start(ctx, "cascade.Repair")
	defer span.End()
	span.SetAttributes(attribute.String("cascade.collection", r.collection))

	docs, err := r.store.List(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", r.collection, err)
	}

	dangling := make(map[string][]docstore.Document)
	for _, doc := range docs {
		ref, ok := doc.Fields[r.field].(string)
		if !ok || ref == "" || isLive(ref) {
			continue
		}
		dangling[ref] = append(dangling[ref], doc)
	}

	repaired := 0
	for key, refs := range dangling {
		log.Warn(log.CatCascade, "dangling references found",
			"collection", r.collection, "key", key, "count", len(refs))
		n, err := r.NullifyReferences(ctx, key)
		repaired += n
		if err != nil {
			return repaired, err
		}
	}
	return repaired, nil
}
