package docstore

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zjrosen/futari/internal/log"
)

// Firestore adapts a Cloud Firestore client to the Store interface.
// Retry and reconnection on transient network loss are handled by the
// underlying client; this adapter only translates shapes.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore wraps an existing Firestore client.
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

var _ Store = (*Firestore)(nil)

// Get implements Store.
func (f *Firestore) Get(ctx context.Context, path string) (Document, error) {
	snap, err := f.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{Path: path}, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", path, err)
	}
	return toDocument(path, snap), nil
}

// Set implements Store.
func (f *Firestore) Set(ctx context.Context, path string, fields Fields) error {
	if _, err := f.client.Doc(path).Set(ctx, toFirestore(fields)); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Update implements Store. Only the named top-level fields are
// written, each replaced wholesale (no deep merge), and the document is
// created when absent. Explicit field paths rather than MergeAll keep
// the semantics identical to the in-memory store.
func (f *Firestore) Update(ctx context.Context, path string, fields Fields) error {
	paths := make([]firestore.FieldPath, 0, len(fields))
	for k := range fields {
		paths = append(paths, firestore.FieldPath{k})
	}
	if _, err := f.client.Doc(path).Set(ctx, toFirestore(fields), firestore.Merge(paths...)); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

// Subscribe implements Store. A goroutine pumps the snapshot listener
// until the subscription is cancelled or the stream fails.
func (f *Firestore) Subscribe(path string, onChange func(Document), onError func(error)) CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	snaps := f.client.Doc(path).Snapshots(ctx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				log.ErrorErr(log.CatDocstore, "snapshot stream failed", err, "path", path)
				onError(err)
				return
			}
			if !snap.Exists() {
				onChange(Document{Path: path})
				continue
			}
			onChange(toDocument(path, snap))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

// QueryWhere implements Store.
func (f *Firestore) QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error) {
	iter := f.client.Collection(collection).Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("query %s where %s == %v: %w", collection, field, value, err)
		}
		out = append(out, toDocument(collection+"/"+snap.Ref.ID, snap))
	}
}

// List implements Store.
func (f *Firestore) List(ctx context.Context, collection string) ([]Document, error) {
	iter := f.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		out = append(out, toDocument(collection+"/"+snap.Ref.ID, snap))
	}
}

// BatchUpdate implements Store. The group commits atomically.
func (f *Firestore) BatchUpdate(ctx context.Context, updates []Update) error {
	if len(updates) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(updates), BatchLimit)
	}

	batch := f.client.Batch()
	for _, u := range updates {
		paths := make([]firestore.FieldPath, 0, len(u.Fields))
		for k := range u.Fields {
			paths = append(paths, firestore.FieldPath{k})
		}
		batch.Set(f.client.Doc(u.Path), toFirestore(u.Fields), firestore.Merge(paths...))
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("batch commit (%d updates): %w", len(updates), err)
	}
	return nil
}

func toDocument(path string, snap *firestore.DocumentSnapshot) Document {
	return Document{
		Path:     path,
		Fields:   Fields(snap.Data()),
		Exists:   true,
		UpdateAt: snap.UpdateTime,
	}
}

// toFirestore swaps the package's ServerTimestamp sentinel for the
// Firestore one.
func toFirestore(fields Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}
