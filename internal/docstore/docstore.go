// Package docstore abstracts the hosted document database the app is a
// thin client over. Documents are addressed by slash-separated paths
// (collection/doc/collection/doc...), hold free-form field maps, and
// support point reads, full overwrites, field-level merge updates,
// grouped batch updates, equality queries, and live change
// subscriptions.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("docstore: document not found")

// BatchLimit is the maximum number of updates the store accepts in one
// grouped write. Callers with larger sets must chunk.
const BatchLimit = 500

// ServerTimestamp is a sentinel field value replaced by the store's own
// clock at commit time.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Fields is the free-form field map of one document.
type Fields map[string]any

// Document is a point-in-time view of one document.
type Document struct {
	Path     string
	Fields   Fields
	Exists   bool
	UpdateAt time.Time
}

// Update addresses one document and the fields to merge into it.
// Fields not named are left untouched.
type Update struct {
	Path   string
	Fields Fields
}

// CancelFunc tears down a subscription. Implementations must tolerate
// being called more than once.
type CancelFunc func()

// Store is the interface to the remote document database.
//
// All blocking calls take a context. Reconnection and backoff on
// transient network loss are the store client's concern; callers do not
// retry subscriptions themselves.
type Store interface {
	// Get performs a point read. Returns ErrNotFound when the document
	// does not exist.
	Get(ctx context.Context, path string) (Document, error)

	// Set overwrites the full document, creating it if absent.
	Set(ctx context.Context, path string, fields Fields) error

	// Update merges the given fields into the document, creating it if
	// absent. Fields not named keep their stored values.
	Update(ctx context.Context, path string, fields Fields) error

	// Subscribe delivers the current document immediately and again on
	// every subsequent change. onChange receives a Document with
	// Exists=false when the document is absent or deleted. onError
	// receives terminal subscription failures.
	Subscribe(path string, onChange func(Document), onError func(error)) CancelFunc

	// QueryWhere returns every document in the collection whose field
	// equals value.
	QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error)

	// List returns every document in the collection. Used by repair
	// passes that must inspect records regardless of field values.
	List(ctx context.Context, collection string) ([]Document, error)

	// BatchUpdate applies all updates as one atomic group. The group
	// must not exceed BatchLimit entries.
	BatchUpdate(ctx context.Context, updates []Update) error
}
