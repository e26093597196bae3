package registry

import (
	"sync"

	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/log"
)

// bridge adapts the document store's push-based change stream into
// reconciled Registry snapshots. One bridge runs per (pair, kind) while
// a store is open; close tears the subscription down exactly once.
//
// The bridge does not retry: reconnection and backoff on transient
// network loss belong to the store client underneath it.
type bridge struct {
	cancel docstore.CancelFunc
	once   sync.Once
}

func openBridge(docs docstore.Store, path string, kind Kind, onSnapshot func(Registry), onError func(error)) *bridge {
	b := &bridge{}
	b.cancel = docs.Subscribe(path,
		func(doc docstore.Document) {
			onSnapshot(Reconcile(kind, doc))
		},
		func(err error) {
			log.ErrorErr(log.CatBridge, "registry change stream failed", err,
				"path", path, "kind", kind)
			onError(err)
		},
	)
	return b
}

func (b *bridge) close() {
	b.once.Do(b.cancel)
}
