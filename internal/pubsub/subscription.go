package pubsub

import "sync"

// Subscription is a handle that tears down one subscriber.
// Cancel is idempotent: the teardown function runs exactly once no
// matter how many callers race on it.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Cancel removes the subscriber and closes its channel.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
