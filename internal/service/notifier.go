package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/txplore/txplore"
)

// Handler consumes events delivered to one subscription.
type Handler func(txplore.Event)

type subscription struct {
	scope   Scope
	handler Handler
	queue   pond.Pool // concurrency 1, preserves publish order
	closed  atomic.Bool
}

// Notifier is the in-process change bus. Delivery is at-most-once per
// listener subscribed at publish time; there is no buffering or replay
// for late subscribers. Events for the same topic reach a given
// subscription in publish order. A slow handler delays only its own
// subscription.
type Notifier struct {
	pool   pond.Pool
	topics *xsync.Map[string, *xsync.Map[uint64, *subscription]]
	nextID atomic.Uint64
	closed atomic.Bool
}

func NewNotifier() *Notifier {
	return &Notifier{
		pool:   pond.NewPool(64, pond.WithQueueSize(4096), pond.WithNonBlocking(true)),
		topics: xsync.NewMap[string, *xsync.Map[uint64, *subscription]](),
	}
}

// Publish fans ev out to every current subscriber of topic whose scope
// matches. Fire and forget: the caller never learns about slow or
// already-cancelled listeners.
func (n *Notifier) Publish(ctx context.Context, topic string, ev txplore.Event) {
	if n.closed.Load() {
		return
	}

	ev.Topic = topic

	subs, ok := n.topics.Load(topic)
	if !ok {
		return
	}

	subs.Range(func(_ uint64, sub *subscription) bool {
		if sub.closed.Load() || !sub.scope.Matches(ev) {
			return true
		}
		sub.queue.Submit(func() {
			if sub.closed.Load() {
				return
			}
			sub.handler(ev)
		})
		return true
	})
}

// Subscribe registers handler for events on topic that match scope and
// returns a cancel function. Cancel is idempotent and safe to call
// after the notifier has shut down; any event still queued for the
// subscription when cancel returns is dropped.
func (n *Notifier) Subscribe(topic string, scope Scope, handler Handler) func() {
	if n.closed.Load() {
		return func() {}
	}

	subs, _ := n.topics.LoadOrStore(topic, xsync.NewMap[uint64, *subscription]())

	id := n.nextID.Add(1)
	sub := &subscription{
		scope:   scope,
		handler: handler,
		queue:   n.pool.NewSubpool(1),
	}
	subs.Store(id, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.closed.Store(true)
			subs.Delete(id)
		})
	}
}

// Close tears down every subscription and waits for in-flight
// deliveries to drain. Publishing after Close is a no-op.
func (n *Notifier) Close() {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}

	n.topics.Range(func(topic string, subs *xsync.Map[uint64, *subscription]) bool {
		subs.Range(func(id uint64, sub *subscription) bool {
			sub.closed.Store(true)
			subs.Delete(id)
			return true
		})
		n.topics.Delete(topic)
		return true
	})

	n.pool.StopAndWait()
}
