package datastore

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

// Op is the kind of write that produced a change event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent describes one committed write.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Op         Op         `json:"op"`
	ID         string     `json:"id"`
	At         time.Time  `json:"at"`
}

// DefaultSubscriptionBuffer is the per-subscription event buffer.
const DefaultSubscriptionBuffer = 64

// Feed fans committed writes out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full loses the event and its drop count grows.
type Feed struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	closed  bool
	metrics *metrics.DatastoreMetrics
}

// NewFeed creates an empty feed. m may be nil.
func NewFeed(m *metrics.DatastoreMetrics) *Feed {
	return &Feed{subs: make(map[uint64]*Subscription), metrics: m}
}

// Subscription is a cancellable handle on the feed. Events stops delivering
// and its channel is closed once Cancel is called or the subscribing context
// ends.
type Subscription struct {
	id          uint64
	feed        *Feed
	collections []Collection
	events      chan ChangeEvent
	done        chan struct{}
	once        sync.Once
	dropped     atomic.Uint64
}

// Subscribe registers for events from the given collections, or from all
// collections when none are given.
func (f *Feed) Subscribe(ctx context.Context, buffer int, collections ...Collection) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	s := &Subscription{
		feed:        f,
		collections: slices.Clone(collections),
		events:      make(chan ChangeEvent, buffer),
		done:        make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		s.once.Do(func() {
			close(s.done)
			close(s.events)
		})
		return s
	}
	f.nextID++
	s.id = f.nextID
	f.subs[s.id] = s
	f.mu.Unlock()
	f.metrics.AddSubscribers(1)

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Cancel()
			case <-s.done:
			}
		}()
	}
	return s
}

// Events returns the event channel. It is closed after Cancel.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped returns the number of events lost to a full buffer.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		f := s.feed
		f.mu.Lock()
		_, registered := f.subs[s.id]
		delete(f.subs, s.id)
		close(s.done)
		close(s.events)
		f.mu.Unlock()
		if registered {
			f.metrics.AddSubscribers(-1)
		}
	})
}

func (s *Subscription) wants(c Collection) bool {
	return len(s.collections) == 0 || slices.Contains(s.collections, c)
}

// Publish delivers ev to every interested subscriber without blocking.
func (f *Feed) Publish(ev ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, s := range f.subs {
		if !s.wants(ev.Collection) {
			continue
		}
		select {
		case s.events <- ev:
		default:
			n := s.dropped.Add(1)
			f.metrics.IncDropped(string(ev.Collection))
			if n == 1 || n%100 == 0 {
				GetLogger().Warn("change feed subscriber is falling behind",
					logger.String("collection", string(ev.Collection)),
					logger.Int64("dropped", int64(n)))
			}
		}
	}
}

// Len returns the number of active subscriptions.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close cancels every subscription and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	subs := make([]*Subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}
