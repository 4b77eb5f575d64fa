// Package watch is an in-process publish/subscribe bus over the local
// store. Use cases and the sync engine publish an event after every write;
// UI-facing consumers subscribe and re-query on change, which turns one-shot
// reads into continuous streams.
package watch

import (
	"context"
	"sync"
)

// Kind names the entity collection an event refers to.
type Kind string

const (
	KindProfiles    Kind = "profiles"
	KindMedications Kind = "medications"
	KindIntakes     Kind = "intakes"
)

// Event signals that rows of one kind changed, scoped to a profile when the
// kind is profile-owned. Events carry no payload: subscribers re-read the
// store, so a dropped event only delays a refresh, never loses data.
type Event struct {
	Kind      Kind
	ProfileId string
}

type subscriber struct {
	ch    chan Event
	kinds map[Kind]struct{}
}

func (s *subscriber) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Watcher fans events out to subscribers. Sends never block: a subscriber
// whose buffer is full misses that event.
type Watcher struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[*subscriber]struct{})}
}

// Subscribe returns a channel of events for the given kinds (all kinds when
// none are given). The subscription ends and the channel is closed when ctx
// is cancelled.
func (w *Watcher) Subscribe(ctx context.Context, kinds ...Kind) <-chan Event {
	s := &subscriber{ch: make(chan Event, 16)}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}

	w.mu.Lock()
	w.subs[s] = struct{}{}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, s)
		w.mu.Unlock()
		close(s.ch)
	}()

	return s.ch
}

// Publish delivers the event to every interested subscriber.
func (w *Watcher) Publish(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for s := range w.subs {
		if !s.wants(e.Kind) {
			continue
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}
