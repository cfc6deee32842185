package playlist

import (
	"strings"
	"sync"
)

// Change is a set of flags naming which parts of the state changed
type Change uint8

const (
	ChangeItems Change = 1 << iota
	ChangeIndex
	ChangePlaying
	ChangeMode
	ChangeSleep
)

// Has reports whether every flag in c2 is set
func (c Change) Has(c2 Change) bool { return c&c2 == c2 }

// Any reports whether at least one flag in c2 is set
func (c Change) Any(c2 Change) bool { return c&c2 != 0 }

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag Change
		name string
	}{
		{ChangeItems, "items"},
		{ChangeIndex, "index"},
		{ChangePlaying, "playing"},
		{ChangeMode, "mode"},
		{ChangeSleep, "sleep"},
	} {
		if c.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Subscription delivers coalesced change notifications. A signal on C means
// Take has something to return; the writer never blocks on a slow reader.
type Subscription struct {
	store *Store
	ch    chan struct{}

	mu      sync.Mutex
	pending Change
}

// Subscribe registers a new subscription
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{store: s, ch: make(chan struct{}, 1)}
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	return sub
}

// C is signalled when changes are pending
func (sub *Subscription) C() <-chan struct{} {
	return sub.ch
}

// Take returns and clears the accumulated changes
func (sub *Subscription) Take() Change {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	c := sub.pending
	sub.pending = 0
	return c
}

// Close stops delivery
func (sub *Subscription) Close() {
	sub.store.subsMu.Lock()
	delete(sub.store.subs, sub)
	sub.store.subsMu.Unlock()
}

func (s *Store) notify(changes Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for sub := range s.subs {
		sub.mu.Lock()
		sub.pending |= changes
		sub.mu.Unlock()
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}
