package player

import (
	"sync"

	"github.com/cantoplayer/canto/internal/domain"
)

// eventQueue delivers widget events in order without ever blocking the
// producer. A widget method that emits an event may be called by the same
// goroutine that drains Events.
type eventQueue struct {
	mu     sync.Mutex
	buf    []domain.WidgetEvent
	closed bool

	signal chan struct{}
	out    chan domain.WidgetEvent
	done   chan struct{}
	once   sync.Once
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		signal: make(chan struct{}, 1),
		out:    make(chan domain.WidgetEvent),
		done:   make(chan struct{}),
	}
	go q.pump()
	return q
}

func (q *eventQueue) push(ev domain.WidgetEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.buf) == 0 {
			q.mu.Unlock()
			select {
			case <-q.signal:
				continue
			case <-q.done:
				return
			}
		}
		ev := q.buf[0]
		q.buf = q.buf[1:]
		q.mu.Unlock()

		select {
		case q.out <- ev:
		case <-q.done:
			return
		}
	}
}

// close drops undelivered events and closes the output channel
func (q *eventQueue) close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.buf = nil
		q.mu.Unlock()
		close(q.done)
	})
}
