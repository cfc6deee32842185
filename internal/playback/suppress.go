package playback

import (
	"slices"

	"github.com/cantoplayer/canto/internal/domain"
)

// expect registers an echo for a programmatic widget call
func (s *Synchronizer) expect(kind domain.EventKind, index int) {
	s.nextToken++
	s.expected = append(s.expected, expectation{
		token:    s.nextToken,
		kind:     kind,
		index:    index,
		deadline: s.now().Add(s.opts.SuppressWindow),
	})
}

// consume removes the oldest live expectation matching ev and reports
// whether there was one
func (s *Synchronizer) consume(ev domain.WidgetEvent) bool {
	s.prune()
	i := slices.IndexFunc(s.expected, func(e expectation) bool {
		if e.kind != ev.Kind {
			return false
		}
		return ev.Kind != domain.EventListSwitch || e.index == ev.Index
	})
	if i == -1 {
		return false
	}
	s.expected = slices.Delete(s.expected, i, i+1)
	return true
}

// prune drops expectations whose window has passed
func (s *Synchronizer) prune() {
	now := s.now()
	s.expected = slices.DeleteFunc(s.expected, func(e expectation) bool {
		return now.After(e.deadline)
	})
}

func (s *Synchronizer) dropExpectations(kind domain.EventKind) {
	s.expected = slices.DeleteFunc(s.expected, func(e expectation) bool {
		return e.kind == kind
	})
}

// pending returns the newest live transport or list expectation
func (s *Synchronizer) pending(match func(expectation) bool) (expectation, bool) {
	s.prune()
	for i := len(s.expected) - 1; i >= 0; i-- {
		if match(s.expected[i]) {
			return s.expected[i], true
		}
	}
	return expectation{}, false
}

// widgetPaused is the widget's transport state, counting calls whose echo
// has not arrived yet
func (s *Synchronizer) widgetPaused() bool {
	e, ok := s.pending(func(e expectation) bool {
		return e.kind == domain.EventPlay || e.kind == domain.EventPause
	})
	if ok {
		return e.kind == domain.EventPause
	}
	return s.widget.Paused()
}

// widgetIndex is the widget's list index, counting a switch whose echo has not arrived yet
func (s *Synchronizer) widgetIndex() int {
	e, ok := s.pending(func(e expectation) bool {
		return e.kind == domain.EventListSwitch
	})
	if ok {
		return e.index
	}
	return s.widget.Index()
}
