package player

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cantoplayer/canto/internal/domain"
)

// Memory is an in-process Widget. It renders nothing but keeps a track list
// and transport state and emits the events a real renderer would. The User*
// methods simulate interaction with the renderer's own controls.
type Memory struct {
	logger *slog.Logger
	queue  *eventQueue

	mu       sync.Mutex
	tracks   []domain.Track
	index    int
	paused   bool
	position time.Duration
	calls    []string
	closed   bool
}

var _ domain.Widget = (*Memory)(nil)

// NewMemory creates an empty, paused widget
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		logger: logger,
		queue:  newEventQueue(),
		index:  -1,
		paused: true,
	}
}

func (m *Memory) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrWidgetClosed
	}
	m.calls = append(m.calls, "play")
	m.setPaused(false)
	return nil
}

func (m *Memory) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrWidgetClosed
	}
	m.calls = append(m.calls, "pause")
	m.setPaused(true)
	return nil
}

func (m *Memory) Seek(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrWidgetClosed
	}
	m.calls = append(m.calls, fmt.Sprintf("seek %g", seconds))
	m.position = time.Duration(seconds * float64(time.Second))
	return nil
}

func (m *Memory) ClearList() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrWidgetClosed
	}
	m.calls = append(m.calls, "clear")
	m.tracks = nil
	m.index = -1
	m.position = 0
	return nil
}

func (m *Memory) AddTrack(track domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrWidgetClosed
	}
	m.calls = append(m.calls, "add "+track.Name)
	m.tracks = append(m.tracks, track)
	return nil
}

func (m *Memory) SwitchTrack(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrWidgetClosed
	}
	if index < 0 || index >= len(m.tracks) {
		return fmt.Errorf("switch to track %d of %d: out of range", index, len(m.tracks))
	}
	m.calls = append(m.calls, fmt.Sprintf("switch %d", index))
	m.switchTo(index)
	return nil
}

func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Memory) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Memory) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Memory) Events() <-chan domain.WidgetEvent {
	return m.queue.out
}

func (m *Memory) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.calls = append(m.calls, "destroy")
	m.queue.close()
	return nil
}

// Tracks returns a copy of the widget's track list
func (m *Memory) Tracks() []domain.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tracks)
}

// Calls returns the programmatic calls made so far, e.g. "play", "switch 2"
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// ResetCalls forgets recorded calls
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Closed reports whether Destroy was called
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// UserPlay simulates the play button of the renderer
func (m *Memory) UserPlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPaused(false)
}

// UserPause simulates the pause button of the renderer
func (m *Memory) UserPause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPaused(true)
}

// UserSwitch simulates picking a track in the renderer's own list
func (m *Memory) UserSwitch(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index >= 0 && index < len(m.tracks) {
		m.switchTo(index)
	}
}

// Advance moves the playback position forward
func (m *Memory) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position += d
}

// Finish simulates the current track playing to its end
func (m *Memory) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.index < 0 {
		return
	}
	m.paused = true
	m.queue.push(domain.WidgetEvent{Kind: domain.EventEnded})
}

// Fail simulates a load or decode error
func (m *Memory) Fail(err error) {
	m.queue.push(domain.WidgetEvent{Kind: domain.EventError, Err: err})
}

// setPaused changes transport state and emits the matching event; callers hold m.mu
func (m *Memory) setPaused(paused bool) {
	if m.paused == paused {
		return
	}
	m.paused = paused
	if paused {
		m.queue.push(domain.WidgetEvent{Kind: domain.EventPause})
	} else {
		m.queue.push(domain.WidgetEvent{Kind: domain.EventPlay})
	}
}

// switchTo selects a track and emits the load sequence; callers hold m.mu
func (m *Memory) switchTo(index int) {
	changed := index != m.index
	m.index = index
	m.position = 0
	if changed {
		m.queue.push(domain.WidgetEvent{Kind: domain.EventListSwitch, Index: index})
	}
	m.queue.push(domain.WidgetEvent{Kind: domain.EventLoadStart})
	m.queue.push(domain.WidgetEvent{Kind: domain.EventCanPlay})
	m.logger.Debug("memory widget switched track", "index", index)
}
