package domain

import "time"

// EventKind identifies a transport event emitted by a playback widget
type EventKind int

const (
	EventPlay EventKind = iota
	EventPause
	EventEnded
	EventListSwitch
	EventLoadStart
	EventCanPlay
	EventError
)

// String returns the event name as the widget reports it
func (k EventKind) String() string {
	switch k {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	case EventListSwitch:
		return "listswitch"
	case EventLoadStart:
		return "loadstart"
	case EventCanPlay:
		return "canplay"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// WidgetEvent is one asynchronous notification from a playback widget
type WidgetEvent struct {
	Kind  EventKind
	Index int   // Track index for EventListSwitch
	Err   error // Cause for EventError
}

// Widget is an external audio renderer with its own track list and transport.
// Implementations must be safe to call from one goroutine while Events is
// drained by the same goroutine.
type Widget interface {
	Play() error
	Pause() error
	Seek(seconds float64) error

	ClearList() error
	AddTrack(track Track) error
	SwitchTrack(index int) error

	// Index is the widget's own current list index, -1 when none
	Index() int
	// Paused reports the widget's actual transport state
	Paused() bool
	// Position is the playback offset within the current track
	Position() time.Duration

	Events() <-chan WidgetEvent
	Destroy() error
}
