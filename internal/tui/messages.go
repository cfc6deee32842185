package tui

import (
	"time"

	"github.com/cantoplayer/canto/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// TickMsg is sent on a timer to refresh the countdown and position
type TickMsg time.Time

// QueueChangedMsg signals that the playlist store changed
type QueueChangedMsg struct{}

// FavoriteAddedMsg signals that the current track was saved to a folder
type FavoriteAddedMsg struct {
	Favorite *domain.Favorite
	Folder   string
}

// MarkAddedMsg signals that a bookmark was created
type MarkAddedMsg struct {
	Mark *domain.MediaMark
}

// ClearStatusMsg clears the status line if it still shows the message with the given id
type ClearStatusMsg struct {
	ID int
}
