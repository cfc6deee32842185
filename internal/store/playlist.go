package store

import (
	"github.com/cantoplayer/canto/internal/domain"
)

// playbackState is the persisted form of the queue position
type playbackState struct {
	CurrentIndex *int            `json:"currentIndex"`
	PlayMode     domain.PlayMode `json:"playMode"`
}

// Load implements domain.PlaylistPersistence. Missing or unreadable records
// fall back to an empty queue in list mode; it never fails.
func (s *Store) Load() domain.PersistedPlaylist {
	loaded := domain.DefaultPersistedPlaylist()

	var items []domain.PlaylistItem
	if _, err := s.get(bucketPlaylist, keyItems, &items); err != nil {
		s.logger.Error("failed to load playlist from storage", "error", err)
		items = nil
	}
	loaded.Items = dedupe(items)

	var state playbackState
	ok, err := s.get(bucketPlaylist, keyState, &state)
	if err != nil {
		s.logger.Error("failed to load playlist state from storage", "error", err)
		return loaded
	}
	if !ok {
		return loaded
	}

	if state.PlayMode.Valid() {
		loaded.PlayMode = state.PlayMode
	}
	if state.CurrentIndex != nil {
		idx := *state.CurrentIndex
		if idx >= 0 && idx < len(loaded.Items) {
			loaded.CurrentIndex = idx
		} else if idx != -1 {
			s.logger.Warn("stored playlist index out of range, resetting", "index", idx, "items", len(loaded.Items))
		}
	}

	s.logger.Debug("loaded playlist", "items", len(loaded.Items), "index", loaded.CurrentIndex, "mode", loaded.PlayMode)
	return loaded
}

// Save implements domain.PlaylistPersistence
func (s *Store) Save(items []domain.PlaylistItem) {
	if items == nil {
		items = []domain.PlaylistItem{}
	}
	if err := s.set(bucketPlaylist, keyItems, items); err != nil {
		s.logger.Error("failed to save playlist to storage", "error", err)
	}
}

// SaveState implements domain.PlaylistPersistence
func (s *Store) SaveState(currentIndex int, mode domain.PlayMode) {
	state := playbackState{CurrentIndex: &currentIndex, PlayMode: mode}
	if err := s.set(bucketPlaylist, keyState, state); err != nil {
		s.logger.Error("failed to save playlist state to storage", "error", err)
	}
}

// dedupe keeps the first occurrence of every id so a hand-edited or damaged
// record cannot break queue id uniqueness.
func dedupe(items []domain.PlaylistItem) []domain.PlaylistItem {
	out := make([]domain.PlaylistItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}
