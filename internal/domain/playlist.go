package domain

// PersistedPlaylist is the durable part of the queue state
type PersistedPlaylist struct {
	Items        []PlaylistItem
	CurrentIndex int
	PlayMode     PlayMode
}

// DefaultPersistedPlaylist is what a fresh install or unreadable storage loads as
func DefaultPersistedPlaylist() PersistedPlaylist {
	return PersistedPlaylist{
		Items:        []PlaylistItem{},
		CurrentIndex: -1,
		PlayMode:     PlayModeList,
	}
}

// PlaylistPersistence stores queue contents and playback position.
// Implementations recover from and log their own failures; none of these
// methods may fail the caller.
type PlaylistPersistence interface {
	Load() PersistedPlaylist
	Save(items []PlaylistItem)
	SaveState(currentIndex int, mode PlayMode)
}
