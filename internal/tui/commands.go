package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cantoplayer/canto/internal/domain"
	"github.com/cantoplayer/canto/internal/playlist"
)

// Command factories for async operations

const requestTimeout = 15 * time.Second

// TickCmd sends a TickMsg after the given duration
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// WaitForChangeCmd blocks until the store signals a change
func WaitForChangeCmd(sub *playlist.Subscription) tea.Cmd {
	return func() tea.Msg {
		<-sub.C()
		sub.Take()
		return QueueChangedMsg{}
	}
}

// ClearStatusCmd clears the status line after the given duration
func ClearStatusCmd(id int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{ID: id}
	})
}

// AddFavoriteCmd saves item into the default folder for its kind
func AddFavoriteCmd(svc FavoritesService, item domain.PlaylistItem, preferredFolder, note string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		kind, ok := domain.KindOf(item.Name)
		if !ok {
			kind = domain.MediaKindAudio
		}
		folder, err := svc.DefaultFolder(ctx, kind, preferredFolder)
		if err != nil {
			return ErrMsg{Err: err, Context: "finding favorites folder"}
		}
		fav, err := svc.AddToFavorites(ctx, folder.ID, item, note)
		if err != nil {
			return ErrMsg{Err: err, Context: "adding favorite"}
		}
		return FavoriteAddedMsg{Favorite: fav, Folder: folder.Name}
	}
}

// AddMarkCmd bookmarks item at the given position
func AddMarkCmd(svc FavoritesService, item domain.PlaylistItem, at time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		mark, err := svc.AddMark(ctx, item, at, "", "")
		if err != nil {
			return ErrMsg{Err: err, Context: "adding mark"}
		}
		return MarkAddedMsg{Mark: mark}
	}
}
