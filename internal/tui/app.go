package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cantoplayer/canto/internal/domain"
	"github.com/cantoplayer/canto/internal/favorites"
	"github.com/cantoplayer/canto/internal/playlist"
	"github.com/cantoplayer/canto/internal/tui/components"
	"github.com/cantoplayer/canto/internal/tui/styles"
)

// FavoritesService is the part of favorites.Service the player uses
type FavoritesService interface {
	DefaultFolder(ctx context.Context, kind domain.MediaKind, preferred string) (*domain.Folder, error)
	AddToFavorites(ctx context.Context, folderID uint, item domain.PlaylistItem, note string) (*domain.Favorite, error)
	AddMark(ctx context.Context, item domain.PlaylistItem, at time.Duration, title, content string) (*domain.MediaMark, error)
}

// PositionSource reports the playback position of the current track
type PositionSource interface {
	Position() time.Duration
}

// SleepClock reports the sleep countdown, empty when no timer is set
type SleepClock interface {
	SleepRemaining() string
}

// Options wires the model to the rest of the player. Every field is optional.
type Options struct {
	Favorites     FavoritesService
	Position      PositionSource
	Sleep         SleepClock
	DefaultFolder string
	Logger        *slog.Logger
}

const (
	tickInterval  = time.Second
	statusTimeout = 4 * time.Second
)

// sleepSteps are the timer presets the sleep key cycles through, in minutes
var sleepSteps = []float64{15, 30, 60}

// Model is the main Bubble Tea model for the player
type Model struct {
	store *playlist.Store
	sub   *playlist.Subscription
	opts  Options

	logger *slog.Logger

	// Snapshot of the store, refreshed on change notifications and ticks
	state playlist.State

	// Queue view
	cursor   int // position within rows()
	offset   int
	selected map[string]bool

	// Filter
	filterInput textinput.Model
	filtering   bool // input focused
	filterQuery string
	filtered    []int

	// Modals
	noteModal components.InputModal
	noteFor   domain.PlaylistItem
	help      help.Model

	// Dimensions
	Width  int
	Height int

	// Status line
	StatusMsg   string
	StatusIsErr bool
	statusID    int
}

// NewModel creates the player model and subscribes it to store changes
func NewModel(store *playlist.Store, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fi := textinput.New()
	fi.Prompt = "/"
	fi.PromptStyle = styles.FilterPromptStyle
	fi.TextStyle = styles.FilterStyle
	fi.CharLimit = 100

	m := Model{
		store:       store,
		sub:         store.Subscribe(),
		opts:        opts,
		logger:      logger,
		selected:    make(map[string]bool),
		filterInput: fi,
		noteModal:   components.NewInputModal(),
		help:        help.New(),
	}
	m.refresh()
	return m
}

// Close releases the store subscription
func (m Model) Close() {
	m.sub.Close()
}

// Init starts the change listener and the refresh tick
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForChangeCmd(m.sub),
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.refresh()
		return m, TickCmd(tickInterval)

	case QueueChangedMsg:
		m.refresh()
		return m, WaitForChangeCmd(m.sub)

	case FavoriteAddedMsg:
		label := "favorites"
		if msg.Folder != "" {
			label = msg.Folder
		}
		return m, m.setStatus(fmt.Sprintf("Added to %s", label), false)

	case MarkAddedMsg:
		at := ""
		if msg.Mark != nil {
			at = favorites.FormatOffset(msg.Mark.Position())
		}
		return m, m.setStatus("Marked at "+at, false)

	case ErrMsg:
		m.logger.Error("tui operation failed", "context", msg.Context, "error", msg.Err)
		return m, m.setStatus(msg.Error(), true)

	case ClearStatusMsg:
		if msg.ID == m.statusID {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.noteModal.IsVisible() {
		var cmd tea.Cmd
		var submitted bool
		m.noteModal, cmd, submitted = m.noteModal.Update(msg)
		if submitted {
			note := m.noteModal.Value()
			m.noteModal.Hide()
			return m, AddFavoriteCmd(m.opts.Favorites, m.noteFor, m.opts.DefaultFolder, note)
		}
		return m, cmd
	}

	if m.filtering {
		switch msg.String() {
		case "esc":
			m.clearFilter()
			return m, nil
		case "enter":
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.Home):
		m.cursor = 0
		m.clampCursor()
	case key.Matches(msg, Keys.End):
		m.cursor = len(m.rows()) - 1
		m.clampCursor()

	case key.Matches(msg, Keys.Escape):
		if m.filterQuery != "" {
			m.clearFilter()
		} else {
			clear(m.selected)
		}

	case key.Matches(msg, Keys.Toggle):
		m.store.TogglePlay()
		m.refresh()
	case key.Matches(msg, Keys.Play):
		if idx, ok := m.cursorIndex(); ok {
			m.store.Play(idx)
			m.refresh()
		}
	case key.Matches(msg, Keys.Next):
		m.store.PlayNext()
		m.refresh()
	case key.Matches(msg, Keys.Previous):
		m.store.PlayPrevious()
		m.refresh()

	case key.Matches(msg, Keys.Mode):
		mode := m.store.CyclePlayMode()
		m.refresh()
		return m, m.setStatus("Mode: "+mode.Label(), false)

	case key.Matches(msg, Keys.Sleep):
		return m, m.cycleSleep()

	case key.Matches(msg, Keys.Select):
		if idx, ok := m.cursorIndex(); ok {
			id := m.state.Items[idx].ID
			if m.selected[id] {
				delete(m.selected, id)
			} else {
				m.selected[id] = true
			}
			m.moveCursor(1)
		}

	case key.Matches(msg, Keys.Remove):
		m.removeSelected()

	case key.Matches(msg, Keys.Clear):
		m.store.Clear()
		clear(m.selected)
		m.refresh()
		return m, m.setStatus("Queue cleared", false)

	case key.Matches(msg, Keys.MoveDown):
		m.moveItem(1)
	case key.Matches(msg, Keys.MoveUp):
		m.moveItem(-1)

	case key.Matches(msg, Keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.filterQuery)
		return m, m.filterInput.Focus()

	case key.Matches(msg, Keys.Favorite):
		return m, m.startFavorite()

	case key.Matches(msg, Keys.Mark):
		return m, m.addMark()
	}

	return m, nil
}

// refresh reloads the store snapshot and reconciles view state with it
func (m *Model) refresh() {
	m.state = m.store.Snapshot()

	present := make(map[string]bool, len(m.state.Items))
	for _, item := range m.state.Items {
		present[item.ID] = true
	}
	for id := range m.selected {
		if !present[id] {
			delete(m.selected, id)
		}
	}

	if m.filterQuery != "" {
		m.filtered = filterQueue(m.state.Items, m.filterQuery)
	}
	m.clampCursor()
}

// rows returns the store indices shown in the queue, in display order
func (m Model) rows() []int {
	if m.filterQuery != "" {
		return m.filtered
	}
	rows := make([]int, len(m.state.Items))
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// cursorIndex returns the store index under the cursor
func (m Model) cursorIndex() (int, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return -1, false
	}
	return rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	visible := m.queueHeight()
	if visible <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset > max(0, n-visible) {
		m.offset = max(0, n-visible)
	}
}

func (m *Model) applyFilter() {
	m.filterQuery = strings.TrimSpace(m.filterInput.Value())
	m.filtered = filterQueue(m.state.Items, m.filterQuery)
	m.cursor = 0
	m.offset = 0
}

func (m *Model) clearFilter() {
	m.filtering = false
	m.filterQuery = ""
	m.filtered = nil
	m.filterInput.SetValue("")
	m.filterInput.Blur()
	m.clampCursor()
}

// removeSelected removes the multi-selection, or the item under the cursor
// when nothing is selected
func (m *Model) removeSelected() {
	if len(m.selected) > 0 {
		ids := make([]string, 0, len(m.selected))
		for _, item := range m.state.Items {
			if m.selected[item.ID] {
				ids = append(ids, item.ID)
			}
		}
		m.store.RemoveMany(ids)
		clear(m.selected)
	} else if idx, ok := m.cursorIndex(); ok {
		m.store.Remove(m.state.Items[idx].ID)
	}
	m.refresh()
}

// moveItem shifts the item under the cursor; disabled while filtering since
// filtered rows are not adjacent in the queue
func (m *Model) moveItem(delta int) {
	if m.filterQuery != "" {
		return
	}
	from, ok := m.cursorIndex()
	if !ok {
		return
	}
	to := from + delta
	if to < 0 || to >= len(m.state.Items) {
		return
	}
	m.store.Reorder(from, to)
	m.cursor = to
	m.refresh()
}

func (m *Model) cycleSleep() tea.Cmd {
	current := m.state.SleepDuration
	for _, step := range sleepSteps {
		if step > current {
			m.store.SetSleepTimer(step)
			m.refresh()
			return m.setStatus(fmt.Sprintf("Sleep in %g min", step), false)
		}
	}
	m.store.CancelSleepTimer()
	m.refresh()
	return m.setStatus("Sleep timer off", false)
}

func (m *Model) startFavorite() tea.Cmd {
	if m.opts.Favorites == nil {
		return m.setStatus("Favorites unavailable", true)
	}
	item, ok := m.state.Current()
	if !ok {
		return m.setStatus("Nothing playing", true)
	}
	m.noteFor = item
	m.noteModal.Show("Add to favorites", item.Name, "Note (optional)")
	return nil
}

func (m *Model) addMark() tea.Cmd {
	if m.opts.Favorites == nil {
		return m.setStatus("Marks unavailable", true)
	}
	item, ok := m.state.Current()
	if !ok {
		return m.setStatus("Nothing playing", true)
	}
	var at time.Duration
	if m.opts.Position != nil {
		at = m.opts.Position.Position()
	}
	return AddMarkCmd(m.opts.Favorites, item, at)
}

// setStatus shows msg on the status line and schedules it to clear
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusID++
	m.StatusMsg = msg
	m.StatusIsErr = isErr
	return ClearStatusCmd(m.statusID, statusTimeout)
}
