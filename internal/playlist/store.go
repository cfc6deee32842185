package playlist

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/cantoplayer/canto/internal/domain"
)

// State is a point-in-time copy of the queue
type State struct {
	Items        []domain.PlaylistItem
	CurrentIndex int  // -1 when nothing is selected
	IsPlaying    bool // desired transport state, not the renderer's
	PlayMode     domain.PlayMode

	SleepDeadline time.Time // zero when the sleep timer is off
	SleepDuration float64   // minutes, informational
}

// Current returns the selected item
func (s State) Current() (domain.PlaylistItem, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Items) {
		return domain.PlaylistItem{}, false
	}
	return s.Items[s.CurrentIndex], true
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now for sleep timer calculations
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand sets the random source used in random play mode
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.intn = r.IntN }
}

// WithRepeatableShuffle lets random mode pick the current track again
func WithRepeatableShuffle() Option {
	return func(s *Store) { s.avoidRepeat = false }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is the authoritative play queue. Every mutation keeps the invariants:
// an empty queue has index -1 and is not playing, and the index is always -1
// or valid. Invalid ids and indices are ignored without error since callers
// are UI callbacks that may act on stale state.
type Store struct {
	mu      sync.Mutex
	persist domain.PlaylistPersistence
	logger  *slog.Logger

	items        []domain.PlaylistItem
	currentIndex int
	isPlaying    bool
	playMode     domain.PlayMode
	sleepAt      time.Time
	sleepMinutes float64

	now         func() time.Time
	intn        func(int) int
	avoidRepeat bool

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
}

// New creates a store hydrated from persist. persist may be nil for a queue
// that is never saved.
func New(persist domain.PlaylistPersistence, opts ...Option) *Store {
	s := &Store{
		persist:     persist,
		logger:      slog.Default(),
		now:         time.Now,
		intn:        rand.IntN,
		avoidRepeat: true,
		subs:        make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded := domain.DefaultPersistedPlaylist()
	if persist != nil {
		loaded = persist.Load()
	}
	s.items = slices.Clone(loaded.Items)
	s.currentIndex = loaded.CurrentIndex
	s.playMode = loaded.PlayMode
	if !s.playMode.Valid() {
		s.playMode = domain.PlayModeList
	}
	s.normalize()

	return s
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Items:         slices.Clone(s.items),
		CurrentIndex:  s.currentIndex,
		IsPlaying:     s.isPlaying,
		PlayMode:      s.playMode,
		SleepDeadline: s.sleepAt,
		SleepDuration: s.sleepMinutes,
	}
}

// Current returns the selected item
func (s *Store) Current() (domain.PlaylistItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex < 0 || s.currentIndex >= len(s.items) {
		return domain.PlaylistItem{}, false
	}
	return s.items[s.currentIndex], true
}

// Len returns the number of queued items
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Add prepends item so the most recently added track comes first. Adding an
// id that is already queued does nothing. The first item added to an empty
// queue becomes the selected one.
func (s *Store) Add(item domain.PlaylistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(item.ID) != -1 {
		return
	}

	wasEmpty := len(s.items) == 0
	s.items = slices.Insert(s.items, 0, item)

	changes := ChangeItems
	if wasEmpty {
		s.currentIndex = 0
		changes |= ChangeIndex
	}
	s.commit(changes)
}

// Remove drops the item with the given id. Removing the selected item stops
// playback and selects its successor (or predecessor at the end).
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOf(id)
	if index == -1 {
		return
	}

	s.items = slices.Delete(s.items, index, index+1)
	changes := ChangeItems

	switch {
	case index < s.currentIndex:
		s.currentIndex--
		changes |= ChangeIndex
	case index == s.currentIndex:
		if s.isPlaying {
			s.isPlaying = false
			changes |= ChangePlaying
		}
		if len(s.items) > 0 {
			s.currentIndex = min(index, len(s.items)-1)
		} else {
			s.currentIndex = -1
		}
		changes |= ChangeIndex
	}
	s.commit(changes)
}

// RemoveMany drops every item whose id is in ids. The selected track stays
// selected if it survives; otherwise playback stops.
func (s *Store) RemoveMany(ids []string) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var current *domain.PlaylistItem
	if s.currentIndex >= 0 && s.currentIndex < len(s.items) {
		item := s.items[s.currentIndex]
		current = &item
	}

	kept := make([]domain.PlaylistItem, 0, len(s.items))
	for _, item := range s.items {
		if _, ok := drop[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(s.items) {
		return
	}
	s.items = kept

	changes := ChangeItems | ChangeIndex
	if current != nil && len(kept) > 0 {
		if newIndex := s.indexOf(current.ID); newIndex != -1 {
			s.currentIndex = newIndex
		} else {
			s.currentIndex = min(s.currentIndex, len(kept)-1)
			changes |= s.stop()
		}
	} else {
		s.currentIndex = -1
		changes |= s.stop()
	}
	s.commit(changes)
}

// Reorder moves the item at from to position to. The selected track stays
// selected through the move.
func (s *Store) Reorder(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == to || !s.valid(from) || !s.valid(to) {
		return
	}

	moved := s.items[from]
	s.items = slices.Delete(s.items, from, from+1)
	s.items = slices.Insert(s.items, to, moved)

	cur := s.currentIndex
	switch {
	case from == cur:
		s.currentIndex = to
	case from < cur && to >= cur:
		s.currentIndex--
	case from > cur && to <= cur:
		s.currentIndex++
	}

	changes := ChangeItems
	if s.currentIndex != cur {
		changes |= ChangeIndex
	}
	s.commit(changes)
}

// Clear empties the queue
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.currentIndex = -1
	s.commit(ChangeItems | ChangeIndex | s.stop())
}

// Play selects the item at index and starts playback
func (s *Store) Play(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.play(index)
}

func (s *Store) play(index int) {
	if !s.valid(index) {
		return
	}

	var changes Change
	if s.currentIndex != index {
		s.currentIndex = index
		changes |= ChangeIndex
	}
	if !s.isPlaying {
		s.isPlaying = true
		changes |= ChangePlaying
	}
	s.commit(changes)
}

// NextIndex returns the index that follows the current one under the active
// play mode, or -1 for an empty queue.
func (s *Store) NextIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIndex()
}

func (s *Store) nextIndex() int {
	n := len(s.items)
	if n == 0 {
		return -1
	}
	switch s.playMode {
	case domain.PlayModeSingle:
		return s.currentIndex
	case domain.PlayModeRandom:
		return s.randomIndex()
	default:
		return (s.currentIndex + 1) % n
	}
}

// PreviousIndex returns the index before the current one under the active
// play mode, or -1 for an empty queue.
func (s *Store) PreviousIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousIndex()
}

func (s *Store) previousIndex() int {
	n := len(s.items)
	if n == 0 {
		return -1
	}
	switch s.playMode {
	case domain.PlayModeSingle:
		return s.currentIndex
	case domain.PlayModeRandom:
		return s.randomIndex()
	default:
		if s.currentIndex <= 0 {
			return n - 1
		}
		return s.currentIndex - 1
	}
}

// randomIndex picks uniformly, skipping the current track when there is a choice
func (s *Store) randomIndex() int {
	n := len(s.items)
	if !s.avoidRepeat || n < 2 || !s.valid(s.currentIndex) {
		return s.intn(n)
	}
	i := s.intn(n - 1)
	if i >= s.currentIndex {
		i++
	}
	return i
}

// PlayNext advances under the active play mode
func (s *Store) PlayNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next := s.nextIndex(); next != -1 {
		s.play(next)
	}
}

// PlayPrevious steps back under the active play mode
func (s *Store) PlayPrevious() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.previousIndex(); prev != -1 {
		s.play(prev)
	}
}

// TogglePlay flips the desired transport state. Unlike a plain flip, playing
// with nothing selected starts the first track instead of leaving the widget
// with no source. An empty queue never plays.
func (s *Store) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return
	}
	if !s.isPlaying && s.currentIndex == -1 {
		s.play(0)
		return
	}
	s.isPlaying = !s.isPlaying
	s.commit(ChangePlaying)
}

// SetPlaying mirrors the renderer's transport state into the store
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playing == s.isPlaying || (playing && len(s.items) == 0) {
		return
	}
	s.isPlaying = playing
	s.commit(ChangePlaying)
}

// Select moves the selection without touching the transport state
func (s *Store) Select(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid(index) || index == s.currentIndex {
		return
	}
	s.currentIndex = index
	s.commit(ChangeIndex)
}

// SetPlayMode switches the play mode. Unknown modes are ignored.
func (s *Store) SetPlayMode(mode domain.PlayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !mode.Valid() || mode == s.playMode {
		return
	}
	s.playMode = mode
	s.commit(ChangeMode)
}

// CyclePlayMode switches to the next mode in list -> random -> single order
func (s *Store) CyclePlayMode() domain.PlayMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playMode = s.playMode.Next()
	s.commit(ChangeMode)
	return s.playMode
}

// SetSleepTimer stops playback after the given number of minutes. Zero or
// negative minutes cancel the timer.
func (s *Store) SetSleepTimer(minutes float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if minutes <= 0 {
		s.cancelSleep()
		return
	}
	s.sleepAt = s.now().Add(time.Duration(minutes * float64(time.Minute)))
	s.sleepMinutes = minutes
	s.commit(ChangeSleep)
}

// CancelSleepTimer turns the sleep timer off
func (s *Store) CancelSleepTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSleep()
}

func (s *Store) cancelSleep() {
	if s.sleepAt.IsZero() && s.sleepMinutes == 0 {
		return
	}
	s.sleepAt = time.Time{}
	s.sleepMinutes = 0
	s.commit(ChangeSleep)
}

// CheckSleepTimer stops playback and clears the timer once its deadline has
// passed. It reports whether the timer fired on this call; it is meant to be
// polled.
func (s *Store) CheckSleepTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sleepAt.IsZero() || s.now().Before(s.sleepAt) {
		return false
	}

	s.sleepAt = time.Time{}
	s.sleepMinutes = 0
	s.commit(ChangeSleep | s.stop())
	s.logger.Info("sleep timer fired")
	return true
}

// SleepRemaining returns the time left on the sleep timer
func (s *Store) SleepRemaining() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sleepAt.IsZero() {
		return 0, false
	}
	return max(0, s.sleepAt.Sub(s.now())), true
}

// === internals (callers hold s.mu) ===

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(item domain.PlaylistItem) bool {
		return item.ID == id
	})
}

func (s *Store) valid(index int) bool {
	return index >= 0 && index < len(s.items)
}

// stop clears the playing flag and reports the change, if any
func (s *Store) stop() Change {
	if !s.isPlaying {
		return 0
	}
	s.isPlaying = false
	return ChangePlaying
}

// normalize enforces the index and empty-queue invariants
func (s *Store) normalize() Change {
	var changes Change
	if len(s.items) == 0 {
		if s.currentIndex != -1 {
			s.currentIndex = -1
			changes |= ChangeIndex
		}
		changes |= s.stop()
		return changes
	}
	if s.currentIndex < -1 || s.currentIndex >= len(s.items) {
		s.currentIndex = -1
		changes |= ChangeIndex
	}
	return changes
}

// commit persists whatever changed and notifies subscribers
func (s *Store) commit(changes Change) {
	changes |= s.normalize()
	if changes == 0 {
		return
	}

	if s.persist != nil {
		if changes.Has(ChangeItems) {
			s.persist.Save(slices.Clone(s.items))
		}
		if changes.Any(ChangeItems | ChangeIndex | ChangeMode) {
			s.persist.SaveState(s.currentIndex, s.playMode)
		}
	}

	s.logger.Debug("playlist changed",
		"changes", changes.String(),
		"items", len(s.items),
		"index", s.currentIndex,
		"playing", s.isPlaying,
		"mode", s.playMode)

	s.notify(changes)
}
