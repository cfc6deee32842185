package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cantoplayer/canto/internal/domain"
	"github.com/cantoplayer/canto/internal/playlist"
)

// Options tunes the synchronizer timing
type Options struct {
	// SuppressWindow is how long a programmatic widget call waits for its echo event
	SuppressWindow time.Duration
	// ResumeDelay is the pause between a track ending and the next one starting
	ResumeDelay time.Duration
	// TickInterval is how often the sleep timer is checked
	TickInterval time.Duration
}

// DefaultOptions returns the standard timings
func DefaultOptions() Options {
	return Options{
		SuppressWindow: 500 * time.Millisecond,
		ResumeDelay:    100 * time.Millisecond,
		TickInterval:   time.Second,
	}
}

// expectation is an event we caused and expect to see echoed back
type expectation struct {
	token    uint64
	kind     domain.EventKind
	index    int
	deadline time.Time
}

// Synchronizer keeps a playback widget in step with the playlist store.
// Store changes are projected onto the widget; widget events that were not
// caused by the synchronizer itself are mirrored back into the store. All
// widget calls happen on the Run goroutine.
type Synchronizer struct {
	store  *playlist.Store
	widget domain.Widget
	sub    *playlist.Subscription
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	// loop state, owned by Run
	expected  []expectation
	nextToken uint64
	ended     bool
	resume    *time.Timer

	mu        sync.Mutex
	remaining string
	running   bool
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates a synchronizer. Call Run to start it and Close to tear it down.
func New(store *playlist.Store, widget domain.Widget, opts Options, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultOptions()
	if opts.SuppressWindow <= 0 {
		opts.SuppressWindow = defaults.SuppressWindow
	}
	if opts.ResumeDelay <= 0 {
		opts.ResumeDelay = defaults.ResumeDelay
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaults.TickInterval
	}

	return &Synchronizer{
		store:  store,
		widget: widget,
		sub:    store.Subscribe(),
		opts:   opts,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// SleepRemaining returns the sleep countdown as m:ss, empty when the timer is off
func (s *Synchronizer) SleepRemaining() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Run projects the current queue onto the widget and then serves events
// until ctx is cancelled or Close is called.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrWidgetClosed
	}
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("synchronizer already running")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()
	defer close(s.done)

	s.sub.Take()
	s.rebuild()
	s.projectIndex()
	s.projectTransport()
	s.refreshRemaining()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	defer s.stopResume()

	events := s.widget.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.sub.C():
			s.apply(s.sub.Take())

		case ev, ok := <-events:
			if !ok {
				s.logger.Debug("widget event stream closed")
				events = nil
				continue
			}
			s.handleEvent(ev)

		case <-ticker.C:
			s.tick()

		case <-s.resumeC():
			s.resume = nil
			s.continuePlayback()
		}
	}
}

// Close stops the loop and destroys the widget. Only the first call has an effect.
func (s *Synchronizer) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancel := s.cancel
		running := s.running
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if running {
			<-s.done
		}
		s.sub.Close()
		s.closeErr = s.widget.Destroy()
		s.logger.Debug("synchronizer closed")
	})
	return s.closeErr
}

// === store -> widget ===

func (s *Synchronizer) apply(changes playlist.Change) {
	if changes.Has(playlist.ChangeItems) {
		s.rebuild()
	}
	if changes.Any(playlist.ChangeItems | playlist.ChangeIndex) {
		s.projectIndex()
	}
	if changes.Any(playlist.ChangeItems | playlist.ChangeIndex | playlist.ChangePlaying) {
		s.projectTransport()
	}
	if changes.Has(playlist.ChangeSleep) {
		s.refreshRemaining()
	}
}

// rebuild replaces the widget's track list with the store's
func (s *Synchronizer) rebuild() {
	st := s.store.Snapshot()
	s.dropExpectations(domain.EventListSwitch)
	s.ended = false

	if err := s.widget.ClearList(); err != nil {
		s.logger.Warn("failed to clear widget list", "error", err)
		return
	}
	for _, item := range st.Items {
		if err := s.widget.AddTrack(item.Track()); err != nil {
			s.logger.Warn("failed to add track to widget", "error", err, "id", item.ID)
		}
	}
	s.logger.Debug("rebuilt widget list", "count", len(st.Items))
}

// projectIndex switches the widget to the store's current track
func (s *Synchronizer) projectIndex() {
	st := s.store.Snapshot()
	if st.CurrentIndex < 0 || st.CurrentIndex == s.widgetIndex() {
		return
	}

	// Stop first so the new track does not start when the queue is paused
	if !st.IsPlaying && !s.widgetPaused() {
		s.pauseWidget()
	}

	s.expect(domain.EventListSwitch, st.CurrentIndex)
	if err := s.widget.SwitchTrack(st.CurrentIndex); err != nil {
		s.logger.Warn("failed to switch widget track", "error", err, "index", st.CurrentIndex)
		s.dropExpectations(domain.EventListSwitch)
		return
	}
	s.ended = false
}

// projectTransport starts or pauses the widget to match the store
func (s *Synchronizer) projectTransport() {
	st := s.store.Snapshot()
	paused := s.widgetPaused()

	switch {
	case st.IsPlaying && paused:
		if s.ended {
			if err := s.widget.Seek(0); err != nil {
				s.logger.Warn("failed to rewind widget", "error", err)
			}
			s.ended = false
		}
		s.expect(domain.EventPlay, -1)
		if err := s.widget.Play(); err != nil {
			s.logger.Warn("failed to start widget", "error", err)
			s.dropExpectations(domain.EventPlay)
		}
	case !st.IsPlaying && !paused:
		s.pauseWidget()
	}
}

func (s *Synchronizer) pauseWidget() {
	s.expect(domain.EventPause, -1)
	if err := s.widget.Pause(); err != nil {
		s.logger.Warn("failed to pause widget", "error", err)
		s.dropExpectations(domain.EventPause)
	}
}

// === widget -> store ===

func (s *Synchronizer) handleEvent(ev domain.WidgetEvent) {
	switch ev.Kind {
	case domain.EventLoadStart, domain.EventCanPlay:
		s.logger.Debug("widget event", "event", ev.Kind.String())
		return
	case domain.EventError:
		s.logger.Error("widget error", "error", ev.Err)
		return
	}

	if s.consume(ev) {
		s.logger.Debug("suppressed widget echo", "event", ev.Kind.String(), "index", ev.Index)
		return
	}

	switch ev.Kind {
	case domain.EventPlay:
		s.store.SetPlaying(true)
	case domain.EventPause:
		s.store.SetPlaying(false)
	case domain.EventListSwitch:
		s.ended = false
		if ev.Index >= 0 && ev.Index < s.store.Len() {
			s.store.Select(ev.Index)
		}
	case domain.EventEnded:
		s.trackEnded()
	}
}

func (s *Synchronizer) trackEnded() {
	s.ended = true
	s.store.SetPlaying(false)

	if s.store.CheckSleepTimer() {
		s.logger.Info("sleep timer expired at end of track")
		return
	}

	s.stopResume()
	s.resume = time.NewTimer(s.opts.ResumeDelay)
}

// continuePlayback starts whatever follows a finished track
func (s *Synchronizer) continuePlayback() {
	if s.store.Snapshot().PlayMode == domain.PlayModeSingle {
		if err := s.widget.Seek(0); err != nil {
			s.logger.Warn("failed to rewind widget", "error", err)
		}
		s.ended = false
		s.store.SetPlaying(true)
		return
	}
	s.store.PlayNext()
}

func (s *Synchronizer) resumeC() <-chan time.Time {
	if s.resume == nil {
		return nil
	}
	return s.resume.C
}

func (s *Synchronizer) stopResume() {
	if s.resume != nil {
		s.resume.Stop()
		s.resume = nil
	}
}

// === sleep timer ===

func (s *Synchronizer) tick() {
	if s.store.CheckSleepTimer() {
		s.logger.Info("sleep timer expired")
		if !s.widgetPaused() {
			s.pauseWidget()
		}
	}
	s.refreshRemaining()
}

func (s *Synchronizer) refreshRemaining() {
	text := ""
	if d, ok := s.store.SleepRemaining(); ok {
		text = FormatRemaining(d)
	}
	s.mu.Lock()
	s.remaining = text
	s.mu.Unlock()
}

// FormatRemaining renders a countdown as m:ss
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
