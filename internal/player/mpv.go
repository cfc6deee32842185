package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cantoplayer/canto/internal/domain"
)

const (
	dialTimeout = 5 * time.Second
	quitTimeout = 2 * time.Second
)

// observed mpv properties, keyed by observe id
var observedProperties = []string{"pause", "playlist-pos", "eof-reached", "time-pos"}

// Options configures an mpv instance
type Options struct {
	Command string   // mpv executable, detected when empty
	Args    []string // extra mpv arguments
	Socket  string   // IPC socket path, per-process default when empty
	Volume  int
}

// MPV is a Widget backed by an mpv process driven over its JSON IPC socket
type MPV struct {
	cmd    *exec.Cmd
	socket string
	conn   *ipcConn
	queue  *eventQueue
	logger *slog.Logger

	mu       sync.Mutex
	tracks   []domain.Track
	index    int
	paused   bool
	position float64
	closed   bool

	exited      chan struct{}
	destroyOnce sync.Once
	destroyErr  error
}

var _ domain.Widget = (*MPV)(nil)

// NewMPV launches mpv and connects to it
func NewMPV(ctx context.Context, opts Options, logger *slog.Logger) (*MPV, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path, err := resolveCommand(opts.Command, logger)
	if err != nil {
		return nil, err
	}

	socket := opts.Socket
	if socket == "" {
		socket = defaultSocket()
	}
	// A stale socket from a crashed run would make the dial succeed against nothing
	_ = os.Remove(socket)

	args := buildArgs(socket, opts.Volume, opts.Args)
	cmd := exec.Command(path, args...)
	logger.Info("launching player", "command", path, "args", args)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		logger.Debug("player process exited", "error", err)
		close(exited)
	}()

	conn, err := dialSocket(ctx, socket, dialTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	m, err := newMPV(conn, logger)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	m.cmd = cmd
	m.socket = socket
	m.exited = exited

	go m.watchProcess()
	return m, nil
}

// newMPV wraps an established IPC connection
func newMPV(conn net.Conn, logger *slog.Logger) (*MPV, error) {
	m := &MPV{
		queue:  newEventQueue(),
		logger: logger,
		index:  -1,
		paused: true,
	}
	m.conn = newIPCConn(conn, m.handleEvent, logger)

	for i, name := range observedProperties {
		if _, err := m.conn.call("observe_property", i+1, name); err != nil {
			m.conn.close()
			m.queue.close()
			return nil, fmt.Errorf("observe %s: %w", name, err)
		}
	}
	return m, nil
}

func (m *MPV) watchProcess() {
	select {
	case <-m.exited:
	case <-m.conn.closed:
		return
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		m.logger.Error("player exited unexpectedly")
		m.queue.push(domain.WidgetEvent{Kind: domain.EventError, Err: errors.New("mpv exited")})
	}
}

func (m *MPV) Play() error {
	return m.command("set_property", "pause", false)
}

func (m *MPV) Pause() error {
	return m.command("set_property", "pause", true)
}

func (m *MPV) Seek(seconds float64) error {
	return m.command("seek", seconds, "absolute")
}

// ClearList stops playback and empties mpv's playlist
func (m *MPV) ClearList() error {
	if err := m.command("stop"); err != nil {
		return err
	}
	m.mu.Lock()
	m.tracks = nil
	m.index = -1
	m.position = 0
	m.mu.Unlock()
	return nil
}

// AddTrack appends to mpv's playlist without starting it
func (m *MPV) AddTrack(track domain.Track) error {
	if err := m.command("loadfile", track.URL, "append"); err != nil {
		return err
	}
	m.mu.Lock()
	m.tracks = append(m.tracks, track)
	m.mu.Unlock()
	return nil
}

func (m *MPV) SwitchTrack(index int) error {
	m.mu.Lock()
	count := len(m.tracks)
	m.mu.Unlock()
	if index < 0 || index >= count {
		return fmt.Errorf("switch to track %d of %d: out of range", index, count)
	}
	return m.command("set_property", "playlist-pos", index)
}

func (m *MPV) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *MPV) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MPV) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Duration(m.position * float64(time.Second))
}

func (m *MPV) Events() <-chan domain.WidgetEvent {
	return m.queue.out
}

// Destroy quits mpv and releases the socket. Safe to call more than once.
func (m *MPV) Destroy() error {
	m.destroyOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		if _, err := m.conn.call("quit"); err != nil && !errors.Is(err, errConnClosed) {
			m.logger.Debug("player quit command failed", "error", err)
		}
		m.conn.close()

		if m.cmd != nil {
			select {
			case <-m.exited:
			case <-time.After(quitTimeout):
				m.logger.Warn("player did not quit, killing it")
				m.destroyErr = m.cmd.Process.Kill()
			}
			_ = os.Remove(m.socket)
		}
		m.queue.close()
		m.logger.Info("player destroyed")
	})
	return m.destroyErr
}

func (m *MPV) command(args ...any) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return domain.ErrWidgetClosed
	}

	if _, err := m.conn.call(args...); err != nil {
		if errors.Is(err, errConnClosed) {
			return domain.ErrWidgetClosed
		}
		return err
	}
	return nil
}

// handleEvent runs on the IPC read loop
func (m *MPV) handleEvent(msg ipcMessage) {
	switch msg.Event {
	case "property-change":
		m.handleProperty(msg.Name, msg.Data)
	case "start-file":
		m.queue.push(domain.WidgetEvent{Kind: domain.EventLoadStart})
	case "file-loaded":
		m.attachLyrics()
		m.queue.push(domain.WidgetEvent{Kind: domain.EventCanPlay})
	case "end-file":
		if msg.Reason == "error" {
			m.queue.push(domain.WidgetEvent{Kind: domain.EventError, Err: fmt.Errorf("playback failed: %s", msg.FileError)})
		}
	}
}

func (m *MPV) handleProperty(name string, data json.RawMessage) {
	switch name {
	case "pause":
		var paused bool
		if json.Unmarshal(data, &paused) != nil {
			return
		}
		m.mu.Lock()
		changed := paused != m.paused
		m.paused = paused
		m.mu.Unlock()
		if !changed {
			return
		}
		if paused {
			m.queue.push(domain.WidgetEvent{Kind: domain.EventPause})
		} else {
			m.queue.push(domain.WidgetEvent{Kind: domain.EventPlay})
		}

	case "playlist-pos":
		index := -1
		if json.Unmarshal(data, &index) != nil {
			index = -1
		}
		m.mu.Lock()
		changed := index != m.index
		m.index = index
		if changed {
			m.position = 0
		}
		m.mu.Unlock()
		if changed && index >= 0 {
			m.queue.push(domain.WidgetEvent{Kind: domain.EventListSwitch, Index: index})
		}

	case "eof-reached":
		var eof bool
		if json.Unmarshal(data, &eof) == nil && eof {
			m.queue.push(domain.WidgetEvent{Kind: domain.EventEnded})
		}

	case "time-pos":
		var pos float64
		if json.Unmarshal(data, &pos) != nil {
			return
		}
		m.mu.Lock()
		m.position = pos
		m.mu.Unlock()
	}
}

// attachLyrics loads the current track's lrc as a subtitle track
func (m *MPV) attachLyrics() {
	m.mu.Lock()
	var lrc string
	if m.index >= 0 && m.index < len(m.tracks) {
		lrc = m.tracks[m.index].Lrc
	}
	m.mu.Unlock()

	if lrc != "" {
		m.conn.send("sub-add", lrc, "select")
	}
}
