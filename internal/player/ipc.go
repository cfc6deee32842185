package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	callTimeout  = 5 * time.Second
	dialInterval = 50 * time.Millisecond
)

var errConnClosed = errors.New("mpv connection closed")

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage is either a command reply (RequestID set, Event empty) or an event
type ipcMessage struct {
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID *int64          `json:"request_id,omitempty"`
}

// ipcConn speaks mpv's newline delimited JSON IPC protocol
type ipcConn struct {
	conn    net.Conn
	logger  *slog.Logger
	onEvent func(ipcMessage)

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan ipcMessage

	closed    chan struct{}
	closeOnce sync.Once
}

// dialSocket connects to the IPC socket, retrying while mpv starts up
func dialSocket(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to mpv socket %s: %w", path, err)
		case <-time.After(dialInterval):
		}
	}
}

func newIPCConn(conn net.Conn, onEvent func(ipcMessage), logger *slog.Logger) *ipcConn {
	c := &ipcConn{
		conn:    conn,
		logger:  logger,
		onEvent: onEvent,
		pending: make(map[int64]chan ipcMessage),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *ipcConn) readLoop() {
	defer c.close()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			c.logger.Warn("unreadable mpv message", "error", err)
			continue
		}

		if msg.Event != "" {
			c.onEvent(msg)
			continue
		}
		if msg.RequestID == nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*msg.RequestID]
		delete(c.pending, *msg.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug("mpv connection read ended", "error", err)
	}
}

func (c *ipcConn) write(id int64, command []any) error {
	data, err := json.Marshal(ipcRequest{Command: command, RequestID: id})
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("mpv %v: %w", command[0], err)
	}
	return nil
}

// call sends a command and waits for its reply
func (c *ipcConn) call(command ...any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan ipcMessage, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(id, command); err != nil {
		return nil, err
	}

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", command[0], reply.Error)
		}
		return reply.Data, nil
	case <-c.closed:
		return nil, errConnClosed
	case <-timer.C:
		return nil, fmt.Errorf("mpv %v: no reply after %s", command[0], callTimeout)
	}
}

// send writes a command without waiting for the reply.
// Event handlers use it since they run on the read loop.
func (c *ipcConn) send(command ...any) {
	if err := c.write(c.nextID.Add(1), command); err != nil {
		c.logger.Warn("mpv command failed", "error", err)
	}
}

func (c *ipcConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}
