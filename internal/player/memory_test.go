package player

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantoplayer/canto/internal/domain"
)

func nextEvent(t *testing.T, events <-chan domain.WidgetEvent) domain.WidgetEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for widget event")
		return domain.WidgetEvent{}
	}
}

func noEvent(t *testing.T, events <-chan domain.WidgetEvent) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryWidget(t *testing.T) {
	m := NewMemory(nil)
	t.Cleanup(func() { _ = m.Destroy() })

	require.NoError(t, m.AddTrack(domain.Track{Name: "one", URL: "http://x/1"}))
	require.NoError(t, m.AddTrack(domain.Track{Name: "two", URL: "http://x/2"}))
	assert.Equal(t, -1, m.Index())
	assert.True(t, m.Paused())

	require.NoError(t, m.SwitchTrack(1))
	assert.Equal(t, domain.WidgetEvent{Kind: domain.EventListSwitch, Index: 1}, nextEvent(t, m.Events()))
	assert.Equal(t, domain.EventLoadStart, nextEvent(t, m.Events()).Kind)
	assert.Equal(t, domain.EventCanPlay, nextEvent(t, m.Events()).Kind)
	assert.Equal(t, 1, m.Index())

	require.NoError(t, m.Play())
	assert.Equal(t, domain.EventPlay, nextEvent(t, m.Events()).Kind)
	require.NoError(t, m.Play())
	noEvent(t, m.Events())

	require.NoError(t, m.Seek(42))
	assert.Equal(t, 42*time.Second, m.Position())

	require.Error(t, m.SwitchTrack(5))

	m.Finish()
	assert.Equal(t, domain.EventEnded, nextEvent(t, m.Events()).Kind)
	assert.True(t, m.Paused())

	require.NoError(t, m.ClearList())
	assert.Equal(t, -1, m.Index())
	assert.Empty(t, m.Tracks())

	assert.Equal(t, []string{"add one", "add two", "switch 1", "play", "play", "seek 42", "clear"}, m.Calls())
}

func TestMemoryUserActions(t *testing.T) {
	m := NewMemory(nil)
	t.Cleanup(func() { _ = m.Destroy() })
	require.NoError(t, m.AddTrack(domain.Track{Name: "one"}))
	require.NoError(t, m.AddTrack(domain.Track{Name: "two"}))
	m.ResetCalls()

	m.UserPlay()
	assert.Equal(t, domain.EventPlay, nextEvent(t, m.Events()).Kind)
	m.UserPause()
	assert.Equal(t, domain.EventPause, nextEvent(t, m.Events()).Kind)
	m.UserSwitch(1)
	assert.Equal(t, domain.WidgetEvent{Kind: domain.EventListSwitch, Index: 1}, nextEvent(t, m.Events()))

	boom := errors.New("decode error")
	m.Fail(boom)
	for {
		ev := nextEvent(t, m.Events())
		if ev.Kind == domain.EventError {
			assert.ErrorIs(t, ev.Err, boom)
			break
		}
	}
	assert.Empty(t, m.Calls(), "user actions are not programmatic calls")
}

func TestMemoryDestroy(t *testing.T) {
	m := NewMemory(nil)
	require.NoError(t, m.Destroy())
	require.NoError(t, m.Destroy())
	assert.True(t, m.Closed())
	assert.ErrorIs(t, m.Play(), domain.ErrWidgetClosed)

	select {
	case _, ok := <-m.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}
