package playlist

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantoplayer/canto/internal/domain"
)

// memoryPersistence records what the store saves
type memoryPersistence struct {
	loaded     domain.PersistedPlaylist
	items      []domain.PlaylistItem
	index      int
	mode       domain.PlayMode
	saves      int
	stateSaves int
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{loaded: domain.DefaultPersistedPlaylist(), index: -1, mode: domain.PlayModeList}
}

func (m *memoryPersistence) Load() domain.PersistedPlaylist { return m.loaded }

func (m *memoryPersistence) Save(items []domain.PlaylistItem) {
	m.items = items
	m.saves++
}

func (m *memoryPersistence) SaveState(index int, mode domain.PlayMode) {
	m.index = index
	m.mode = mode
	m.stateSaves++
}

func item(id string) domain.PlaylistItem {
	return domain.PlaylistItem{ID: id, Name: id, URL: "http://host/d/" + id, Path: "/" + id}
}

func ids(items []domain.PlaylistItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// newQueue returns a store holding the given ids in order with nothing selected
func newQueue(t *testing.T, persist *memoryPersistence, idList ...string) *Store {
	t.Helper()
	for _, id := range idList {
		persist.loaded.Items = append(persist.loaded.Items, item(id))
	}
	return New(persist, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	st := s.Snapshot()
	if len(st.Items) == 0 {
		assert.Equal(t, -1, st.CurrentIndex, "empty queue has no selection")
		assert.False(t, st.IsPlaying, "empty queue never plays")
	} else {
		assert.True(t, st.CurrentIndex >= -1 && st.CurrentIndex < len(st.Items), "index %d out of range", st.CurrentIndex)
	}
	seen := map[string]bool{}
	for _, it := range st.Items {
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}

func TestAdd(t *testing.T) {
	t.Run("FirstItemSelected", func(t *testing.T) {
		p := newMemoryPersistence()
		s := New(p)
		s.Add(item("a"))

		st := s.Snapshot()
		assert.Equal(t, []string{"a"}, ids(st.Items))
		assert.Equal(t, 0, st.CurrentIndex)
		assert.False(t, st.IsPlaying)
		assert.Equal(t, []string{"a"}, ids(p.items))
		assert.Equal(t, 0, p.index)
	})

	t.Run("PrependsWithoutMovingIndex", func(t *testing.T) {
		s := New(newMemoryPersistence())
		s.Add(item("a"))
		s.Add(item("b"))
		s.Add(item("c"))

		st := s.Snapshot()
		assert.Equal(t, []string{"c", "b", "a"}, ids(st.Items))
		assert.Equal(t, 0, st.CurrentIndex)
	})

	t.Run("DuplicateIgnored", func(t *testing.T) {
		p := newMemoryPersistence()
		s := New(p)
		s.Add(item("a"))
		saves := p.saves
		s.Add(item("a"))

		assert.Equal(t, 1, s.Len())
		assert.Equal(t, saves, p.saves)
	})

	t.Run("DoesNotChangePlaying", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a")
		s.Play(0)
		s.Add(item("b"))
		assert.True(t, s.Snapshot().IsPlaying)
	})
}

func TestRemove(t *testing.T) {
	t.Run("BeforeCurrentShiftsIndex", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c")
		s.Play(2)
		s.Remove("a")

		st := s.Snapshot()
		assert.Equal(t, []string{"b", "c"}, ids(st.Items))
		assert.Equal(t, 1, st.CurrentIndex)
		assert.True(t, st.IsPlaying)
	})

	t.Run("AfterCurrentKeepsIndex", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c")
		s.Play(0)
		s.Remove("c")

		st := s.Snapshot()
		assert.Equal(t, 0, st.CurrentIndex)
		assert.True(t, st.IsPlaying)
	})

	t.Run("CurrentSelectsSuccessorAndStops", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c")
		s.Play(1)
		s.Remove("b")

		st := s.Snapshot()
		assert.Equal(t, []string{"a", "c"}, ids(st.Items))
		assert.Equal(t, 1, st.CurrentIndex)
		assert.False(t, st.IsPlaying)
	})

	t.Run("LastCurrentSelectsPredecessor", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c")
		s.Play(2)
		s.Remove("c")

		st := s.Snapshot()
		assert.Equal(t, 1, st.CurrentIndex)
		assert.False(t, st.IsPlaying)
	})

	t.Run("OnlyItem", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a")
		s.Play(0)
		s.Remove("a")

		st := s.Snapshot()
		assert.Empty(t, st.Items)
		assert.Equal(t, -1, st.CurrentIndex)
		assert.False(t, st.IsPlaying)
	})

	t.Run("UnknownIdIsNoop", func(t *testing.T) {
		p := newMemoryPersistence()
		s := newQueue(t, p, "a")
		s.Remove("zzz")
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 0, p.saves)
	})
}

func TestRemoveMany(t *testing.T) {
	t.Run("CurrentSurvives", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c", "d")
		s.Play(2)
		s.RemoveMany([]string{"a", "d"})

		st := s.Snapshot()
		assert.Equal(t, []string{"b", "c"}, ids(st.Items))
		assert.Equal(t, 1, st.CurrentIndex)
		assert.Equal(t, "c", st.Items[st.CurrentIndex].ID)
		assert.True(t, st.IsPlaying)
	})

	t.Run("CurrentRemoved", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c", "d")
		s.Play(3)
		s.RemoveMany([]string{"b", "d"})

		st := s.Snapshot()
		assert.Equal(t, []string{"a", "c"}, ids(st.Items))
		assert.Equal(t, 1, st.CurrentIndex)
		assert.False(t, st.IsPlaying)
	})

	t.Run("EverythingRemoved", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b")
		s.Play(0)
		s.RemoveMany([]string{"a", "b"})

		st := s.Snapshot()
		assert.Empty(t, st.Items)
		assert.Equal(t, -1, st.CurrentIndex)
		assert.False(t, st.IsPlaying)
	})

	t.Run("EmptyIdsIsNoop", func(t *testing.T) {
		p := newMemoryPersistence()
		s := newQueue(t, p, "a")
		s.RemoveMany(nil)
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 0, p.saves)
	})
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name      string
		current   int
		from, to  int
		wantOrder []string
		wantIndex int
	}{
		{"MoveCurrentForward", 0, 0, 2, []string{"b", "c", "a", "d"}, 2},
		{"MoveCurrentBack", 3, 3, 1, []string{"a", "d", "b", "c"}, 1},
		{"MoveOverCurrentForward", 2, 0, 3, []string{"b", "c", "d", "a"}, 1},
		{"MoveOverCurrentBack", 1, 3, 0, []string{"d", "a", "b", "c"}, 2},
		{"MoveOntoCurrentFromBelow", 2, 0, 2, []string{"b", "c", "a", "d"}, 1},
		{"MoveOntoCurrentFromAbove", 1, 3, 1, []string{"a", "d", "b", "c"}, 2},
		{"UnrelatedMove", 0, 2, 3, []string{"a", "b", "d", "c"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newQueue(t, newMemoryPersistence(), "a", "b", "c", "d")
			s.Select(tt.current)
			selected := s.Snapshot().Items[tt.current].ID

			s.Reorder(tt.from, tt.to)

			st := s.Snapshot()
			assert.Equal(t, tt.wantOrder, ids(st.Items))
			assert.Equal(t, tt.wantIndex, st.CurrentIndex)
			assert.Equal(t, selected, st.Items[st.CurrentIndex].ID, "selected track follows the move")
		})
	}

	t.Run("OutOfRangeIsNoop", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b")
		s.Reorder(-1, 1)
		s.Reorder(0, 5)
		s.Reorder(1, 1)
		assert.Equal(t, []string{"a", "b"}, ids(s.Snapshot().Items))
	})
}

func TestClear(t *testing.T) {
	p := newMemoryPersistence()
	s := newQueue(t, p, "a", "b")
	s.Play(1)
	s.Clear()

	st := s.Snapshot()
	assert.Empty(t, st.Items)
	assert.Equal(t, -1, st.CurrentIndex)
	assert.False(t, st.IsPlaying)
	assert.Empty(t, p.items)
	assert.Equal(t, -1, p.index)
}

func TestPlay(t *testing.T) {
	p := newMemoryPersistence()
	s := newQueue(t, p, "a", "b", "c")

	s.Play(1)
	st := s.Snapshot()
	assert.Equal(t, 1, st.CurrentIndex)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, 1, p.index)

	s.Play(7)
	s.Play(-1)
	assert.Equal(t, 1, s.Snapshot().CurrentIndex, "invalid index ignored")
}

func TestListMode(t *testing.T) {
	s := newQueue(t, newMemoryPersistence(), "a", "b", "c")

	t.Run("NextWraps", func(t *testing.T) {
		s.Select(2)
		assert.Equal(t, 0, s.NextIndex())
		s.Select(0)
		assert.Equal(t, 1, s.NextIndex())
	})

	t.Run("PreviousWraps", func(t *testing.T) {
		s.Select(0)
		assert.Equal(t, 2, s.PreviousIndex())
		s.Select(2)
		assert.Equal(t, 1, s.PreviousIndex())
	})

	t.Run("NothingSelected", func(t *testing.T) {
		fresh := newQueue(t, newMemoryPersistence(), "a", "b", "c")
		assert.Equal(t, 0, fresh.NextIndex())
		assert.Equal(t, 2, fresh.PreviousIndex())
	})

	t.Run("EmptyQueue", func(t *testing.T) {
		empty := New(nil)
		assert.Equal(t, -1, empty.NextIndex())
		assert.Equal(t, -1, empty.PreviousIndex())
		empty.PlayNext()
		empty.PlayPrevious()
		assert.False(t, empty.Snapshot().IsPlaying)
	})
}

func TestAddThenPlayNextWraps(t *testing.T) {
	s := New(nil)

	s.Add(item("a"))
	assert.Equal(t, 0, s.Snapshot().CurrentIndex)
	s.Add(item("b"))

	s.PlayNext()
	assert.Equal(t, 1, s.Snapshot().CurrentIndex)
	s.PlayNext()
	assert.Equal(t, 0, s.Snapshot().CurrentIndex)
	assert.True(t, s.Snapshot().IsPlaying)
}

func TestSingleMode(t *testing.T) {
	s := newQueue(t, newMemoryPersistence(), "a", "b", "c")
	s.SetPlayMode(domain.PlayModeSingle)
	s.Play(1)

	assert.Equal(t, 1, s.NextIndex())
	assert.Equal(t, 1, s.PreviousIndex())
	s.PlayNext()
	assert.Equal(t, 1, s.Snapshot().CurrentIndex)
}

func TestRandomMode(t *testing.T) {
	t.Run("AvoidsCurrent", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c", "d")
		s.SetPlayMode(domain.PlayModeRandom)

		for i := range 200 {
			current := i % 4
			s.Select(current)
			next := s.NextIndex()
			require.NotEqual(t, current, next)
			require.True(t, next >= 0 && next < 4)
			prev := s.PreviousIndex()
			require.NotEqual(t, current, prev)
		}
	})

	t.Run("CoversEveryOtherTrack", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b", "c", "d")
		s.SetPlayMode(domain.PlayModeRandom)
		s.Select(0)

		seen := map[int]bool{}
		for range 400 {
			seen[s.NextIndex()] = true
		}
		assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
	})

	t.Run("SingleItem", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a")
		s.SetPlayMode(domain.PlayModeRandom)
		s.Select(0)
		assert.Equal(t, 0, s.NextIndex())
	})

	t.Run("RepeatableShuffle", func(t *testing.T) {
		p := newMemoryPersistence()
		p.loaded.Items = []domain.PlaylistItem{item("a"), item("b")}
		s := New(p, WithRand(rand.New(rand.NewPCG(3, 4))), WithRepeatableShuffle())
		s.SetPlayMode(domain.PlayModeRandom)
		s.Select(0)

		seen := map[int]bool{}
		for range 200 {
			seen[s.NextIndex()] = true
		}
		assert.True(t, seen[0], "current track can be picked again")
		assert.True(t, seen[1])
	})
}

func TestTogglePlay(t *testing.T) {
	t.Run("EmptyQueueNeverPlays", func(t *testing.T) {
		s := New(nil)
		s.TogglePlay()
		assert.False(t, s.Snapshot().IsPlaying)
	})

	t.Run("Flips", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b")
		s.Select(1)
		s.TogglePlay()
		assert.True(t, s.Snapshot().IsPlaying)
		s.TogglePlay()
		assert.False(t, s.Snapshot().IsPlaying)
		assert.Equal(t, 1, s.Snapshot().CurrentIndex)
	})

	t.Run("NothingSelectedStartsFirst", func(t *testing.T) {
		s := newQueue(t, newMemoryPersistence(), "a", "b")
		s.TogglePlay()
		st := s.Snapshot()
		assert.True(t, st.IsPlaying)
		assert.Equal(t, 0, st.CurrentIndex)
	})
}

func TestSetPlaying(t *testing.T) {
	s := New(nil)
	s.SetPlaying(true)
	assert.False(t, s.Snapshot().IsPlaying, "empty queue refuses to play")

	s.Add(item("a"))
	s.SetPlaying(true)
	assert.True(t, s.Snapshot().IsPlaying)
	s.SetPlaying(false)
	assert.False(t, s.Snapshot().IsPlaying)
}

func TestPlayModePersisted(t *testing.T) {
	p := newMemoryPersistence()
	s := New(p)

	s.SetPlayMode(domain.PlayModeRandom)
	assert.Equal(t, domain.PlayModeRandom, p.mode)

	s.SetPlayMode("bogus")
	assert.Equal(t, domain.PlayModeRandom, s.Snapshot().PlayMode)

	assert.Equal(t, domain.PlayModeSingle, s.CyclePlayMode())
	assert.Equal(t, domain.PlayModeList, s.CyclePlayMode())
	assert.Equal(t, domain.PlayModeList, p.mode)
}

func TestHydrate(t *testing.T) {
	t.Run("RestoresState", func(t *testing.T) {
		p := newMemoryPersistence()
		p.loaded = domain.PersistedPlaylist{
			Items:        []domain.PlaylistItem{item("a"), item("b")},
			CurrentIndex: 1,
			PlayMode:     domain.PlayModeSingle,
		}
		st := New(p).Snapshot()
		assert.Equal(t, []string{"a", "b"}, ids(st.Items))
		assert.Equal(t, 1, st.CurrentIndex)
		assert.Equal(t, domain.PlayModeSingle, st.PlayMode)
		assert.False(t, st.IsPlaying, "playback never resumes on its own")
	})

	t.Run("RepairsBadState", func(t *testing.T) {
		p := newMemoryPersistence()
		p.loaded = domain.PersistedPlaylist{
			Items:        []domain.PlaylistItem{item("a")},
			CurrentIndex: 5,
			PlayMode:     "shuffle-all",
		}
		st := New(p).Snapshot()
		assert.Equal(t, -1, st.CurrentIndex)
		assert.Equal(t, domain.PlayModeList, st.PlayMode)
	})

	t.Run("SurvivesRestart", func(t *testing.T) {
		p := newMemoryPersistence()
		s := New(p)
		s.Add(item("a"))
		s.Add(item("b"))
		s.Play(1)
		s.SetPlayMode(domain.PlayModeRandom)

		p.loaded = domain.PersistedPlaylist{Items: p.items, CurrentIndex: p.index, PlayMode: p.mode}
		st := New(p).Snapshot()
		assert.Equal(t, []string{"b", "a"}, ids(st.Items))
		assert.Equal(t, 1, st.CurrentIndex)
		assert.Equal(t, domain.PlayModeRandom, st.PlayMode)
	})
}

func TestSleepTimer(t *testing.T) {
	now := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	p := newMemoryPersistence()
	p.loaded.Items = []domain.PlaylistItem{item("a")}
	s := New(p, WithClock(clock))
	s.Play(0)

	_, ok := s.SleepRemaining()
	assert.False(t, ok)

	s.SetSleepTimer(30)
	st := s.Snapshot()
	assert.Equal(t, now.Add(30*time.Minute), st.SleepDeadline)
	assert.Equal(t, 30.0, st.SleepDuration)

	now = now.Add(29 * time.Minute)
	remaining, ok := s.SleepRemaining()
	assert.True(t, ok)
	assert.Equal(t, time.Minute, remaining)
	assert.False(t, s.CheckSleepTimer())
	assert.True(t, s.Snapshot().IsPlaying)

	now = now.Add(time.Minute)
	assert.True(t, s.CheckSleepTimer())
	st = s.Snapshot()
	assert.False(t, st.IsPlaying)
	assert.True(t, st.SleepDeadline.IsZero())
	assert.Zero(t, st.SleepDuration)
	assert.False(t, s.CheckSleepTimer(), "fires once")

	t.Run("Cancel", func(t *testing.T) {
		s.SetSleepTimer(1.5)
		s.CancelSleepTimer()
		assert.True(t, s.Snapshot().SleepDeadline.IsZero())

		s.SetSleepTimer(10)
		s.SetSleepTimer(0)
		_, ok := s.SleepRemaining()
		assert.False(t, ok)
	})
}

func TestSubscription(t *testing.T) {
	s := New(nil)
	sub := s.Subscribe()
	defer sub.Close()

	s.Add(item("a"))
	s.SetPlayMode(domain.PlayModeSingle)
	s.Play(0)

	select {
	case <-sub.C():
	default:
		t.Fatal("expected a pending notification")
	}
	changes := sub.Take()
	assert.True(t, changes.Has(ChangeItems|ChangeIndex|ChangePlaying|ChangeMode))
	assert.False(t, changes.Any(ChangeSleep))
	assert.Equal(t, Change(0), sub.Take())

	select {
	case <-sub.C():
		t.Fatal("notifications coalesce into one signal")
	default:
	}

	s.Play(0)
	assert.Equal(t, Change(0), sub.Take(), "no-op mutation does not notify")

	sub.Close()
	s.Clear()
	assert.Equal(t, Change(0), sub.Take())
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "none", Change(0).String())
	assert.Equal(t, "items|playing", (ChangeItems | ChangePlaying).String())
}

func TestInvariantsUnderRandomOperations(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	s := New(newMemoryPersistence(), WithRand(r))

	for step := range 2000 {
		n := s.Len()
		switch r.IntN(11) {
		case 0, 1:
			s.Add(item(fmt.Sprintf("t%d", r.IntN(12))))
		case 2:
			s.Remove(fmt.Sprintf("t%d", r.IntN(12)))
		case 3:
			s.RemoveMany([]string{fmt.Sprintf("t%d", r.IntN(12)), fmt.Sprintf("t%d", r.IntN(12))})
		case 4:
			s.Reorder(r.IntN(n+1), r.IntN(n+1))
		case 5:
			s.Play(r.IntN(n+2) - 1)
		case 6:
			s.PlayNext()
		case 7:
			s.PlayPrevious()
		case 8:
			s.TogglePlay()
		case 9:
			s.CyclePlayMode()
		case 10:
			if r.IntN(10) == 0 {
				s.Clear()
			}
		}
		assertInvariants(t, s)
		if t.Failed() {
			t.Fatalf("invariant broken at step %d", step)
		}
	}
}
