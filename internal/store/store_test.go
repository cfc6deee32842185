package store

import (
	"path/filepath"
	"testing"

	"github.com/cantoplayer/canto/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canto.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleItems() []domain.PlaylistItem {
	return []domain.PlaylistItem{
		{ID: "/music/a.mp3-1", Name: "a.mp3", Artist: "Unknown", URL: "http://x/a.mp3", Path: "/music/a.mp3", Size: 1024},
		{ID: "/music/b.mp3-2", Name: "b.mp3", Artist: "Band", URL: "http://x/b.mp3", Path: "/music/b.mp3", Lrc: "http://x/b.lrc"},
	}
}

func TestPlaylistPersistence(t *testing.T) {
	t.Run("EmptyStoreLoadsDefaults", func(t *testing.T) {
		s, _ := openTestStore(t)

		loaded := s.Load()
		assert.Empty(t, loaded.Items)
		assert.NotNil(t, loaded.Items)
		assert.Equal(t, -1, loaded.CurrentIndex)
		assert.Equal(t, domain.PlayModeList, loaded.PlayMode)
	})

	t.Run("RoundTripAcrossReopen", func(t *testing.T) {
		s, path := openTestStore(t)
		s.Save(sampleItems())
		s.SaveState(1, domain.PlayModeSingle)
		require.NoError(t, s.Close())

		reopened, err := Open(path, nil)
		require.NoError(t, err)
		defer reopened.Close()

		loaded := reopened.Load()
		assert.Equal(t, sampleItems(), loaded.Items)
		assert.Equal(t, 1, loaded.CurrentIndex)
		assert.Equal(t, domain.PlayModeSingle, loaded.PlayMode)
	})

	t.Run("ZeroIndexSurvives", func(t *testing.T) {
		s, _ := openTestStore(t)
		s.Save(sampleItems())
		s.SaveState(0, domain.PlayModeList)

		assert.Equal(t, 0, s.Load().CurrentIndex)
	})

	t.Run("CorruptItemsFallBack", func(t *testing.T) {
		s, _ := openTestStore(t)
		require.NoError(t, s.setRaw(bucketPlaylist, keyItems, []byte("{not json")))
		s.SaveState(1, domain.PlayModeRandom)

		loaded := s.Load()
		assert.Empty(t, loaded.Items)
		// the index no longer points into the (empty) queue
		assert.Equal(t, -1, loaded.CurrentIndex)
		assert.Equal(t, domain.PlayModeRandom, loaded.PlayMode)
	})

	t.Run("CorruptStateFallsBack", func(t *testing.T) {
		s, _ := openTestStore(t)
		s.Save(sampleItems())
		require.NoError(t, s.setRaw(bucketPlaylist, keyState, []byte("[]")))

		loaded := s.Load()
		assert.Len(t, loaded.Items, 2)
		assert.Equal(t, -1, loaded.CurrentIndex)
		assert.Equal(t, domain.PlayModeList, loaded.PlayMode)
	})

	t.Run("UnknownModeAndBadIndex", func(t *testing.T) {
		s, _ := openTestStore(t)
		s.Save(sampleItems())
		require.NoError(t, s.setRaw(bucketPlaylist, keyState, []byte(`{"currentIndex":7,"playMode":"shuffle-all"}`)))

		loaded := s.Load()
		assert.Equal(t, -1, loaded.CurrentIndex)
		assert.Equal(t, domain.PlayModeList, loaded.PlayMode)
	})

	t.Run("DuplicateIdsDropped", func(t *testing.T) {
		s, _ := openTestStore(t)
		items := append(sampleItems(), sampleItems()[0])
		s.Save(items)

		assert.Len(t, s.Load().Items, 2)
	})

	t.Run("MemoryOnly", func(t *testing.T) {
		s, err := Open("", nil)
		require.NoError(t, err)
		s.Save(sampleItems())
		s.SaveState(1, domain.PlayModeList)

		loaded := s.Load()
		assert.Len(t, loaded.Items, 2)
		assert.Equal(t, 1, loaded.CurrentIndex)
		assert.NoError(t, s.Close())
	})
}

func TestFolderCache(t *testing.T) {
	s, _ := openTestStore(t)

	_, ok := s.GetFolders(domain.MediaKindAudio)
	assert.False(t, ok)

	folders := []domain.Folder{{ID: 1, Name: "Night"}, {ID: 2, Name: "Road"}}
	require.NoError(t, s.SaveFolders(domain.MediaKindAudio, folders))

	got, ok := s.GetFolders(domain.MediaKindAudio)
	require.True(t, ok)
	assert.Equal(t, "Road", got[1].Name)

	_, ok = s.GetFolders(domain.MediaKindVideo)
	assert.False(t, ok)

	s.InvalidateFolders(domain.MediaKindAudio)
	_, ok = s.GetFolders(domain.MediaKindAudio)
	assert.False(t, ok)

	require.NoError(t, s.setRaw(bucketFolders, string(domain.MediaKindImage), []byte("garbage")))
	_, ok = s.GetFolders(domain.MediaKindImage)
	assert.False(t, ok)

	require.NoError(t, s.SaveFolders(domain.MediaKindVideo, folders))
	require.NoError(t, s.Purge())
	_, ok = s.GetFolders(domain.MediaKindVideo)
	assert.False(t, ok)
}

func TestInvalidateFoldersSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canto.db")
	s, err := Open(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveFolders(domain.MediaKindAudio, []domain.Folder{{ID: 1, Name: "Night"}}))
	s.InvalidateFolders(domain.MediaKindAudio)
	// no bucket entry for this kind yet
	s.InvalidateFolders(domain.MediaKindImage)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, ok := s.GetFolders(domain.MediaKindAudio)
	assert.False(t, ok)
}
