package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cantoplayer/canto/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPlaylist = []byte("playlist")
	bucketFolders  = []byte("folders")

	allBuckets = [][]byte{bucketPlaylist, bucketFolders}
)

// Keys within bucketPlaylist
const (
	keyItems = "items"
	keyState = "state"
)

// Store is the local key-value store backed by BoltDB.
// It implements domain.PlaylistPersistence and domain.FolderCache.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
	mu     sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens (or creates) the database at path. An empty path gives a
// memory-only store that forgets everything on exit.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return &Store{logger: logger, cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger, cache: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

// getRaw returns the stored bytes for a key, consulting the memory cache first
func (s *Store) getRaw(bucket []byte, key string) ([]byte, error) {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return data, nil
}

// get decodes a key into dest. Missing keys report false with a nil error;
// undecodable payloads report false with the decode error.
func (s *Store) get(bucket []byte, key string, dest any) (bool, error) {
	data, err := s.getRaw(bucket, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.setRaw(bucket, key, data)
}

func (s *Store) setRaw(bucket []byte, key string, data []byte) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *Store) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		s.logger.Warn("failed to delete key", "error", err, "bucket", string(bucket), "key", key)
	}
}

// Purge wipes every bucket and the memory cache
func (s *Store) Purge() error {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Folders (key: media kind) ===

func (s *Store) GetFolders(kind domain.MediaKind) ([]domain.Folder, bool) {
	var folders []domain.Folder
	ok, err := s.get(bucketFolders, string(kind), &folders)
	if err != nil {
		s.logger.Warn("discarding unreadable folder cache", "kind", kind, "error", err)
		s.delete(bucketFolders, string(kind))
		return nil, false
	}
	return folders, ok
}

func (s *Store) SaveFolders(kind domain.MediaKind, folders []domain.Folder) error {
	return s.set(bucketFolders, string(kind), folders)
}

func (s *Store) InvalidateFolders(kind domain.MediaKind) {
	s.delete(bucketFolders, string(kind))
}
