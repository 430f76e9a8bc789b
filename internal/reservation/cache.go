package reservation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"busseat/pkg/cache"

	"github.com/google/uuid"
)

// CacheEntry is the last known seat vector of one run. It is advisory;
// the server wins every disagreement.
type CacheEntry struct {
	RunID       uuid.UUID  `json:"run_id"`
	Seats       SeatVector `json:"seats"`
	FreeCount   int        `json:"free_count"`
	FetchedAt   time.Time  `json:"fetched_at"`
	NeedsResync bool       `json:"needs_resync"`
}

func newCacheEntry(runID uuid.UUID, seats SeatVector, now time.Time) *CacheEntry {
	seats = seats.clone()
	return &CacheEntry{
		RunID:     runID,
		Seats:     seats,
		FreeCount: seats.FreeCount(),
		FetchedAt: now.UTC(),
	}
}

func (e *CacheEntry) clone() *CacheEntry {
	out := *e
	out.Seats = e.Seats.clone()
	return &out
}

// CacheStore persists one entry per run. Load returns cache.ErrCacheMiss
// when nothing is stored for the run.
type CacheStore interface {
	Load(runID uuid.UUID) (*CacheEntry, error)
	Save(entry *CacheEntry) error
	Delete(runID uuid.UUID) error
}

// FileCacheStore keeps each entry in its own JSON file so it survives restarts
type FileCacheStore struct {
	dir string
}

func NewFileCacheStore(dir string) *FileCacheStore {
	return &FileCacheStore{dir: dir}
}

func (s *FileCacheStore) path(runID uuid.UUID) string {
	return filepath.Join(s.dir, "seats_"+runID.String()+".json")
}

func (s *FileCacheStore) Load(runID uuid.UUID) (*CacheEntry, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read seat cache: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode seat cache: %w", err)
	}
	if entry.RunID != runID {
		return nil, fmt.Errorf("seat cache for %s holds run %s", runID, entry.RunID)
	}
	return &entry, nil
}

// Save writes to a temp file and renames it over the old entry, so a
// crash mid-write never leaves a torn file behind
func (s *FileCacheStore) Save(entry *CacheEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode seat cache: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".seats-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write seat cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write seat cache: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(entry.RunID)); err != nil {
		return fmt.Errorf("failed to replace seat cache: %w", err)
	}
	return nil
}

func (s *FileCacheStore) Delete(runID uuid.UUID) error {
	if err := os.Remove(s.path(runID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete seat cache: %w", err)
	}
	return nil
}

// MemoryCacheStore keeps entries for the life of the process
type MemoryCacheStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*CacheEntry
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{entries: make(map[uuid.UUID]*CacheEntry)}
}

func (s *MemoryCacheStore) Load(runID uuid.UUID) (*CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[runID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return entry.clone(), nil
}

func (s *MemoryCacheStore) Save(entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.RunID] = entry.clone()
	return nil
}

func (s *MemoryCacheStore) Delete(runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, runID)
	return nil
}
