package storage

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
	"github.com/eugenenazirov/mockgov-settings/internal/settings"
)

var (
	// ErrNotLoaded is returned before the first snapshot has been stored.
	ErrNotLoaded = errors.New("no configuration loaded yet")
	// ErrNilSnapshot is returned when asked to store nothing.
	ErrNilSnapshot = errors.New("snapshot must not be nil")
)

// Snapshot is one fully loaded and validated configuration. It is never
// modified after it has been handed to a Store.
type Snapshot struct {
	Registry *registry.Registry
	Settings settings.Settings
	Sources  []string
	LoadedAt time.Time
	Version  uint64
}

// Storage provides access to the active configuration snapshot.
type Storage interface {
	Current() (*Snapshot, error)
	Replace(snap *Snapshot) error
}

// AtomicStorage swaps whole snapshots through an atomic pointer, so readers
// observe either the previous or the next configuration and never a mix.
// Readers take no lock; writers are serialised so versions stay monotonic.
type AtomicStorage struct {
	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	version uint64
}

// NewAtomicStorage returns an empty store.
func NewAtomicStorage() *AtomicStorage {
	return &AtomicStorage{}
}

// Current returns the active snapshot.
func (s *AtomicStorage) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Replace stamps snap with the next version and makes it current. The caller
// must not modify snap afterwards.
func (s *AtomicStorage) Replace(snap *Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	snap.Sources = cloneSources(snap.Sources)
	snap.Version = s.version
	s.current.Store(snap)
	return nil
}

func cloneSources(src []string) []string {
	if len(src) == 0 {
		return []string{}
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
