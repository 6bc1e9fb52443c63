package repositories

import (
	"sync"

	"minime/internal/models"
)

// MemoryProfileStore is an in-memory ProfileStore for tests and throwaway
// sessions. It stores deep copies so callers cannot mutate the "persisted"
// state behind its back.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles []*models.UserProfile

	// SaveErr, when set, is returned by SaveAll; lets tests exercise the
	// retry-on-failure path.
	SaveErr error

	// SaveCalls counts completed SaveAll invocations.
	SaveCalls int
}

// NewMemoryProfileStore creates an empty in-memory store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{}
}

// LoadAll returns copies of the stored profiles.
func (s *MemoryProfileStore) LoadAll() ([]*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.UserProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		out = append(out, profile.Clone())
	}
	return out, nil
}

// SaveAll replaces the stored collection with copies of the given profiles.
func (s *MemoryProfileStore) SaveAll(profiles []*models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}

	stored := make([]*models.UserProfile, 0, len(profiles))
	for _, profile := range profiles {
		stored = append(stored, profile.Clone())
	}
	s.profiles = stored
	s.SaveCalls++
	return nil
}
