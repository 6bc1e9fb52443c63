package repositories

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"minime/internal/models"
)

// profileCollection is the on-disk shape: one JSON document wrapping the
// whole profile array.
type profileCollection struct {
	Profiles []*models.UserProfile `json:"profiles"`
}

// JSONProfileStore persists the entire profile collection as a single JSON
// document. Writes are atomic (temp file + rename) and the previous file is
// copied to a timestamped backup first; only the most recent backups are
// retained. Loading falls back to the newest backup when the primary file is
// corrupt, and to an empty collection when nothing is recoverable — a broken
// save file must never stop the game from starting.
type JSONProfileStore struct {
	path        string
	backupCount int
}

// NewJSONProfileStore creates a store writing to the given file path,
// retaining backupCount timestamped backups (0 disables backups).
func NewJSONProfileStore(path string, backupCount int) *JSONProfileStore {
	return &JSONProfileStore{
		path:        path,
		backupCount: backupCount,
	}
}

// SaveAll writes the collection atomically, rotating a backup of the
// previous file first.
func (s *JSONProfileStore) SaveAll(profiles []*models.UserProfile) error {
	data, err := json.MarshalIndent(profileCollection{Profiles: profiles}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	if err := s.rotateBackup(); err != nil {
		// A failed backup should not block the save itself.
		log.Printf("Warning: backup rotation failed: %v", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace save file: %w", err)
	}

	return nil
}

// LoadAll reads the collection eagerly. A missing file yields an empty
// collection; a corrupt file triggers recovery from the newest backup.
func (s *JSONProfileStore) LoadAll() ([]*models.UserProfile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Printf("No save file at %s. Starting fresh.", s.path)
		return []*models.UserProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save file: %w", err)
	}

	profiles, err := decodeProfiles(data)
	if err == nil {
		return profiles, nil
	}

	log.Printf("Save file %s is corrupt (%v). Attempting backup recovery.", s.path, err)
	if recovered := s.recoverFromBackups(); recovered != nil {
		return recovered, nil
	}

	log.Printf("No usable backup found. Starting with an empty collection.")
	return []*models.UserProfile{}, nil
}

func decodeProfiles(data []byte) ([]*models.UserProfile, error) {
	var collection profileCollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, err
	}
	if collection.Profiles == nil {
		collection.Profiles = []*models.UserProfile{}
	}
	return collection.Profiles, nil
}

// rotateBackup copies the current save file to a timestamped sibling and
// prunes old backups down to the configured retention.
func (s *JSONProfileStore) rotateBackup() error {
	if s.backupCount <= 0 {
		return nil
	}

	current, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil // nothing to back up yet
	}
	if err != nil {
		return fmt.Errorf("failed to read current save file: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup_%s", s.path, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(backupPath, current, 0o644); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", backupPath, err)
	}

	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	for i := s.backupCount; i < len(backups); i++ {
		if err := os.Remove(backups[i]); err != nil {
			log.Printf("Warning: failed to prune old backup %s: %v", backups[i], err)
		}
	}
	return nil
}

// listBackups returns the backup paths, newest first. The timestamp format
// sorts lexically, so a plain string sort is enough.
func (s *JSONProfileStore) listBackups() ([]string, error) {
	backups, err := filepath.Glob(s.path + ".backup_*")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// recoverFromBackups tries each backup from newest to oldest and returns the
// first collection that decodes, or nil when none do.
func (s *JSONProfileStore) recoverFromBackups() []*models.UserProfile {
	backups, err := s.listBackups()
	if err != nil {
		log.Printf("Warning: %v", err)
		return nil
	}

	for _, backup := range backups {
		data, err := os.ReadFile(backup)
		if err != nil {
			log.Printf("Warning: failed to read backup %s: %v", backup, err)
			continue
		}
		profiles, err := decodeProfiles(data)
		if err != nil {
			log.Printf("Warning: backup %s is also corrupt: %v", backup, err)
			continue
		}
		log.Printf("Recovered %d profiles from backup %s", len(profiles), backup)
		return profiles
	}
	return nil
}
