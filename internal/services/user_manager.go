package services

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/models"
	"minime/internal/repositories"
)

var (
	usernameRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
	displayNameRegex = regexp.MustCompile(`^[\w\s'-]{2,30}$`)
)

// UserManager owns the authoritative in-memory collection of all profiles,
// the current-user session pointer, and the persistence pipeline. Profiles
// report every committed mutation back through their dirty callback, and the
// manager batches those into whole-collection saves: periodic callers invoke
// SaveIfDirty (a no-op when clean or a save is in flight), while logout and
// shutdown force a synchronous SaveNow.
type UserManager struct {
	cfg   *config.GameConfig
	store repositories.ProfileStore
	bus   *events.Bus

	mu      sync.Mutex
	users   []*models.UserProfile
	index   map[string]*models.UserProfile // lower-cased username -> profile
	current *models.UserProfile
	dirty   bool
	saving  bool
	saveSeq uint64

	// saveMu serializes the actual store writes so a forced save can never
	// interleave with an in-flight background save on the same file.
	saveMu     sync.Mutex
	writtenSeq uint64 // guarded by saveMu
}

// NewUserManager loads the existing collection eagerly, sanitizes it and
// builds the username index.
func NewUserManager(cfg *config.GameConfig, store repositories.ProfileStore, bus *events.Bus) (*UserManager, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	m := &UserManager{
		cfg:   cfg,
		store: store,
		bus:   bus,
		index: make(map[string]*models.UserProfile),
	}

	profiles, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load user profiles: %w", err)
	}

	for _, profile := range profiles {
		key := strings.ToLower(profile.UserName)
		if _, exists := m.index[key]; exists {
			log.Printf("Skipping duplicate username %q in save data", profile.UserName)
			continue
		}
		profile.Attach(cfg, bus, m.MarkDirty)
		if profile.Sanitize() {
			log.Printf("Sanitized out-of-range values for user %s", profile.UserName)
			m.dirty = true
		}
		m.users = append(m.users, profile)
		m.index[key] = profile
	}

	log.Printf("UserManager initialized. Found %d user profiles.", len(m.users))
	return m, nil
}

// CreateUser validates the names, rejects duplicates (case-insensitive) and
// registers a new profile with the configured starting state. A validation
// failure aborts with no state change.
func (m *UserManager) CreateUser(userName, displayName string) (*models.UserProfile, error) {
	if err := m.validateUserName(userName); err != nil {
		return nil, err
	}
	if err := m.validateDisplayName(displayName); err != nil {
		return nil, err
	}

	m.mu.Lock()
	key := strings.ToLower(userName)
	if _, exists := m.index[key]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("username '%s' already taken", userName)
	}

	user := models.NewUserProfile(userName, displayName, m.cfg)
	user.Attach(m.cfg, m.bus, m.MarkDirty)
	m.users = append(m.users, user)
	m.index[key] = user
	m.dirty = true
	m.mu.Unlock()

	log.Printf("Created new user: %s (%s)", displayName, userName)
	if m.bus != nil {
		m.bus.Publish(events.Event{Type: events.UserCreated, Username: userName})
	}
	m.SaveIfDirty()
	return user, nil
}

// LoginUser makes the named user current. It fails when the name is unknown
// or the profile has been deactivated; daily-bonus processing is the
// caller's concern.
func (m *UserManager) LoginUser(userName string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.index[strings.ToLower(userName)]
	if !ok {
		return nil, fmt.Errorf("user with username %s not found", userName)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %s is deactivated", userName)
	}

	m.current = user
	log.Printf("User logged in: %s", user.DisplayName)
	return user, nil
}

// LogoutUser flushes any pending dirty state, then clears the current-user
// pointer. Safe to call with nobody logged in.
func (m *UserManager) LogoutUser() {
	m.mu.Lock()
	user := m.current
	m.current = nil
	m.mu.Unlock()

	if user == nil {
		return
	}
	log.Printf("User logged out: %s", user.DisplayName)
	if err := m.SaveNow(); err != nil {
		log.Printf("Warning: failed to save on logout: %v", err)
	}
}

// DeleteUser removes the profile from the collection and the index, logging
// the user out first if they are current.
func (m *UserManager) DeleteUser(userName string) error {
	m.mu.Lock()
	key := strings.ToLower(userName)
	user, ok := m.index[key]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("user with username %s not found", userName)
	}

	if m.current == user {
		m.current = nil
	}
	delete(m.index, key)
	for i, candidate := range m.users {
		if candidate == user {
			m.users = append(m.users[:i], m.users[i+1:]...)
			break
		}
	}
	m.dirty = true
	m.mu.Unlock()

	log.Printf("Deleted user: %s", userName)
	if m.bus != nil {
		m.bus.Publish(events.Event{Type: events.UserDeleted, Username: userName})
	}
	m.SaveIfDirty()
	return nil
}

// GetUserByName finds a user by username, case-insensitively.
func (m *UserManager) GetUserByName(userName string) *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index[strings.ToLower(userName)]
}

// GetUserByID finds a user by their immutable ID.
func (m *UserManager) GetUserByID(userID string) *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.UserID == userID {
			return user
		}
	}
	return nil
}

// CurrentUser returns the logged-in user, or nil.
func (m *UserManager) CurrentUser() *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetAllUsers returns a copy of the profile list.
func (m *UserManager) GetAllUsers() []*models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.UserProfile(nil), m.users...)
}

// UserCount returns the number of registered profiles.
func (m *UserManager) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// MarkDirty records that persistent state has changed since the last save.
// Every profile mutator calls back into this.
func (m *UserManager) MarkDirty() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}

// IsDirty reports whether unsaved changes are pending.
func (m *UserManager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// SaveIfDirty schedules a background save when there are unsaved changes and
// no save is already in flight; otherwise it is a no-op returning nil. The
// profile snapshot is deep-copied synchronously under the lock, so the write
// never observes a half-applied mutation. The returned channel reports the
// write outcome; a failed write re-marks the collection dirty so the next
// periodic attempt retries.
func (m *UserManager) SaveIfDirty() <-chan error {
	m.mu.Lock()
	if !m.dirty || m.saving {
		m.mu.Unlock()
		return nil
	}
	m.saving = true
	m.dirty = false
	m.saveSeq++
	seq := m.saveSeq
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		err := m.writeSnapshot(seq, snapshot)

		m.mu.Lock()
		m.saving = false
		if err != nil {
			m.dirty = true
		}
		m.mu.Unlock()

		if err != nil {
			log.Printf("Error saving profiles: %v", err)
		}
		done <- err
		close(done)
	}()
	return done
}

// SaveNow performs a forced synchronous save, used at logout and shutdown to
// guarantee durability before the process goes away.
func (m *UserManager) SaveNow() error {
	m.mu.Lock()
	m.saveSeq++
	seq := m.saveSeq
	snapshot := m.snapshotLocked()
	m.dirty = false
	m.mu.Unlock()

	if err := m.writeSnapshot(seq, snapshot); err != nil {
		m.MarkDirty()
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	return nil
}

// writeSnapshot performs the store write under saveMu. A snapshot older than
// the last one written is skipped, so a slow background save can never clobber
// the state a later forced save already persisted.
func (m *UserManager) writeSnapshot(seq uint64, snapshot []*models.UserProfile) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if seq <= m.writtenSeq {
		return nil
	}
	if err := m.store.SaveAll(snapshot); err != nil {
		return err
	}
	m.writtenSeq = seq
	return nil
}

func (m *UserManager) snapshotLocked() []*models.UserProfile {
	snapshot := make([]*models.UserProfile, 0, len(m.users))
	for _, user := range m.users {
		snapshot = append(snapshot, user.Clone())
	}
	return snapshot
}

func (m *UserManager) validateUserName(userName string) error {
	if !usernameRegex.MatchString(userName) {
		return fmt.Errorf("username must be 3-20 characters of letters, digits, underscore or hyphen")
	}
	if m.containsProfanity(userName) {
		return fmt.Errorf("username contains a blocked word")
	}
	return nil
}

func (m *UserManager) validateDisplayName(displayName string) error {
	if !displayNameRegex.MatchString(displayName) {
		return fmt.Errorf("display name must be 2-30 characters of letters, digits, spaces, apostrophes or hyphens")
	}
	if m.containsProfanity(displayName) {
		return fmt.Errorf("display name contains a blocked word")
	}
	return nil
}

func (m *UserManager) containsProfanity(name string) bool {
	lowered := strings.ToLower(name)
	for _, blocked := range m.cfg.ProfanityBlocklist {
		if blocked != "" && strings.Contains(lowered, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}
