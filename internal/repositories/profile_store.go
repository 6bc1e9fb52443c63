package repositories

import "minime/internal/models"

// ProfileStore defines the persistence contract for the profile collection.
// The collection is always loaded and saved as a whole: one eager LoadAll at
// startup, batched SaveAll calls gated by the manager's dirty flag.
type ProfileStore interface {
	LoadAll() ([]*models.UserProfile, error)
	SaveAll(profiles []*models.UserProfile) error
}
