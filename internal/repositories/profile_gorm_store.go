package repositories

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"minime/internal/models"
)

// GormProfileStore persists one row per profile in a relational database.
// It honors the same collection-granularity LoadAll/SaveAll contract as the
// JSON store, so the UserManager's dirty-flag batching works unchanged; it is
// the backend to pick when a deployment outgrows a single JSON document.
type GormProfileStore struct {
	db *gorm.DB
}

// NewGormProfileStore opens a database for the given driver ("sqlite" or
// "postgres") and migrates the profile table.
func NewGormProfileStore(driver, dsn string) (*GormProfileStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return NewGormProfileStoreWithDB(db)
}

// NewGormProfileStoreWithDB wraps an existing connection; used by tests with
// an in-memory SQLite database.
func NewGormProfileStoreWithDB(db *gorm.DB) (*GormProfileStore, error) {
	if err := db.AutoMigrate(&models.UserProfile{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profile table: %w", err)
	}
	return &GormProfileStore{db: db}, nil
}

// LoadAll reads every profile row.
func (s *GormProfileStore) LoadAll() ([]*models.UserProfile, error) {
	var profiles []*models.UserProfile
	if err := s.db.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return profiles, nil
}

// SaveAll upserts the given profiles and removes rows for profiles no longer
// in the collection, all in one transaction.
func (s *GormProfileStore) SaveAll(profiles []*models.UserProfile) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(profiles))
		for _, profile := range profiles {
			if err := tx.Save(profile).Error; err != nil {
				return fmt.Errorf("failed to save profile %s: %w", profile.UserName, err)
			}
			ids = append(ids, profile.UserID)
		}

		// Drop rows for deleted users.
		if len(ids) == 0 {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserProfile{}).Error
		}
		return tx.Where("user_id NOT IN ?", ids).Delete(&models.UserProfile{}).Error
	})
}
