package repositories

import "minime/internal/models"

// ItemRepository defines access to the shop's item catalog.
type ItemRepository interface {
	GetAll() ([]models.Item, error)
	GetByID(id string) (*models.Item, error)
	Create(item *models.Item) error
}
