package services

import (
	"fmt"

	"minime/internal/models"
	"minime/internal/repositories"
)

// ShopService handles the customization item catalog and coin purchases.
type ShopService struct {
	itemRepo repositories.ItemRepository
}

// NewShopService creates a new ShopService.
func NewShopService(itemRepo repositories.ItemRepository) *ShopService {
	return &ShopService{itemRepo: itemRepo}
}

// GetCatalog retrieves all purchasable items.
func (s *ShopService) GetCatalog() ([]models.Item, error) {
	return s.itemRepo.GetAll()
}

// Purchase debits the item price from the user's balance, adds the item to
// their inventory and equips it. The ownership check, debit and inventory
// add happen as one atomic profile operation, so a double-tapped purchase
// button charges at most once. An insufficient balance leaves the user
// untouched — that is a routine outcome for a kid eyeing an expensive
// outfit, not an exceptional one.
func (s *ShopService) Purchase(user *models.UserProfile, itemID string) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, fmt.Errorf("item %s not found: %w", itemID, err)
	}

	if err := user.BuyItem(item.ID, item.Price); err != nil {
		return nil, fmt.Errorf("cannot purchase item %s (price: %d): %w", item.ID, item.Price, err)
	}

	switch item.Category {
	case models.CategoryOutfit:
		user.SetOutfit(item.ID)
	case models.CategoryAccessory:
		user.SetAccessory(item.ID)
	}

	return item, nil
}
