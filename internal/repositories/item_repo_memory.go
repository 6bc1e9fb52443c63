package repositories

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"minime/internal/models"
)

// MemoryItemRepository is an in-memory implementation of ItemRepository.
// The catalog is small and static per deployment, so it is seeded at startup
// rather than persisted.
type MemoryItemRepository struct {
	items map[string]models.Item
	mu    sync.RWMutex
}

// NewMemoryItemRepository creates a new empty catalog.
func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{
		items: make(map[string]models.Item),
	}
}

// GetAll returns the catalog sorted by item ID.
func (r *MemoryItemRepository) GetAll() ([]models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemList := make([]models.Item, 0, len(r.items))
	for _, item := range r.items {
		itemList = append(itemList, item)
	}
	sort.Slice(itemList, func(i, j int) bool { return itemList[i].ID < itemList[j].ID })
	return itemList, nil
}

// GetByID returns an item by its ID.
func (r *MemoryItemRepository) GetByID(id string) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item with ID %s not found", id)
	}
	return &item, nil
}

// Create adds a new item to the catalog.
func (r *MemoryItemRepository) Create(item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	r.items[item.ID] = *item
	return nil
}
