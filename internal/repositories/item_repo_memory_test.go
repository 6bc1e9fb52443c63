package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minime/internal/models"
	"minime/internal/repositories"
)

func TestMemoryItemRepository_CreateAndGet(t *testing.T) {
	repo := repositories.NewMemoryItemRepository()

	cap := models.Item{ID: "accessory-cap", Name: "Baseball Cap", Category: models.CategoryAccessory, Price: 25}
	assert.NoError(t, repo.Create(&cap))

	found, err := repo.GetByID("accessory-cap")
	assert.NoError(t, err)
	assert.Equal(t, "Baseball Cap", found.Name)

	_, err = repo.GetByID("no-such-item")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMemoryItemRepository_CreateAssignsID(t *testing.T) {
	repo := repositories.NewMemoryItemRepository()

	item := models.Item{Name: "Mystery Box", Category: models.CategoryAccessory, Price: 10}
	assert.NoError(t, repo.Create(&item))
	assert.NotEmpty(t, item.ID)

	found, err := repo.GetByID(item.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Mystery Box", found.Name)
}

func TestMemoryItemRepository_GetAllSorted(t *testing.T) {
	repo := repositories.NewMemoryItemRepository()
	for _, id := range []string{"c-item", "a-item", "b-item"} {
		assert.NoError(t, repo.Create(&models.Item{ID: id, Price: 1}))
	}

	items, err := repo.GetAll()
	assert.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "a-item", items[0].ID)
	assert.Equal(t, "b-item", items[1].ID)
	assert.Equal(t, "c-item", items[2].ID)
}
