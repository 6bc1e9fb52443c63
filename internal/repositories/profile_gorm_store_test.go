package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"minime/internal/models"
	"minime/internal/repositories"
)

func newSQLiteStore(t *testing.T) *repositories.GormProfileStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	store, err := repositories.NewGormProfileStoreWithDB(db)
	assert.NoError(t, err)
	return store
}

func TestGormStore_RoundTrip(t *testing.T) {
	store := newSQLiteStore(t)

	alice := profileNamed("alice")
	alice.AddCoins(75)
	alice.AddItem("outfit-wizard")
	alice.AddItem("accessory-cap")

	assert.NoError(t, store.SaveAll([]*models.UserProfile{alice, profileNamed("bob")}))

	loaded, err := store.LoadAll()
	assert.NoError(t, err)
	assert.Len(t, loaded, 2)

	byName := make(map[string]*models.UserProfile)
	for _, profile := range loaded {
		byName[profile.UserName] = profile
	}
	assert.Equal(t, alice.Coins, byName["alice"].Coins)
	assert.Equal(t, []string{"accessory-cap", "outfit-wizard"}, byName["alice"].OwnedItems)
	assert.NotNil(t, byName["bob"])
}

func TestGormStore_SaveAllRemovesDeletedUsers(t *testing.T) {
	store := newSQLiteStore(t)

	keeper := profileNamed("keeper")
	doomed := profileNamed("doomed")
	assert.NoError(t, store.SaveAll([]*models.UserProfile{keeper, doomed}))

	// The next save no longer contains doomed; the row must go away.
	assert.NoError(t, store.SaveAll([]*models.UserProfile{keeper}))

	loaded, err := store.LoadAll()
	assert.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, "keeper", loaded[0].UserName)
}

func TestGormStore_SaveAllEmptyClearsTable(t *testing.T) {
	store := newSQLiteStore(t)

	assert.NoError(t, store.SaveAll([]*models.UserProfile{profileNamed("fleeting")}))
	assert.NoError(t, store.SaveAll([]*models.UserProfile{}))

	loaded, err := store.LoadAll()
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestGormStore_UpsertsExistingRows(t *testing.T) {
	store := newSQLiteStore(t)

	kid := profileNamed("upsert_kid")
	assert.NoError(t, store.SaveAll([]*models.UserProfile{kid}))

	kid.AddCoins(500)
	kid.CompleteHomework()
	assert.NoError(t, store.SaveAll([]*models.UserProfile{kid}))

	loaded, err := store.LoadAll()
	assert.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, kid.Coins, loaded[0].Coins)
	assert.Equal(t, 1, loaded[0].HomeworkCompleted)
}

func TestGormStore_RejectsUnknownDriver(t *testing.T) {
	store, err := repositories.NewGormProfileStore("oracle", "whatever")
	assert.Error(t, err)
	assert.Nil(t, store)
}
