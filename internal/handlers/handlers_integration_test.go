package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/handlers"
	"minime/internal/middleware"
	"minime/internal/models"
	"minime/internal/repositories"
	"minime/internal/services"
)

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// setupTestApp wires a full HTTP surface over an in-memory store, mirroring
// the wiring in main.go.
func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.Default()
	bus := events.NewBus()
	store := repositories.NewMemoryProfileStore()

	userManager, err := services.NewUserManager(cfg, store, bus)
	assert.NoError(t, err)

	dailyLogin := services.NewDailyLoginSystem(cfg, bus)
	decaySystem := services.NewMeterDecaySystem(cfg, bus)
	sessionService := services.NewSessionService("integration-test-secret")

	itemRepo := repositories.NewMemoryItemRepository()
	for _, item := range []models.Item{
		{ID: "accessory-cap", Name: "Baseball Cap", Category: models.CategoryAccessory, Price: 25},
		{ID: "outfit-astronaut", Name: "Astronaut Suit", Category: models.CategoryOutfit, Price: 120},
	} {
		assert.NoError(t, itemRepo.Create(&item))
	}
	shopService := services.NewShopService(itemRepo)

	userHandler := handlers.NewUserHandler(userManager, dailyLogin, sessionService)
	petHandler := handlers.NewPetHandler(userManager, decaySystem)
	shopHandler := handlers.NewShopHandler(shopService, userManager)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	userHandler.RegisterPublicRoutes(apiV1)
	protected := apiV1.Group("", middleware.SessionRequired(sessionService))
	userHandler.RegisterProtectedRoutes(protected)
	petHandler.RegisterRoutes(protected)
	shopHandler.RegisterRoutes(protected)

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		assert.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, username string) (string, map[string]interface{}) {
	t.Helper()

	status, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"username":     username,
		"display_name": "Integration Kid",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"username": username,
	})
	assert.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	return token, body
}

func TestIntegration_RegisterLoginAndBonus(t *testing.T) {
	app := setupTestApp(t)

	token, body := registerAndLogin(t, app, "int_player")
	assert.NotEmpty(t, token)

	bonus, ok := body["login_bonus"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, true, bonus["is_first_login_today"])
	assert.Equal(t, float64(1), bonus["current_streak"])
	assert.Equal(t, float64(10), bonus["coins_earned"])

	user, ok := body["user"].(map[string]interface{})
	assert.True(t, ok)
	// Starting coins plus the day-one login bonus.
	assert.Equal(t, float64(110), user["coins"])
}

func TestIntegration_RegisterValidation(t *testing.T) {
	app := setupTestApp(t)

	// Missing display name fails struct validation.
	status, body := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"username": "lonely",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])

	// Username shorter than the policy minimum fails manager validation.
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"username":     "ab",
		"display_name": "Shorty",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Duplicate registration conflicts, case-insensitively.
	registerAndLogin(t, app, "taken_name")
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"username":     "TAKEN_NAME",
		"display_name": "Copy Cat",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestIntegration_LoginUnknownUser(t *testing.T) {
	app := setupTestApp(t)

	status, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"username": "ghost",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIntegration_ProtectedRoutesRequireSession(t *testing.T) {
	app := setupTestApp(t)

	status, _ := doRequest(t, app, http.MethodGet, "/api/v1/pet/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/pet/status", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIntegration_PetCareFlow(t *testing.T) {
	app := setupTestApp(t)
	token, _ := registerAndLogin(t, app, "care_taker")

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/pet/status", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(75), body["hunger"])
	// 80/75/75 after the login happiness bonus: average 76.67.
	assert.Equal(t, "happy", body["mood"])

	status, body = doRequest(t, app, http.MethodPost, "/api/v1/pet/feed", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(95), body["hunger"])

	status, body = doRequest(t, app, http.MethodPost, "/api/v1/pet/rest", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100), body["energy"])

	status, body = doRequest(t, app, http.MethodPost, "/api/v1/pet/play", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(95), body["energy"])

	status, body = doRequest(t, app, http.MethodPost, "/api/v1/pet/homework", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["homework_completed"])
	assert.Equal(t, float64(115), body["coins"])
	assert.Equal(t, float64(10), body["experience_points"])
}

func TestIntegration_Customize(t *testing.T) {
	app := setupTestApp(t)
	token, _ := registerAndLogin(t, app, "stylist")

	status, body := doRequest(t, app, http.MethodPut, "/api/v1/pet/customize", token, fiber.Map{
		"eye_scale": 1.4,
		"outfit":    "outfit-astronaut",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.4, body["eye_scale"])
	assert.Equal(t, "outfit-astronaut", body["current_outfit"])
	// Accessory was absent from the request, so it stays untouched.
	assert.Equal(t, "none", body["current_accessory"])

	// Out-of-range eye scale clamps instead of failing.
	status, body = doRequest(t, app, http.MethodPut, "/api/v1/pet/customize", token, fiber.Map{
		"eye_scale": 9.0,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, body["eye_scale"])
}

func TestIntegration_ShopFlow(t *testing.T) {
	app := setupTestApp(t)
	token, _ := registerAndLogin(t, app, "shopper")

	status, _ := doRequest(t, app, http.MethodGet, "/api/v1/shop/items", token, nil)
	assert.Equal(t, http.StatusOK, status)

	// 110 coins after login bonus; the cap costs 25.
	status, body := doRequest(t, app, http.MethodPost, "/api/v1/shop/purchase", token, fiber.Map{
		"item_id": "accessory-cap",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(85), body["coins"])

	// Buying it again fails without another charge.
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/shop/purchase", token, fiber.Map{
		"item_id": "accessory-cap",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// 85 coins left; the astronaut suit costs 120.
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/shop/purchase", token, fiber.Map{
		"item_id": "outfit-astronaut",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/shop/purchase", token, fiber.Map{
		"item_id": "imaginary-thing",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/shop/purchase", token, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_UserManagementAndLogout(t *testing.T) {
	app := setupTestApp(t)
	token, _ := registerAndLogin(t, app, "admin_kid")
	registerAndLogin(t, app, "other_kid")

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/users/admin_kid", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin_kid", body["username"])

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/users/nobody", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/api/v1/users/other_kid", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/users/other_kid", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
}
