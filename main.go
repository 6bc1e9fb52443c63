package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"minime/internal/config"
	"minime/internal/events"
	"minime/internal/handlers"
	"minime/internal/middleware"
	"minime/internal/models"
	"minime/internal/repositories"
	"minime/internal/services"
	"minime/pkg/eventmq"
)

// App bundles the wired components so tests can reach past the HTTP surface.
type App struct {
	Fiber       *fiber.App
	Users       *services.UserManager
	Game        *services.GameManager
	Bus         *events.Bus
	ItemCatalog repositories.ItemRepository
}

// NewApp wires the whole service from a configuration object: store, event
// bus, the game systems, and the Fiber app with all routes registered.
func NewApp(cfg *config.GameConfig) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	bus := events.NewBus()
	store := openStore(cfg)

	userManager, err := services.NewUserManager(cfg, store, bus)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user manager: %w", err)
	}

	dailyLogin := services.NewDailyLoginSystem(cfg, bus)
	decaySystem := services.NewMeterDecaySystem(cfg, bus)
	gameManager := services.NewGameManager(cfg, userManager, decaySystem)
	sessionService := services.NewSessionService(cfg.JWTSecret)

	itemRepo := repositories.NewMemoryItemRepository()
	shopService := services.NewShopService(itemRepo)

	userHandler := handlers.NewUserHandler(userManager, dailyLogin, sessionService)
	petHandler := handlers.NewPetHandler(userManager, decaySystem)
	shopHandler := handlers.NewShopHandler(shopService, userManager)

	app := fiber.New()
	app.Use(logger.New()) // Request logger

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"users":  userManager.UserCount(),
		})
	})

	apiV1 := app.Group("/api/v1")

	// Registration and login need no session.
	userHandler.RegisterPublicRoutes(apiV1)

	// Everything else does.
	protectedRoutes := apiV1.Group("", middleware.SessionRequired(sessionService))
	userHandler.RegisterProtectedRoutes(protectedRoutes)
	petHandler.RegisterRoutes(protectedRoutes)
	shopHandler.RegisterRoutes(protectedRoutes)

	return &App{
		Fiber:       app,
		Users:       userManager,
		Game:        gameManager,
		Bus:         bus,
		ItemCatalog: itemRepo,
	}, nil
}

// openStore picks the persistence backend from configuration. A database
// that cannot be opened falls back to the JSON file store so a bad DSN never
// keeps the game from starting.
func openStore(cfg *config.GameConfig) repositories.ProfileStore {
	switch cfg.StorageDriver {
	case "sqlite", "postgres":
		store, err := repositories.NewGormProfileStore(cfg.StorageDriver, cfg.DatabaseDSN)
		if err != nil {
			log.Printf("Failed to open %s store: %v. Falling back to JSON file store.", cfg.StorageDriver, err)
			break
		}
		return store
	}
	return repositories.NewJSONProfileStore(cfg.SaveFilePath, cfg.BackupCount)
}

func main() {
	cfg := config.Load()

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	seedItems(app.ItemCatalog)

	// Optional celebration-event forwarding to RabbitMQ.
	if cfg.AMQPUrl != "" {
		mqClient, err := eventmq.NewClient(eventmq.Config{URL: cfg.AMQPUrl})
		if err != nil {
			log.Printf("Warning: event queue unavailable: %v. Continuing without it.", err)
		} else {
			defer mqClient.Close()
			mqClient.ForwardCelebrations(app.Bus)
		}
	}

	// Decay and auto-save tickers.
	app.Game.Start()

	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Fiber.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	// Stop halts the tickers and forces a final synchronous save.
	app.Game.Stop()

	log.Println("Server gracefully stopped")
}

// seedItems populates the shop catalog with the built-in customization items.
func seedItems(repo repositories.ItemRepository) {
	items := []models.Item{
		{ID: "outfit-school", Name: "School Uniform", Description: "Crisp and classic", Category: models.CategoryOutfit, Price: 0},
		{ID: "outfit-astronaut", Name: "Astronaut Suit", Description: "For future explorers", Category: models.CategoryOutfit, Price: 120},
		{ID: "outfit-wizard", Name: "Wizard Robe", Description: "Sparkles included", Category: models.CategoryOutfit, Price: 80},
		{ID: "accessory-glasses", Name: "Round Glasses", Description: "Very studious", Category: models.CategoryAccessory, Price: 30},
		{ID: "accessory-cap", Name: "Baseball Cap", Description: "Backwards optional", Category: models.CategoryAccessory, Price: 25},
		{ID: "accessory-crown", Name: "Golden Crown", Description: "For homework royalty", Category: models.CategoryAccessory, Price: 200},
	}

	for i := range items {
		if err := repo.Create(&items[i]); err != nil {
			log.Printf("Error seeding item %s: %v", items[i].Name, err)
		}
	}
}
