package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"minime/internal/services"
)

// ShopHandler handles HTTP requests for the customization shop.
type ShopHandler struct {
	shopService *services.ShopService
	userManager *services.UserManager
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService *services.ShopService, userManager *services.UserManager) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
		userManager: userManager,
	}
}

// RegisterRoutes registers the shop routes with the Fiber app.
func (h *ShopHandler) RegisterRoutes(router fiber.Router) {
	shopRoutes := router.Group("/shop")
	shopRoutes.Get("/items", h.HandleGetItems)
	shopRoutes.Post("/purchase", h.HandlePurchase)
}

// HandleGetItems lists the item catalog.
func (h *ShopHandler) HandleGetItems(c *fiber.Ctx) error {
	items, err := h.shopService.GetCatalog()
	if err != nil {
		log.Printf("Error getting item catalog: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve items",
			"error":   err.Error(),
		})
	}
	return c.JSON(items)
}

// PurchaseRequest represents the request body for a purchase.
type PurchaseRequest struct {
	ItemID string `json:"item_id"`
}

// HandlePurchase buys an item for the acting user.
func (h *ShopHandler) HandlePurchase(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	user := h.userManager.GetUserByName(username)
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "User not found",
		})
	}

	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing purchase request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "item_id is required",
		})
	}

	item, err := h.shopService.Purchase(user, req.ItemID)
	if err != nil {
		log.Printf("Error purchasing item %s for user %s: %v", req.ItemID, username, err)
		switch {
		case strings.Contains(err.Error(), "not found"):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Item not found",
				"error":   err.Error(),
			})
		case strings.Contains(err.Error(), "insufficient coins"), strings.Contains(err.Error(), "already owned"):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Purchase failed",
				"error":   err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not complete purchase",
				"error":   err.Error(),
			})
		}
	}

	view := user.Clone()
	return c.JSON(fiber.Map{
		"message":     "Purchase successful",
		"item":        item,
		"coins":       view.Coins,
		"owned_items": view.OwnedItems,
	})
}
