package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"minime/internal/models"
	"minime/internal/services"
)

// PetHandler handles the care actions and status display for the Mini-Me
// character. All routes are session-guarded; the acting user is resolved
// from the token set by the session middleware.
type PetHandler struct {
	userManager *services.UserManager
	decaySystem *services.MeterDecaySystem
}

// NewPetHandler creates a new PetHandler.
func NewPetHandler(userManager *services.UserManager, decaySystem *services.MeterDecaySystem) *PetHandler {
	return &PetHandler{
		userManager: userManager,
		decaySystem: decaySystem,
	}
}

// RegisterRoutes registers the pet routes with the Fiber app.
func (h *PetHandler) RegisterRoutes(router fiber.Router) {
	petRoutes := router.Group("/pet")
	petRoutes.Get("/status", h.HandleStatus)
	petRoutes.Post("/feed", h.HandleFeed)
	petRoutes.Post("/rest", h.HandleRest)
	petRoutes.Post("/play", h.HandlePlay)
	petRoutes.Post("/homework", h.HandleHomework)
	petRoutes.Put("/customize", h.HandleCustomize)
}

// actingUser resolves the profile named by the session token.
func (h *PetHandler) actingUser(c *fiber.Ctx) (*models.UserProfile, error) {
	username, _ := c.Locals("username").(string)
	user := h.userManager.GetUserByName(username)
	if user == nil {
		return nil, fmt.Errorf("user with username %s not found", username)
	}
	return user, nil
}

// HandleStatus reports the meters, overall mood, level and streak state.
func (h *PetHandler) HandleStatus(c *fiber.Ctx) error {
	user, err := h.actingUser(c)
	if err != nil {
		return notFoundResponse(c, err)
	}

	// Snapshot first; the decay ticker may be mutating the live profile.
	view := user.Clone()
	return c.JSON(fiber.Map{
		"happiness":          view.CharacterHappiness,
		"hunger":             view.CharacterHunger,
		"energy":             view.CharacterEnergy,
		"mood":               h.decaySystem.OverallMood(user),
		"level":              user.Level(),
		"coins":              view.Coins,
		"experience_points":  view.ExperiencePoints,
		"current_streak":     view.CurrentStreak,
		"longest_streak":     view.LongestStreak,
		"homework_completed": view.HomeworkCompleted,
	})
}

// HandleFeed restores the hunger meter.
func (h *PetHandler) HandleFeed(c *fiber.Ctx) error {
	return h.careAction(c, "fed", func(user *models.UserProfile) { user.Feed() })
}

// HandleRest restores the energy meter.
func (h *PetHandler) HandleRest(c *fiber.Ctx) error {
	return h.careAction(c, "rested", func(user *models.UserProfile) { user.Rest() })
}

// HandlePlay trades energy for happiness.
func (h *PetHandler) HandlePlay(c *fiber.Ctx) error {
	return h.careAction(c, "played", func(user *models.UserProfile) { user.Play() })
}

func (h *PetHandler) careAction(c *fiber.Ctx, verb string, action func(*models.UserProfile)) error {
	user, err := h.actingUser(c)
	if err != nil {
		return notFoundResponse(c, err)
	}

	action(user)
	happiness, hunger, energy := user.Meters()
	return c.JSON(fiber.Map{
		"message":   fmt.Sprintf("Mini-Me %s", verb),
		"happiness": happiness,
		"hunger":    hunger,
		"energy":    energy,
		"mood":      h.decaySystem.OverallMood(user),
	})
}

// HandleHomework records a completed homework item and applies the rewards.
func (h *PetHandler) HandleHomework(c *fiber.Ctx) error {
	user, err := h.actingUser(c)
	if err != nil {
		return notFoundResponse(c, err)
	}

	user.CompleteHomework()
	view := user.Clone()
	return c.JSON(fiber.Map{
		"message":            "Homework completed, great job!",
		"homework_completed": view.HomeworkCompleted,
		"coins":              view.Coins,
		"experience_points":  view.ExperiencePoints,
		"level":              user.Level(),
		"happiness":          view.CharacterHappiness,
	})
}

// CustomizeRequest represents the request body for customization changes.
// Absent fields are left unchanged.
type CustomizeRequest struct {
	EyeScale  *float64 `json:"eye_scale"`
	Outfit    *string  `json:"outfit"`
	Accessory *string  `json:"accessory"`
}

// HandleCustomize applies eye scale, outfit and accessory changes.
func (h *PetHandler) HandleCustomize(c *fiber.Ctx) error {
	user, err := h.actingUser(c)
	if err != nil {
		return notFoundResponse(c, err)
	}

	var req CustomizeRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing customize request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if req.EyeScale != nil {
		user.SetEyeScale(*req.EyeScale)
	}
	if req.Outfit != nil {
		user.SetOutfit(*req.Outfit)
	}
	if req.Accessory != nil {
		user.SetAccessory(*req.Accessory)
	}

	view := user.Clone()
	return c.JSON(fiber.Map{
		"message":           "Customization updated",
		"eye_scale":         view.EyeScale,
		"current_outfit":    view.CurrentOutfit,
		"current_accessory": view.CurrentAccessory,
	})
}

func notFoundResponse(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"message": "User not found",
		"error":   err.Error(),
	})
}
