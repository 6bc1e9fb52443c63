package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"minime/internal/models"
	"minime/internal/services"
)

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	userManager    *services.UserManager
	dailyLogin     *services.DailyLoginSystem
	sessionService *services.SessionService
	validate       *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userManager *services.UserManager, dailyLogin *services.DailyLoginSystem, sessionService *services.SessionService) *UserHandler {
	return &UserHandler{
		userManager:    userManager,
		dailyLogin:     dailyLogin,
		sessionService: sessionService,
		validate:       validator.New(),
	}
}

// RegisterPublicRoutes registers the routes that need no session.
func (h *UserHandler) RegisterPublicRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterProtectedRoutes registers the session-guarded routes.
func (h *UserHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/auth/logout", h.HandleLogout)
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleGetUsers)
	userRoutes.Get("/:username", h.HandleGetUser)
	userRoutes.Delete("/:username", h.HandleDeleteUser)
}

// RegisterRequest represents the request body for account creation.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
}

// HandleRegister creates a new user profile.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user, err := h.userManager.CreateUser(req.Username, req.DisplayName)
	if err != nil {
		log.Printf("Error creating user: %v", err)
		if strings.Contains(err.Error(), "already taken") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Registration failed",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user.Clone(),
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
}

// HandleLogin makes the user current, processes the daily login bonus and
// issues a session token.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user, err := h.userManager.LoginUser(req.Username)
	if err != nil {
		log.Printf("Error during login for user %s: %v", req.Username, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Login failed",
			"error":   err.Error(),
		})
	}

	bonus := h.dailyLogin.ProcessLogin(user, time.Now())

	token, err := h.sessionService.IssueToken(user)
	if err != nil {
		log.Printf("Error issuing session token for user %s: %v", req.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not start session",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":     "Login successful",
		"token":       token,
		"user":        user.Clone(),
		"login_bonus": bonus,
	})
}

// HandleLogout flushes pending changes and ends the current session.
func (h *UserHandler) HandleLogout(c *fiber.Ctx) error {
	h.userManager.LogoutUser()
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

// HandleGetUsers lists every registered profile.
func (h *UserHandler) HandleGetUsers(c *fiber.Ctx) error {
	users := h.userManager.GetAllUsers()
	views := make([]*models.UserProfile, 0, len(users))
	for _, user := range users {
		views = append(views, user.Clone())
	}
	return c.JSON(views)
}

// HandleGetUser retrieves a single profile by username.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	username := c.Params("username")
	user := h.userManager.GetUserByName(username)
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("User %s not found", username),
		})
	}
	return c.JSON(user.Clone())
}

// HandleDeleteUser removes a profile.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	username := c.Params("username")
	if err := h.userManager.DeleteUser(username); err != nil {
		log.Printf("Error deleting user %s: %v", username, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Could not delete user",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("User %s deleted", username),
	})
}

// validationErrorResponse renders validator errors as a field->message map.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
