package handlers

import (
	"time"

	"sponsornet/internal/core/services"
	"sponsornet/internal/pkg/response"
	"sponsornet/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService   *services.AuthService
	secureCookie  bool
	expiryMinutes int
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, secureCookie bool, expiryMinutes int) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookie:  secureCookie,
		expiryMinutes: expiryMinutes,
	}
}

// Login handles member login
// @Summary Login member
// @Description Authenticate with email and password and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.authService.Login(c.Context(), &req)
	if err != nil {
		return response.FromError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    result.AccessToken,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(h.expiryMinutes) * time.Minute),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return response.Success(c, "Login successful", result)
}

// Logout clears the access token cookie
// @Summary Logout member
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return response.Success(c, "Logged out", nil)
}
