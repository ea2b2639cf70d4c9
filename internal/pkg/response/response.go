package response

import (
	"sponsornet/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// kindStatus maps domain error kinds to HTTP status codes
var kindStatus = map[domain.Kind]int{
	domain.KindSelfReference:      fiber.StatusUnprocessableEntity,
	domain.KindCycleDetected:      fiber.StatusUnprocessableEntity,
	domain.KindHasChildren:        fiber.StatusConflict,
	domain.KindEmailTaken:         fiber.StatusConflict,
	domain.KindTreeNotEmpty:       fiber.StatusConflict,
	domain.KindSponsorNotFound:    fiber.StatusNotFound,
	domain.KindMemberNotFound:     fiber.StatusNotFound,
	domain.KindInvalidCode:        fiber.StatusBadRequest,
	domain.KindInvalidStatus:      fiber.StatusBadRequest,
	domain.KindInvalidRole:        fiber.StatusBadRequest,
	domain.KindInvalidAmount:      fiber.StatusBadRequest,
	domain.KindForbidden:          fiber.StatusForbidden,
	domain.KindInvalidCredentials: fiber.StatusUnauthorized,
	domain.KindCodeExhausted:      fiber.StatusServiceUnavailable,
	domain.KindSponsorInactive:    fiber.StatusUnprocessableEntity,
	domain.KindBookingConflict:    fiber.StatusConflict,
}

// kindMessage is the user-facing text per kind
var kindMessage = map[domain.Kind]string{
	domain.KindSelfReference:      "A member cannot sponsor itself",
	domain.KindCycleDetected:      "The new sponsor is inside this member's downline",
	domain.KindHasChildren:        "Member still has direct downline",
	domain.KindEmailTaken:         "Email already registered",
	domain.KindTreeNotEmpty:       "Network already has members",
	domain.KindSponsorNotFound:    "Sponsor not found",
	domain.KindMemberNotFound:     "Member not found",
	domain.KindInvalidCode:        "Invalid or expired invite code",
	domain.KindInvalidStatus:      "Invalid status",
	domain.KindInvalidRole:        "Invalid role",
	domain.KindInvalidAmount:      "Invalid amount",
	domain.KindForbidden:          "You don't have permission to access this member",
	domain.KindInvalidCredentials: "Invalid email or password",
	domain.KindCodeExhausted:      "Could not issue an invite code, please retry",
	domain.KindSponsorInactive:    "The new sponsor is not active",
	domain.KindBookingConflict:    "Booking ID already used for a different sale",
}

// FromError sends the response matching a typed domain error.
// Untyped errors become a generic 500.
func FromError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		return InternalServerError(c, "Internal server error")
	}
	return c.Status(status).JSON(Response{
		Success: false,
		Error:   kindMessage[kind],
		Code:    string(kind),
	})
}
