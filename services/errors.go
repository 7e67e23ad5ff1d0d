package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors shared by the referral/user services. Handlers across the
// domain packages translate them through RespondError so every endpoint maps
// the same failure to the same status code.
var (
	// Validation
	ErrCodeTooShort = errors.New("referral code must be at least 4 characters")
	ErrCodeTooLong  = errors.New("referral code must be at most 20 characters")
	ErrMissingField = errors.New("missing required field")

	// Conflict
	ErrCodeTaken  = errors.New("referral code already in use")
	ErrEmailTaken = errors.New("email already registered")

	ErrNotFound          = errors.New("user not found")
	ErrInvalidTransition = errors.New("unsupported role transition")

	// The generator ran out of attempts. Practically unreachable unless the
	// code space is exhausted or the generator is broken — worth an operator's
	// attention every time it fires.
	ErrCodeSpaceExhausted = errors.New("could not generate an unused referral code")
)

// StatusForError maps a service error to an HTTP status code.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrCodeTooShort), errors.Is(err, ErrCodeTooLong), errors.Is(err, ErrMissingField):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrCodeTaken), errors.Is(err, ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondError writes the standard JSON error body for a service error.
func RespondError(c *fiber.Ctx, err error) error {
	status := StatusForError(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
