package services

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrCodeTooShort, fiber.StatusBadRequest},
		{ErrCodeTooLong, fiber.StatusBadRequest},
		{ErrMissingField, fiber.StatusBadRequest},
		{fmt.Errorf("%w: name", ErrMissingField), fiber.StatusBadRequest},
		{ErrCodeTaken, fiber.StatusConflict},
		{ErrEmailTaken, fiber.StatusConflict},
		{ErrNotFound, fiber.StatusNotFound},
		{ErrInvalidTransition, fiber.StatusUnprocessableEntity},
		{ErrCodeSpaceExhausted, fiber.StatusInternalServerError},
		{fmt.Errorf("some db failure"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := StatusForError(tc.err); got != tc.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
