package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
)

// fail maps the error taxonomy onto HTTP statuses.
func fail(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	case apperr.CodeInvalidState:
		status = http.StatusConflict
	case apperr.CodeStorage:
		status = http.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  apperr.CodeOf(err),
	})
}

func callerID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}
