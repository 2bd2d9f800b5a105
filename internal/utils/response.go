package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func JSONSuccess(c *fiber.Ctx, status int, data interface{}, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"data":    data,
		"message": msg,
	})
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": msg,
		"success": false,
		"errors":  []string{},
	})
}

// ErrorHandler is the app-level fiber error handler. *APIError keeps its
// status; anything unrecognized becomes a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return JSONError(c, apiErr.Code, apiErr.Message)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return JSONError(c, fiberErr.Code, fiberErr.Message)
	}
	return JSONError(c, fiber.StatusInternalServerError, "something went wrong")
}
