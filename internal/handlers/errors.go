package handlers

import (
	"errors"
	"log"

	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindConflict:
		return fiber.StatusConflict
	case services.KindAuth:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the JSON error body for err. Internal failures are
// logged and reported with a generic message.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) || svcErr.Kind == services.KindInternal {
		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
			"status":  fiber.StatusInternalServerError,
		})
	}

	status := statusFor(svcErr.Kind)
	body := fiber.Map{
		"message": svcErr.Message,
		"status":  status,
	}
	if len(svcErr.Fields) > 0 {
		body["errors"] = svcErr.Fields
	}
	return c.Status(status).JSON(body)
}

// badRequest writes a 400 with the standard error body.
func badRequest(c *fiber.Ctx, message string, fields map[string]string) error {
	return respondError(c, services.NewValidationError(message, fields))
}

// ErrorHandler is the Fiber error handler for errors that escape handlers,
// such as routing misses and recovered panics.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
			"status":  fiberErr.Code,
		})
	}
	return respondError(c, err)
}
