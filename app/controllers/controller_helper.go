package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rentbase/rentbase/internal/pkg/billing"
)

// jsonError writes the uniform error envelope.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// billingErrorResponse maps the billing error taxonomy onto HTTP statuses.
func billingErrorResponse(c *fiber.Ctx, err error) error {
	var be *billing.Error
	if !errors.As(err, &be) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "unexpected failure")
	}

	switch be.Class {
	case billing.ClassValidation:
		return jsonError(c, fiber.StatusBadRequest, be.Code, be.Message())
	case billing.ClassIneligible:
		return jsonError(c, fiber.StatusConflict, be.Code, be.Message())
	case billing.ClassUpstream:
		return jsonError(c, fiber.StatusBadGateway, be.Code, be.Message())
	case billing.ClassIntegrity:
		return jsonError(c, fiber.StatusInternalServerError, be.Code, be.Message())
	default:
		return jsonError(c, fiber.StatusServiceUnavailable, be.Code, "temporary failure, retry")
	}
}

// paramUint parses a numeric path parameter.
func paramUint(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
