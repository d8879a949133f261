package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rentbase/rentbase/internal/pkg/billing"
	"github.com/rentbase/rentbase/internal/pkg/middleware"
)

// HandleCreateCheckout opens a payment-collection session for a booking.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	req.TenantID = middleware.TenantIDFromContext(c)

	result, err := billingService.CreateCheckout(c.UserContext(), req)
	if err != nil {
		return billingErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleCreateRefund refunds a payment, fully or partially.
func HandleCreateRefund(c *fiber.Ctx) error {
	var req billing.RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	req.CallerTenantID = middleware.TenantIDFromContext(c)
	req.PlatformCaller = false

	result, err := billingService.CreateRefund(c.UserContext(), req)
	if err != nil {
		return billingErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}
