package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/rentbase/rentbase/internal/pkg/middleware"
	"github.com/rentbase/rentbase/internal/pkg/processor"
	"github.com/rentbase/rentbase/internal/pkg/subsync"
)

type cancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

// HandleGetSubscription returns the tenant's current subscription, resolved
// as the latest row the synchronizer has written.
func HandleGetSubscription(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)

	sub, err := subsyncService.Current(c.UserContext(), tenantID)
	if err != nil {
		if errors.Is(err, subsync.ErrNoSubscription) {
			return jsonError(c, fiber.StatusNotFound, "no_subscription", "tenant has no subscription")
		}
		log.Errorf("subscription lookup failed for tenant %d: %v", tenantID, err)
		return jsonError(c, fiber.StatusInternalServerError, "lookup_failed", "could not load subscription")
	}

	return c.JSON(sub)
}

// HandleCancelSubscription cancels the tenant's subscription, either at the
// end of the paid period or immediately.
func HandleCancelSubscription(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)

	var req cancelSubscriptionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
		}
	}

	sub, err := subsyncService.Cancel(c.UserContext(), tenantID, req.AtPeriodEnd)
	if err != nil {
		if errors.Is(err, subsync.ErrNoSubscription) {
			return jsonError(c, fiber.StatusNotFound, "no_subscription", "tenant has no subscription")
		}
		var apiErr *processor.APIError
		if errors.As(err, &apiErr) {
			log.Errorf("subscription cancel rejected upstream for tenant %d: %v", tenantID, err)
			return jsonError(c, fiber.StatusBadGateway, "upstream_error", "payment processor rejected the cancellation")
		}
		log.Errorf("subscription cancel failed for tenant %d: %v", tenantID, err)
		return jsonError(c, fiber.StatusServiceUnavailable, "cancel_failed", "could not cancel subscription, retry later")
	}

	return c.JSON(sub)
}
