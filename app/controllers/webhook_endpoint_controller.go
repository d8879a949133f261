package controllers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/middleware"
	"github.com/rentbase/rentbase/internal/pkg/webhooks"
)

type createEndpointRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// endpointResponse hides the stored secret; the secret only ever appears in
// the create response.
func endpointResponse(e *models.WebhookEndpoint) fiber.Map {
	return fiber.Map{
		"id":                   e.ID,
		"url":                  e.URL,
		"events":               e.Events(),
		"is_active":            e.IsActive,
		"failure_count":        e.FailureCount,
		"last_delivery_at":     e.LastDeliveryAt,
		"last_delivery_status": e.LastDeliveryStatus,
		"created_at":           e.CreatedAt,
	}
}

// HandleCreateWebhookEndpoint registers a new outbound endpoint for the
// tenant. The signing secret is generated server side and returned exactly
// once.
func HandleCreateWebhookEndpoint(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)

	var req createEndpointRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	parsed, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_url", "endpoint url must be https")
	}
	if len(req.Events) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_events", "at least one event is required")
	}
	for _, name := range req.Events {
		if !webhooks.IsKnownEvent(name) {
			return jsonError(c, fiber.StatusBadRequest, "invalid_events", "unknown event: "+name)
		}
	}

	secret, err := webhooks.GenerateSecret()
	if err != nil {
		log.Errorf("[Webhooks] secret generation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not create endpoint")
	}

	endpoint := &models.WebhookEndpoint{
		TenantID: tenantID,
		URL:      parsed.String(),
		Secret:   secret,
		IsActive: true,
	}
	if err := endpoint.SetEvents(req.Events); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_events", "could not store event list")
	}
	if err := webhookRepo.CreateEndpoint(endpoint); err != nil {
		log.Errorf("[Webhooks] create endpoint for tenant %d: %v", tenantID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not create endpoint")
	}

	resp := endpointResponse(endpoint)
	resp["secret"] = secret
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleListWebhookEndpoints lists the tenant's registered endpoints.
func HandleListWebhookEndpoints(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)

	endpoints, err := webhookRepo.ListEndpoints(tenantID)
	if err != nil {
		log.Errorf("[Webhooks] list endpoints for tenant %d: %v", tenantID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not list endpoints")
	}

	out := make([]fiber.Map, 0, len(endpoints))
	for i := range endpoints {
		out = append(out, endpointResponse(&endpoints[i]))
	}
	return c.JSON(fiber.Map{"endpoints": out})
}

// HandleDeleteWebhookEndpoint removes one of the tenant's endpoints.
func HandleDeleteWebhookEndpoint(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid endpoint id")
	}

	if _, err := webhookRepo.GetEndpoint(id, tenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "endpoint not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load endpoint")
	}
	if err := webhookRepo.DeleteEndpoint(id, tenantID); err != nil {
		log.Errorf("[Webhooks] delete endpoint %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not delete endpoint")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleTestWebhookEndpoint fires a single synthetic delivery at the endpoint
// and reports the outcome synchronously.
func HandleTestWebhookEndpoint(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid endpoint id")
	}

	endpoint, err := webhookRepo.GetEndpoint(id, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "endpoint not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load endpoint")
	}

	delivery, err := dispatcher.SendTest(c.UserContext(), endpoint)
	if err != nil {
		log.Errorf("[Webhooks] test delivery to endpoint %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "test delivery failed")
	}
	return c.JSON(delivery)
}

// HandleListWebhookDeliveries returns recent deliveries across the tenant's
// endpoints, newest first.
func HandleListWebhookDeliveries(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	deliveries, err := webhookRepo.ListDeliveries(tenantID, limit)
	if err != nil {
		log.Errorf("[Webhooks] list deliveries for tenant %d: %v", tenantID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not list deliveries")
	}
	return c.JSON(fiber.Map{"deliveries": deliveries})
}

// HandleRetryWebhookDelivery forces one immediate attempt for a delivery,
// raising the attempt cap if it was exhausted.
func HandleRetryWebhookDelivery(c *fiber.Ctx) error {
	tenantID := middleware.TenantIDFromContext(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid delivery id")
	}

	delivery, err := webhookRepo.GetDelivery(id, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "delivery not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load delivery")
	}

	if err := dispatcher.RetryNow(c.UserContext(), delivery); err != nil {
		if delivery.Status == models.DeliveryStatusDelivered {
			return jsonError(c, fiber.StatusConflict, "already_delivered", "delivery already succeeded")
		}
		log.Warnf("[Webhooks] manual retry for delivery %d: %v", id, err)
	}

	refreshed, err := webhookRepo.GetDelivery(id, tenantID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not reload delivery")
	}
	return c.JSON(refreshed)
}
