package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/rentbase/rentbase/internal/pkg/events"
	"github.com/rentbase/rentbase/internal/pkg/signing"
)

// Signature header sent by the payment processor with each notification.
const headerProcessorSignature = "Stripe-Signature"

// HandleProcessorWebhook ingests one inbound processor notification. The
// response code is the contract with the processor's retry logic: 2xx stops
// redelivery, 4xx marks the notification permanently rejected, 5xx asks for
// a retry.
func HandleProcessorWebhook(c *fiber.Ctx) error {
	body := c.Body()
	header := c.Get(headerProcessorSignature)

	err := eventProcessor.Process(c.UserContext(), body, header)
	if err == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	switch {
	case errors.Is(err, signing.ErrInvalidSignature), errors.Is(err, signing.ErrStaleTimestamp):
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "signature verification failed")
	case errors.Is(err, events.ErrBadEnvelope):
		return jsonError(c, fiber.StatusBadRequest, "bad_envelope", "event envelope is malformed")
	case errors.Is(err, events.ErrStaleEvent):
		return jsonError(c, fiber.StatusBadRequest, "stale_event", "event originated too long ago")
	default:
		// Includes replay-guard write failures: the processor must retry.
		return jsonError(c, fiber.StatusInternalServerError, "processing_failed", "temporary failure, retry")
	}
}
