package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/signing"
)

const (
	deliveryTimeout      = 5 * time.Second
	responseBodyMaxBytes = 2048
	// Endpoints failing this many consecutive deliveries are switched off
	// until the tenant re-enables them.
	disableFailureThreshold = 20
)

// Headers sent with every outbound delivery.
const (
	HeaderSignature = "X-Rentbase-Signature"
	HeaderEvent     = "X-Rentbase-Event"
	HeaderDelivery  = "X-Rentbase-Delivery"
)

// Alerter is notified when an endpoint is switched off after persistent
// failures. Implementations must be safe for concurrent use.
type Alerter interface {
	EndpointDisabled(ctx context.Context, endpoint *models.WebhookEndpoint)
}

// Sender performs individual delivery attempts. The immediate path after
// dispatch and the periodic sweep both go through Attempt, so the two can
// never diverge in behavior.
type Sender struct {
	repo    Repository
	client  *http.Client
	alerter Alerter
	now     func() time.Time
}

// NewSender creates a delivery sender with a bounded-timeout HTTP client.
func NewSender(repo Repository, alerter Alerter) *Sender {
	return &Sender{
		repo:    repo,
		client:  &http.Client{Timeout: deliveryTimeout},
		alerter: alerter,
		now:     time.Now,
	}
}

// Attempt executes one delivery attempt and advances the retry state machine.
// It is safe to call concurrently for the same delivery: the attempt-counter
// claim guarantees only one caller advances it.
func (s *Sender) Attempt(ctx context.Context, delivery *models.WebhookDelivery) error {
	now := s.now().UTC()
	if !delivery.IsDue(now) {
		return nil
	}

	claimed, err := s.repo.ClaimDelivery(delivery.ID, delivery.Attempts)
	if err != nil {
		return fmt.Errorf("claim delivery %s: %w", delivery.DeliveryID, err)
	}
	if !claimed {
		// A concurrent attempt won the race; nothing to do.
		return nil
	}
	attemptNumber := delivery.Attempts
	delivery.Attempts++

	endpoint, err := s.repo.GetEndpointByID(delivery.EndpointID)
	if err != nil {
		return s.recordFailure(delivery, attemptNumber, now, 0, "", "endpoint unavailable: "+err.Error())
	}

	status, body, sendErr := s.send(ctx, endpoint, delivery)
	if sendErr == nil && status >= 200 && status < 300 {
		return s.recordSuccess(delivery, endpoint, now, status, body)
	}

	lastErr := fmt.Sprintf("endpoint returned status %d", status)
	if sendErr != nil {
		lastErr = sendErr.Error()
	}
	if err := s.recordFailure(delivery, attemptNumber, now, status, body, lastErr); err != nil {
		return err
	}
	return s.bumpEndpointFailure(ctx, endpoint, now)
}

func (s *Sender) send(ctx context.Context, endpoint *models.WebhookEndpoint, delivery *models.WebhookDelivery) (int, string, error) {
	payload := []byte(delivery.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signing.Sign(payload, endpoint.Secret, s.now()))
	req.Header.Set(HeaderEvent, delivery.Event)
	req.Header.Set(HeaderDelivery, delivery.DeliveryID)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyMaxBytes))
	return resp.StatusCode, string(body), nil
}

func (s *Sender) recordSuccess(delivery *models.WebhookDelivery, endpoint *models.WebhookEndpoint, now time.Time, status int, body string) error {
	if err := s.repo.UpdateDeliveryFields(delivery.ID, map[string]interface{}{
		"status":          models.DeliveryStatusDelivered,
		"response_status": status,
		"response_body":   body,
		"last_error":      "",
		"next_retry_at":   nil,
		"delivered_at":    &now,
	}); err != nil {
		return err
	}
	delivery.Status = models.DeliveryStatusDelivered

	return s.repo.UpdateEndpointFields(endpoint.ID, map[string]interface{}{
		"failure_count":        0,
		"last_delivery_at":     &now,
		"last_delivery_status": models.DeliveryStatusDelivered,
	})
}

func (s *Sender) recordFailure(delivery *models.WebhookDelivery, attemptNumber int, now time.Time, status int, body, lastErr string) error {
	fields := map[string]interface{}{
		"response_status": status,
		"response_body":   body,
		"last_error":      lastErr,
	}
	if delivery.Attempts >= delivery.MaxAttempts {
		fields["status"] = models.DeliveryStatusFailed
		fields["next_retry_at"] = nil
		delivery.Status = models.DeliveryStatusFailed
	} else {
		next := now.Add(NextRetryDelay(attemptNumber))
		fields["status"] = models.DeliveryStatusRetrying
		fields["next_retry_at"] = &next
		delivery.Status = models.DeliveryStatusRetrying
		delivery.NextRetryAt = &next
	}
	log.Warnf("[Webhooks] delivery %s attempt %d failed: %s", delivery.DeliveryID, delivery.Attempts, lastErr)

	return s.repo.UpdateDeliveryFields(delivery.ID, fields)
}

func (s *Sender) bumpEndpointFailure(ctx context.Context, endpoint *models.WebhookEndpoint, now time.Time) error {
	endpoint.FailureCount++
	fields := map[string]interface{}{
		"failure_count":        endpoint.FailureCount,
		"last_delivery_at":     &now,
		"last_delivery_status": models.DeliveryStatusFailed,
	}
	disabled := endpoint.IsActive && endpoint.FailureCount >= disableFailureThreshold
	if disabled {
		fields["is_active"] = false
		endpoint.IsActive = false
	}
	if err := s.repo.UpdateEndpointFields(endpoint.ID, fields); err != nil {
		return err
	}
	if disabled && s.alerter != nil {
		s.alerter.EndpointDisabled(ctx, endpoint)
	}
	return nil
}
