package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/rentbase/rentbase/app/models"
)

// deliveryBody is the JSON document POSTed to tenant endpoints.
type deliveryBody struct {
	ID      string      `json:"id"`
	Event   string      `json:"event"`
	Created int64       `json:"created"`
	Data    interface{} `json:"data"`
}

// Dispatcher is the producer side of the delivery engine: it fans a domain
// event out into one delivery row per subscribed endpoint and kicks off a
// best-effort immediate attempt. Anything the immediate attempt does not
// finish is picked up by the sweep.
type Dispatcher struct {
	repo   Repository
	sender *Sender
	now    func() time.Time
}

// NewDispatcher creates a dispatcher sharing the sender with the sweep.
func NewDispatcher(repo Repository, sender *Sender) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, now: time.Now}
}

// Publish queues the event for every active endpoint of the tenant that
// subscribes to it. Delivery failures are not surfaced: the retry path owns
// them.
func (d *Dispatcher) Publish(ctx context.Context, tenantID uint, event string, data interface{}) error {
	endpoints, err := d.repo.ActiveEndpointsForTenant(tenantID)
	if err != nil {
		return fmt.Errorf("list endpoints for tenant %d: %w", tenantID, err)
	}

	for i := range endpoints {
		endpoint := &endpoints[i]
		if !endpoint.SubscribesTo(event) {
			continue
		}
		delivery, err := d.enqueue(endpoint, event, data, models.DefaultDeliveryMaxAttempts)
		if err != nil {
			log.Errorf("[Webhooks] enqueue %s for endpoint %d: %v", event, endpoint.ID, err)
			continue
		}

		// Best-effort immediate attempt; errors land in the retry path.
		go func(delivery *models.WebhookDelivery) {
			attemptCtx, cancel := context.WithTimeout(context.Background(), deliveryTimeout+time.Second)
			defer cancel()
			if err := d.sender.Attempt(attemptCtx, delivery); err != nil {
				log.Warnf("[Webhooks] immediate attempt for %s: %v", delivery.DeliveryID, err)
			}
		}(delivery)
	}
	return nil
}

// SendTest performs a one-shot connectivity check against an endpoint with a
// synthetic payload and no retries.
func (d *Dispatcher) SendTest(ctx context.Context, endpoint *models.WebhookEndpoint) (*models.WebhookDelivery, error) {
	delivery, err := d.enqueue(endpoint, EventTestPing, map[string]interface{}{
		"message": "test delivery from rentbase",
	}, 1)
	if err != nil {
		return nil, err
	}
	if err := d.sender.Attempt(ctx, delivery); err != nil {
		return nil, err
	}
	return d.repo.GetDelivery(delivery.ID, endpoint.TenantID)
}

// RetryNow forces one extra attempt for a delivery outside the schedule.
// Exhausted deliveries get their attempt cap raised by one.
func (d *Dispatcher) RetryNow(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.Status == models.DeliveryStatusDelivered {
		return fmt.Errorf("delivery %s already delivered", delivery.DeliveryID)
	}

	fields := map[string]interface{}{
		"status":        models.DeliveryStatusRetrying,
		"next_retry_at": nil,
	}
	if delivery.Attempts >= delivery.MaxAttempts {
		fields["max_attempts"] = delivery.Attempts + 1
		delivery.MaxAttempts = delivery.Attempts + 1
	}
	if err := d.repo.UpdateDeliveryFields(delivery.ID, fields); err != nil {
		return err
	}
	delivery.Status = models.DeliveryStatusRetrying
	delivery.NextRetryAt = nil

	return d.sender.Attempt(ctx, delivery)
}

func (d *Dispatcher) enqueue(endpoint *models.WebhookEndpoint, event string, data interface{}, maxAttempts int) (*models.WebhookDelivery, error) {
	deliveryID := "whd_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	body, err := json.Marshal(deliveryBody{
		ID:      deliveryID,
		Event:   event,
		Created: d.now().Unix(),
		Data:    data,
	})
	if err != nil {
		return nil, err
	}

	delivery := &models.WebhookDelivery{
		DeliveryID:  deliveryID,
		EndpointID:  endpoint.ID,
		TenantID:    endpoint.TenantID,
		Event:       event,
		Payload:     string(body),
		Status:      models.DeliveryStatusPending,
		MaxAttempts: maxAttempts,
	}
	if err := d.repo.CreateDelivery(delivery); err != nil {
		return nil, err
	}
	return delivery, nil
}
