package subsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/events"
	"github.com/rentbase/rentbase/internal/pkg/ledger"
	"github.com/rentbase/rentbase/internal/pkg/processor"
	"github.com/rentbase/rentbase/internal/pkg/webhooks"
)

var (
	ErrUnknownStatus  = errors.New("subscription status not in allow-list")
	ErrUnknownPlan    = errors.New("no plan matches the processor price")
	ErrNoSubscription = errors.New("tenant has no subscription")
)

// Publisher queues outbound tenant notifications.
type Publisher interface {
	Publish(ctx context.Context, tenantID uint, event string, data interface{}) error
}

// Service mirrors the processor's subscription and invoice lifecycle into the
// local Subscription records. It is the only writer of those records.
type Service struct {
	repo      Repository
	client    processor.Client
	ledger    ledger.Writer
	publisher Publisher
}

// NewService creates a synchronizer.
func NewService(repo Repository, client processor.Client, ledgerWriter ledger.Writer, publisher Publisher) *Service {
	return &Service{repo: repo, client: client, ledger: ledgerWriter, publisher: publisher}
}

// SubscriptionCreated stores a new subscription mirrored from the processor.
func (s *Service) SubscriptionCreated(ctx context.Context, payload *events.SubscriptionPayload) error {
	if !models.IsAllowedSubscriptionStatus(payload.Status) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, payload.Status)
	}

	existing, err := s.repo.GetByExternalID(payload.ID)
	if err == nil {
		// Re-delivered create: fall through to an update so the handler is
		// safe to re-invoke.
		return s.applyUpdate(ctx, existing, payload)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	plan, err := s.repo.GetPlanByPriceID(payload.PriceID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: price %q", ErrUnknownPlan, payload.PriceID())
		}
		return err
	}

	tenantID, err := s.resolveTenant(payload)
	if err != nil {
		return err
	}

	sub := &models.Subscription{
		TenantID:               tenantID,
		PlanID:                 plan.ID,
		ExternalSubscriptionID: payload.ID,
		ExternalCustomerID:     payload.Customer.String(),
		ExternalPriceID:        payload.PriceID(),
		Status:                 payload.Status,
		CurrentPeriodStart:     events.UnixTime(payload.CurrentPeriodStart),
		CurrentPeriodEnd:       events.UnixTime(payload.CurrentPeriodEnd),
		CancelAtPeriodEnd:      payload.CancelAtPeriodEnd,
		CanceledAt:             events.UnixTime(payload.CanceledAt),
		TrialStart:             events.UnixTime(payload.TrialStart),
		TrialEnd:               events.UnixTime(payload.TrialEnd),
	}
	if err := s.repo.Create(sub); err != nil {
		return err
	}

	s.publish(ctx, sub, webhooks.EventSubscriptionUpdated)
	return nil
}

// SubscriptionUpdated applies processor-side changes to the local record. A
// missing record is treated as a created event (self-healing).
func (s *Service) SubscriptionUpdated(ctx context.Context, payload *events.SubscriptionPayload) error {
	if !models.IsAllowedSubscriptionStatus(payload.Status) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, payload.Status)
	}

	existing, err := s.repo.GetByExternalID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.SubscriptionCreated(ctx, payload)
		}
		return err
	}
	return s.applyUpdate(ctx, existing, payload)
}

// SubscriptionDeleted marks the local record canceled regardless of its prior
// status.
func (s *Service) SubscriptionDeleted(ctx context.Context, payload *events.SubscriptionPayload) error {
	existing, err := s.repo.GetByExternalID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing local to cancel; nothing to heal either.
			return nil
		}
		return err
	}

	existing.Status = models.SubscriptionStatusCanceled
	if existing.CanceledAt == nil {
		canceledAt := events.UnixTime(payload.CanceledAt)
		if canceledAt == nil {
			now := time.Now().UTC()
			canceledAt = &now
		}
		existing.CanceledAt = canceledAt
	}
	if err := s.repo.Save(existing); err != nil {
		return err
	}

	s.publish(ctx, existing, webhooks.EventSubscriptionCanceled)
	return nil
}

// InvoicePaid records the payment and promotes a past_due subscription back
// to active (the recovery path).
func (s *Service) InvoicePaid(ctx context.Context, payload *events.InvoicePayload) error {
	sub, err := s.repo.GetByExternalID(payload.Subscription.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	// A re-delivered invoice must not book the payment twice; the invoice id
	// is the append-once key.
	recorded, err := s.ledger.HasTransaction(ctx, models.LedgerTypeSubscriptionPayment, payload.ID)
	if err != nil {
		return err
	}
	if !recorded {
		if _, err := s.ledger.Record(ctx, ledger.Entry{
			Type:              models.LedgerTypeSubscriptionPayment,
			TenantID:          sub.TenantID,
			SubscriptionID:    &sub.ID,
			GrossCents:        payload.AmountPaid,
			NetCents:          payload.AmountPaid,
			ExternalReference: payload.ID,
		}); err != nil {
			return err
		}
	}

	if sub.Status == models.SubscriptionStatusPastDue {
		sub.Status = models.SubscriptionStatusActive
		if err := s.repo.Save(sub); err != nil {
			return err
		}
		s.publish(ctx, sub, webhooks.EventSubscriptionUpdated)
	}
	return nil
}

// InvoicePaymentFailed demotes the matching subscription to past_due.
func (s *Service) InvoicePaymentFailed(ctx context.Context, payload *events.InvoicePayload) error {
	sub, err := s.repo.GetByExternalID(payload.Subscription.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if sub.Status != models.SubscriptionStatusPastDue {
		sub.Status = models.SubscriptionStatusPastDue
		if err := s.repo.Save(sub); err != nil {
			return err
		}
		s.publish(ctx, sub, webhooks.EventSubscriptionUpdated)
	}
	return nil
}

// Current returns the tenant's authoritative subscription, the latest by id.
func (s *Service) Current(ctx context.Context, tenantID uint) (*models.Subscription, error) {
	sub, err := s.repo.GetLatestByTenant(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}
	return sub, nil
}

// Cancel ends the tenant's subscription either at period end or immediately.
// The idempotency key is a pure function of the subscription id, so duplicate
// cancel clicks collapse at the processor.
func (s *Service) Cancel(ctx context.Context, tenantID uint, atPeriodEnd bool) (*models.Subscription, error) {
	sub, err := s.Current(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionStatusCanceled {
		return sub, nil
	}

	if atPeriodEnd {
		state, err := s.client.CancelSubscriptionAtPeriodEnd(ctx, sub.ExternalSubscriptionID,
			processor.CancelAtPeriodEndIdempotencyKey(sub.ExternalSubscriptionID))
		if err != nil {
			return nil, err
		}
		sub.CancelAtPeriodEnd = state.CancelAtPeriodEnd
		if err := s.repo.Save(sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	state, err := s.client.CancelSubscriptionNow(ctx, sub.ExternalSubscriptionID,
		processor.CancelNowIdempotencyKey(sub.ExternalSubscriptionID))
	if err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatusCanceled
	sub.CanceledAt = state.CanceledAt
	if sub.CanceledAt == nil {
		now := time.Now().UTC()
		sub.CanceledAt = &now
	}
	if err := s.repo.Save(sub); err != nil {
		return nil, err
	}

	s.publish(ctx, sub, webhooks.EventSubscriptionCanceled)
	return sub, nil
}

func (s *Service) applyUpdate(ctx context.Context, sub *models.Subscription, payload *events.SubscriptionPayload) error {
	if priceID := payload.PriceID(); priceID != "" && priceID != sub.ExternalPriceID {
		plan, err := s.repo.GetPlanByPriceID(priceID)
		if err == nil {
			sub.PlanID = plan.ID
			sub.ExternalPriceID = priceID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	sub.Status = payload.Status
	sub.CancelAtPeriodEnd = payload.CancelAtPeriodEnd
	sub.CurrentPeriodStart = events.UnixTime(payload.CurrentPeriodStart)
	sub.CurrentPeriodEnd = events.UnixTime(payload.CurrentPeriodEnd)
	sub.CanceledAt = events.UnixTime(payload.CanceledAt)
	sub.TrialStart = events.UnixTime(payload.TrialStart)
	sub.TrialEnd = events.UnixTime(payload.TrialEnd)
	if err := s.repo.Save(sub); err != nil {
		return err
	}

	s.publish(ctx, sub, webhooks.EventSubscriptionUpdated)
	return nil
}

func (s *Service) resolveTenant(payload *events.SubscriptionPayload) (uint, error) {
	if raw, ok := payload.Metadata["tenant_id"]; ok {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err == nil && id > 0 {
			return uint(id), nil
		}
	}
	return s.repo.TenantIDForCustomer(payload.Customer.String())
}

func (s *Service) publish(ctx context.Context, sub *models.Subscription, event string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, sub.TenantID, event, map[string]interface{}{
		"subscription_id":      sub.ExternalSubscriptionID,
		"status":               sub.Status,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	}); err != nil {
		log.Warnf("[SubSync] publish %s for tenant %d: %v", event, sub.TenantID, err)
	}
}
