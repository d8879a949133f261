package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/fees"
	"github.com/rentbase/rentbase/internal/pkg/ledger"
	"github.com/rentbase/rentbase/internal/pkg/webhooks"
)

// Publisher queues outbound tenant notifications for handler side effects.
type Publisher interface {
	Publish(ctx context.Context, tenantID uint, event string, data interface{}) error
}

// SubscriptionSync receives the subscription and invoice lifecycle events.
type SubscriptionSync interface {
	SubscriptionCreated(ctx context.Context, payload *SubscriptionPayload) error
	SubscriptionUpdated(ctx context.Context, payload *SubscriptionPayload) error
	SubscriptionDeleted(ctx context.Context, payload *SubscriptionPayload) error
	InvoicePaid(ctx context.Context, payload *InvoicePayload) error
	InvoicePaymentFailed(ctx context.Context, payload *InvoicePayload) error
}

// Handlers owns the local-state mutations triggered by inbound notifications.
// Every handler is safe to re-invoke with the same payload: each one reads
// current state and sets it to the target, it never increments.
type Handlers struct {
	repo      Repository
	ledger    ledger.Writer
	publisher Publisher
	subs      SubscriptionSync
}

// NewHandlers wires the handler set.
func NewHandlers(repo Repository, ledgerWriter ledger.Writer, publisher Publisher, subs SubscriptionSync) *Handlers {
	return &Handlers{repo: repo, ledger: ledgerWriter, publisher: publisher, subs: subs}
}

// CheckoutCompleted records the collected payment, settles the booking and
// appends the booking_payment ledger row. Amount and fee figures come from
// the session metadata stamped at checkout creation.
func (h *Handlers) CheckoutCompleted(ctx context.Context, payload *CheckoutSessionPayload) error {
	if payload.PaymentStatus != "" && payload.PaymentStatus != "paid" {
		return nil
	}

	if _, err := h.repo.GetPaymentBySessionID(payload.ID); err == nil {
		// Re-delivered completion, the payment already exists.
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	bookingID, err := metadataUint(payload.Metadata, "booking_id")
	if err != nil {
		return fmt.Errorf("checkout session %s: %w", payload.ID, err)
	}
	tenantID, err := metadataUint(payload.Metadata, "tenant_id")
	if err != nil {
		return fmt.Errorf("checkout session %s: %w", payload.ID, err)
	}
	platformFee := metadataInt64(payload.Metadata, "platform_fee_cents")
	feeBps := metadataInt64(payload.Metadata, "fee_bps")
	paymentType := payload.Metadata["payment_type"]
	if paymentType == "" {
		paymentType = models.PaymentTypeFull
	}

	now := time.Now().UTC()
	processorFee := fees.ProcessorFeeEstimate(payload.AmountTotal)
	payment := &models.Payment{
		TenantID:         tenantID,
		BookingID:        bookingID,
		AmountCents:      payload.AmountTotal,
		Currency:         payload.Currency,
		Status:           models.PaymentStatusSucceeded,
		Type:             paymentType,
		PaymentIntentID:  payload.PaymentIntent.String(),
		SessionID:        payload.ID,
		PlatformFeeCents: platformFee,
		NetCents:         payload.AmountTotal - platformFee - processorFee,
		PaidAt:           &now,
	}
	if err := h.repo.CreatePayment(payment); err != nil {
		return err
	}

	if err := h.repo.MarkBookingPaid(bookingID, now); err != nil {
		return err
	}

	if _, err := h.ledger.Record(ctx, ledger.Entry{
		Type:              models.LedgerTypeBookingPayment,
		TenantID:          tenantID,
		BookingID:         &bookingID,
		GrossCents:        payload.AmountTotal,
		ProcessorFeeCents: processorFee,
		PlatformFeeCents:  platformFee,
		FeeBpsAtTime:      feeBps,
		NetCents:          payment.NetCents,
		ExternalReference: payload.PaymentIntent.String(),
		At:                now,
	}); err != nil {
		return err
	}

	if err := h.repo.CreateNotification(tenantID, models.NotificationTypePayment,
		fmt.Sprintf("Payment of %d %s received for booking #%d", payload.AmountTotal, payload.Currency, bookingID),
		payment.ID); err != nil {
		log.Warnf("[Events] notification for payment %d: %v", payment.ID, err)
	}

	h.publish(ctx, tenantID, webhooks.EventPaymentSucceeded, map[string]interface{}{
		"payment_id":   payment.ID,
		"booking_id":   bookingID,
		"amount_cents": payload.AmountTotal,
		"currency":     payload.Currency,
	})
	return nil
}

// PaymentSucceeded confirms a payment intent and backfills the charge id.
func (h *Handlers) PaymentSucceeded(ctx context.Context, payload *PaymentIntentPayload) error {
	payment, err := h.repo.GetPaymentByIntentID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Intent confirmation can outrun the checkout completion.
			log.Debugf("[Events] no local payment for intent %s", payload.ID)
			return nil
		}
		return err
	}

	fields := map[string]interface{}{}
	if payment.Status == models.PaymentStatusPending || payment.Status == models.PaymentStatusFailed {
		fields["status"] = models.PaymentStatusSucceeded
		fields["paid_at"] = time.Now().UTC()
	}
	if charge := payload.LatestCharge.String(); charge != "" && charge != payment.ChargeID {
		fields["charge_id"] = charge
	}
	if len(fields) == 0 {
		return nil
	}
	return h.repo.UpdatePaymentFields(payment.ID, fields)
}

// PaymentFailed marks the payment failed and records the processor's reason.
func (h *Handlers) PaymentFailed(ctx context.Context, payload *PaymentIntentPayload) error {
	payment, err := h.repo.GetPaymentByIntentID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if payment.Status == models.PaymentStatusSucceeded || payment.Status == models.PaymentStatusFailed {
		// A settled payment does not regress on a late failure event.
		return nil
	}

	failureCode := ""
	if payload.LastPaymentError != nil {
		failureCode = payload.LastPaymentError.Code
	}
	if err := h.repo.UpdatePaymentFields(payment.ID, map[string]interface{}{
		"status":       models.PaymentStatusFailed,
		"failure_code": failureCode,
	}); err != nil {
		return err
	}

	h.publish(ctx, payment.TenantID, webhooks.EventPaymentFailed, map[string]interface{}{
		"payment_id":   payment.ID,
		"booking_id":   payment.BookingID,
		"failure_code": failureCode,
	})
	return nil
}

// AccountUpdated re-derives the tenant's connect status from the processor's
// capability flags. Status precedence: active over disabled over restricted
// over pending.
func (h *Handlers) AccountUpdated(ctx context.Context, payload *AccountPayload) error {
	profile, err := h.repo.GetProfileByAccountID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	profile.ChargesEnabled = payload.ChargesEnabled
	profile.PayoutsEnabled = payload.PayoutsEnabled
	profile.DetailsSubmitted = payload.DetailsSubmitted
	profile.ConnectStatus = connectStatus(payload)
	if err := h.repo.SaveProfile(profile); err != nil {
		return err
	}

	h.publish(ctx, profile.TenantID, webhooks.EventAccountUpdated, map[string]interface{}{
		"connect_status":  profile.ConnectStatus,
		"charges_enabled": profile.ChargesEnabled,
		"payouts_enabled": profile.PayoutsEnabled,
	})
	return nil
}

// AccountDeauthorized disables billing for the tenant and clears the account
// reference. Re-onboarding mints a fresh account.
func (h *Handlers) AccountDeauthorized(ctx context.Context, payload *AccountPayload) error {
	profile, err := h.repo.GetProfileByAccountID(payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	profile.ConnectAccountID = ""
	profile.ConnectStatus = models.ConnectStatusDisabled
	profile.ChargesEnabled = false
	profile.PayoutsEnabled = false
	if err := h.repo.SaveProfile(profile); err != nil {
		return err
	}

	if err := h.repo.CreateNotification(profile.TenantID, models.NotificationTypeSystem,
		"Payment processor access was revoked. Payments are disabled until the account is reconnected.",
		profile.ID); err != nil {
		log.Warnf("[Events] deauthorization notification for tenant %d: %v", profile.TenantID, err)
	}

	h.publish(ctx, profile.TenantID, webhooks.EventAccountUpdated, map[string]interface{}{
		"connect_status": models.ConnectStatusDisabled,
	})
	return nil
}

func connectStatus(payload *AccountPayload) string {
	if payload.ChargesEnabled && payload.PayoutsEnabled {
		return models.ConnectStatusActive
	}
	if payload.Requirements != nil {
		if payload.Requirements.DisabledReason != "" {
			return models.ConnectStatusDisabled
		}
		if len(payload.Requirements.CurrentlyDue) > 0 {
			return models.ConnectStatusRestricted
		}
	}
	return models.ConnectStatusPending
}

func (h *Handlers) publish(ctx context.Context, tenantID uint, event string, data interface{}) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, tenantID, event, data); err != nil {
		log.Warnf("[Events] publish %s for tenant %d: %v", event, tenantID, err)
	}
}

func metadataUint(metadata map[string]string, key string) (uint, error) {
	raw, ok := metadata[key]
	if !ok {
		return 0, fmt.Errorf("metadata missing %q", key)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("metadata %q is not a valid id: %q", key, raw)
	}
	return uint(id), nil
}

func metadataInt64(metadata map[string]string, key string) int64 {
	v, err := strconv.ParseInt(metadata[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
