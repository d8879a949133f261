package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/env"
	"github.com/rentbase/rentbase/internal/pkg/fees"
	"github.com/rentbase/rentbase/internal/pkg/ledger"
	"github.com/rentbase/rentbase/internal/pkg/processor"
	"github.com/rentbase/rentbase/internal/pkg/webhooks"
)

var validate = validator.New()

// Publisher queues outbound tenant notifications.
type Publisher interface {
	Publish(ctx context.Context, tenantID uint, event string, data interface{}) error
}

// Service orchestrates payment collection and refunds. All money movement
// goes through the processor client with deterministic idempotency keys; the
// service itself never invents amounts, it derives them from bookings and the
// fee calculator.
type Service struct {
	repo      Repository
	client    processor.Client
	ledger    ledger.Writer
	publisher Publisher
	demoMode  bool
}

// NewService wires the orchestrator. demoMode short-circuits processor calls
// for local development.
func NewService(repo Repository, client processor.Client, ledgerWriter ledger.Writer, publisher Publisher, demoMode bool) *Service {
	return &Service{repo: repo, client: client, ledger: ledgerWriter, publisher: publisher, demoMode: demoMode}
}

// NewServiceFromDB builds a service with GORM-backed collaborators and demo
// mode read from BILLING_DEMO_MODE.
func NewServiceFromDB(db *gorm.DB, client processor.Client, publisher Publisher) *Service {
	demo := env.GetEnv("BILLING_DEMO_MODE", "false") == "true"
	return NewService(NewRepository(db), client, ledger.NewWriter(db), publisher, demo)
}

// CreateCheckout validates the booking and tenant state, computes the charged
// amount and platform fee, and opens a processor checkout session whose funds
// settle to the tenant's connected account minus the commission.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationErr("invalid_request", err.Error())
	}

	booking, err := s.repo.GetBooking(req.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErr("booking_not_found", fmt.Sprintf("booking %d does not exist", req.BookingID))
		}
		return nil, transientErr("booking_lookup", err)
	}
	if booking.TenantID != req.TenantID {
		return nil, ineligibleErr("not_owner", "booking belongs to another tenant")
	}
	if booking.PaymentStatus == models.BookingPaymentPaid {
		return nil, ineligibleErr("already_paid", "booking is already settled")
	}

	profile, err := s.repo.GetProfileByTenantID(req.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ineligibleErr("not_connected", "tenant has no billing profile")
		}
		return nil, transientErr("profile_lookup", err)
	}
	if !profile.CanCollectPayments() {
		return nil, ineligibleErr("payments_disabled", "tenant's processor account cannot collect payments")
	}

	subtotal := req.AmountCents
	if subtotal == 0 {
		subtotal = booking.AmountCents
	}
	if subtotal <= 0 {
		return nil, validationErr("invalid_amount", "amount must be positive")
	}

	breakdown, err := fees.Calculate(subtotal, profile.PricingTier, req.DepositPct, profile.FeeOverrideBps)
	if err != nil {
		return nil, integrityErr("bad_tier", err.Error())
	}

	charged := breakdown.TotalCents
	paymentType := models.PaymentTypeFull
	if breakdown.DepositCents != nil {
		charged = *breakdown.DepositCents
		paymentType = models.PaymentTypeDeposit
	}
	platformFee, err := fees.PlatformFee(charged, profile.PricingTier, profile.FeeOverrideBps)
	if err != nil {
		return nil, integrityErr("bad_tier", err.Error())
	}

	if s.demoMode {
		return s.demoCheckout(ctx, booking, profile, charged, platformFee, paymentType)
	}

	feeBps := int64(0)
	if profile.FeeOverrideBps != nil {
		feeBps = *profile.FeeOverrideBps
	} else if rate, rateErr := fees.TierRateBps(profile.PricingTier); rateErr == nil {
		feeBps = rate
	}

	metadata := map[string]string{
		"booking_id":         strconv.FormatUint(uint64(booking.ID), 10),
		"tenant_id":          strconv.FormatUint(uint64(booking.TenantID), 10),
		"platform_fee_cents": strconv.FormatInt(platformFee, 10),
		"fee_bps":            strconv.FormatInt(feeBps, 10),
		"payment_type":       paymentType,
	}
	for k, v := range req.Metadata {
		if _, reserved := metadata[k]; !reserved {
			metadata[k] = v
		}
	}

	email := req.CustomerEmail
	if email == "" {
		email = booking.CustomerEmail
	}
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Booking %s", booking.Reference)
	}

	session, err := s.client.CreateCheckoutSession(ctx, processor.CheckoutParams{
		AmountCents:          charged,
		Currency:             booking.Currency,
		Description:          description,
		CustomerEmail:        email,
		DestinationAccountID: profile.ConnectAccountID,
		ApplicationFeeCents:  platformFee,
		Metadata:             metadata,
		SuccessURL:           req.SuccessURL,
		CancelURL:            req.CancelURL,
		IdempotencyKey:       processor.CheckoutIdempotencyKey(booking.ID),
	})
	if err != nil {
		return nil, reduceUpstream("checkout_failed", err)
	}

	return &CheckoutResult{
		SessionID:        session.ID,
		URL:              session.URL,
		AmountCents:      charged,
		PlatformFeeCents: platformFee,
	}, nil
}

// demoCheckout settles the booking locally without touching the processor.
func (s *Service) demoCheckout(ctx context.Context, booking *models.Booking, profile *models.TenantBillingProfile, charged, platformFee int64, paymentType string) (*CheckoutResult, error) {
	now := time.Now().UTC()
	processorFee := fees.ProcessorFeeEstimate(charged)
	payment := &models.Payment{
		TenantID:         booking.TenantID,
		BookingID:        booking.ID,
		AmountCents:      charged,
		Currency:         booking.Currency,
		Status:           models.PaymentStatusSucceeded,
		Type:             paymentType,
		PaymentIntentID:  "pi_demo_" + uuid.NewString(),
		SessionID:        "cs_demo_" + uuid.NewString(),
		PlatformFeeCents: platformFee,
		NetCents:         charged - platformFee - processorFee,
		PaidAt:           &now,
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, transientErr("payment_create", err)
	}
	if err := s.repo.MarkBookingPaid(booking.ID); err != nil {
		return nil, transientErr("booking_update", err)
	}

	feeBps := int64(0)
	if profile.FeeOverrideBps != nil {
		feeBps = *profile.FeeOverrideBps
	} else if rate, err := fees.TierRateBps(profile.PricingTier); err == nil {
		feeBps = rate
	}
	bookingID := booking.ID
	if _, err := s.ledger.Record(ctx, ledger.Entry{
		Type:              models.LedgerTypeBookingPayment,
		TenantID:          booking.TenantID,
		BookingID:         &bookingID,
		GrossCents:        charged,
		ProcessorFeeCents: processorFee,
		PlatformFeeCents:  platformFee,
		FeeBpsAtTime:      feeBps,
		NetCents:          payment.NetCents,
		ExternalReference: payment.PaymentIntentID,
		At:                now,
	}); err != nil {
		return nil, transientErr("ledger_write", err)
	}

	s.publish(ctx, booking.TenantID, webhooks.EventPaymentSucceeded, map[string]interface{}{
		"payment_id":   payment.ID,
		"booking_id":   booking.ID,
		"amount_cents": charged,
		"demo":         true,
	})

	return &CheckoutResult{
		SessionID:        payment.SessionID,
		AmountCents:      charged,
		PlatformFeeCents: platformFee,
		Demo:             true,
	}, nil
}

// CreateRefund runs the ordered precondition chain and issues the refund at
// the processor. The checks run in a fixed order so a request failing several
// of them always reports the same error.
func (s *Service) CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationErr("invalid_request", err.Error())
	}

	payment, err := s.repo.GetPayment(req.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErr("payment_not_found", fmt.Sprintf("payment %d does not exist", req.PaymentID))
		}
		return nil, transientErr("payment_lookup", err)
	}
	if !req.PlatformCaller && payment.TenantID != req.CallerTenantID {
		return nil, ineligibleErr("not_owner", "payment belongs to another tenant")
	}
	if payment.PaymentIntentID == "" {
		return nil, integrityErr("missing_intent", "payment has no processor reference")
	}
	if payment.RemainingRefundableCents() == 0 {
		return nil, ineligibleErr("fully_refunded", "payment is already fully refunded")
	}
	if !payment.IsRefundable() {
		return nil, ineligibleErr("not_refundable", fmt.Sprintf("payment status %q does not permit refunds", payment.Status))
	}

	amount := req.AmountCents
	if amount == 0 {
		amount = payment.RemainingRefundableCents()
	}
	if amount > payment.RemainingRefundableCents() {
		return nil, ineligibleErr("amount_exceeds_remaining",
			fmt.Sprintf("requested %d exceeds remaining refundable %d", amount, payment.RemainingRefundableCents()))
	}

	refund, err := s.client.CreateRefund(ctx, processor.RefundParams{
		PaymentIntentID: payment.PaymentIntentID,
		AmountCents:     amount,
		Reason:          req.Reason,
		IdempotencyKey:  processor.RefundIdempotencyKey(payment.ID),
	})
	if err != nil {
		return nil, reduceUpstream("refund_failed", err)
	}

	payment.RefundedCents += amount
	payment.RefundReason = req.Reason
	if payment.RefundedCents >= payment.AmountCents {
		payment.Status = models.PaymentStatusRefunded
	} else {
		payment.Status = models.PaymentStatusPartiallyRefunded
	}
	if err := s.repo.SavePayment(payment); err != nil {
		return nil, transientErr("payment_update", err)
	}

	s.recordRefundLedger(ctx, payment, amount, refund.ID)

	if err := s.repo.CreateNotification(payment.TenantID, models.NotificationTypeRefund,
		fmt.Sprintf("Refund of %d %s issued for payment #%d", amount, payment.Currency, payment.ID),
		payment.ID); err != nil {
		log.Warnf("[Billing] refund notification for payment %d: %v", payment.ID, err)
	}

	s.publish(ctx, payment.TenantID, webhooks.EventPaymentRefunded, map[string]interface{}{
		"payment_id":     payment.ID,
		"booking_id":     payment.BookingID,
		"refund_id":      refund.ID,
		"amount_cents":   amount,
		"payment_status": payment.Status,
	})

	return &RefundResult{
		RefundID:            refund.ID,
		PaymentID:           payment.ID,
		RefundedCents:       amount,
		TotalRefundedCents:  payment.RefundedCents,
		PaymentStatus:       payment.Status,
		RemainingRefundable: payment.RemainingRefundableCents(),
	}, nil
}

// recordRefundLedger appends the negative-amount refund row. The refund is
// already final at the processor, so a ledger failure here is logged rather
// than unwound.
func (s *Service) recordRefundLedger(ctx context.Context, payment *models.Payment, amount int64, refundID string) {
	bookingID := payment.BookingID
	entry := ledger.Entry{
		Type:              models.LedgerTypeRefund,
		TenantID:          payment.TenantID,
		BookingID:         &bookingID,
		GrossCents:        -amount,
		NetCents:          -amount,
		ExternalReference: refundID,
	}
	if original, err := s.ledger.BookingPaymentTransaction(ctx, payment.BookingID); err == nil {
		entry.OriginalTransactionID = &original.ID
	}
	if _, err := s.ledger.Record(ctx, entry); err != nil {
		log.Errorf("[Billing] refund ledger row for payment %d: %v", payment.ID, err)
	}
}

func (s *Service) publish(ctx context.Context, tenantID uint, event string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, tenantID, event, data); err != nil {
		log.Warnf("[Billing] publish %s for tenant %d: %v", event, tenantID, err)
	}
}

// reduceUpstream classifies a processor failure: API rejections are upstream
// errors with the processor's code, anything else is transient.
func reduceUpstream(code string, err error) *Error {
	var apiErr *processor.APIError
	if errors.As(err, &apiErr) {
		return upstreamErr(code, fmt.Sprintf("processor rejected the request (%s/%s)", apiErr.Type, apiErr.Code), err)
	}
	return transientErr(code, err)
}
