package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/rentbase/rentbase/internal/pkg/signing"
)

// EventTolerance bounds both the signed-timestamp check and the envelope's
// own freshness check.
const EventTolerance = 5 * time.Minute

var (
	ErrBadEnvelope = errors.New("malformed event envelope")
	ErrStaleEvent  = errors.New("event originated outside the freshness window")
	// ErrDedupStore means the replay guard could not be written. The
	// notification is rejected so the processor retries it (fail-closed).
	ErrDedupStore = errors.New("replay guard unavailable")
)

// Processor runs every inbound notification through verification, replay
// protection and dispatch. Its Process result is terminal: nil means the
// notification is accepted and must be acknowledged, an error means rejected.
type Processor struct {
	secret   string
	repo     Repository
	handlers *Handlers
	now      func() time.Time
}

// NewProcessor creates the inbound pipeline. secret is the shared HMAC key
// for the processor's signatures.
func NewProcessor(secret string, repo Repository, handlers *Handlers) *Processor {
	return &Processor{secret: secret, repo: repo, handlers: handlers, now: time.Now}
}

// Process verifies, deduplicates and dispatches one raw notification.
//
// The replay-guard row is inserted before the handler runs. A duplicate id is
// accepted without invoking the handler; a guard write failure rejects the
// notification even though it may be genuine, because without the guard a
// retry could apply a financial mutation twice.
func (p *Processor) Process(ctx context.Context, body []byte, signatureHeader string) error {
	now := p.now().UTC()
	if err := signing.Verify(body, signatureHeader, p.secret, EventTolerance, now); err != nil {
		return err
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if envelope.ID == "" || envelope.Type == "" {
		return ErrBadEnvelope
	}
	if now.Sub(envelope.CreatedAt()) > EventTolerance {
		return fmt.Errorf("%w: created %s", ErrStaleEvent, envelope.CreatedAt().Format(time.RFC3339))
	}

	created, err := p.repo.InsertProcessedEvent(envelope.ID, envelope.Type, envelope.CreatedAt())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDedupStore, err)
	}
	if !created {
		log.Debugf("[Events] duplicate %s (%s), skipping", envelope.ID, envelope.Type)
		return nil
	}

	if err := p.dispatch(ctx, &envelope); err != nil {
		// The event is recorded and acknowledged; the failure is local and
		// surfaces through logs, not through a processor retry that the
		// replay guard would swallow anyway.
		log.Errorf("[Events] handler for %s (%s) failed: %v", envelope.ID, envelope.Type, err)
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, envelope *Envelope) error {
	switch KindFromEventType(envelope.Type) {
	case KindCheckoutCompleted:
		var payload CheckoutSessionPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.CheckoutCompleted(ctx, &payload)

	case KindPaymentSucceeded:
		var payload PaymentIntentPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.PaymentSucceeded(ctx, &payload)

	case KindPaymentFailed:
		var payload PaymentIntentPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.PaymentFailed(ctx, &payload)

	case KindAccountUpdated:
		var payload AccountPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.AccountUpdated(ctx, &payload)

	case KindAccountDeauthorized:
		var payload AccountPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.AccountDeauthorized(ctx, &payload)

	case KindSubscriptionCreated:
		var payload SubscriptionPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.subs.SubscriptionCreated(ctx, &payload)

	case KindSubscriptionUpdated:
		var payload SubscriptionPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.subs.SubscriptionUpdated(ctx, &payload)

	case KindSubscriptionDeleted:
		var payload SubscriptionPayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.subs.SubscriptionDeleted(ctx, &payload)

	case KindInvoicePaid:
		var payload InvoicePayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.subs.InvoicePaid(ctx, &payload)

	case KindInvoicePaymentFailed:
		var payload InvoicePayload
		if err := json.Unmarshal(envelope.Data.Object, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
		}
		return p.handlers.subs.InvoicePaymentFailed(ctx, &payload)

	default:
		log.Debugf("[Events] unhandled type %s, acknowledged", envelope.Type)
		return nil
	}
}
