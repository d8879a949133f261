package processor

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/account"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/subscription"

	"github.com/rentbase/rentbase/internal/pkg/env"
)

// CheckoutParams describes one payment-collection request. The destination
// transfer and application fee implement the marketplace split: the charge
// settles to the tenant's connected account minus the platform commission.
type CheckoutParams struct {
	AmountCents          int64
	Currency             string
	Description          string
	CustomerEmail        string
	DestinationAccountID string
	ApplicationFeeCents  int64
	Metadata             map[string]string
	SuccessURL           string
	CancelURL            string
	IdempotencyKey       string
}

// CheckoutSession is the subset of the processor's session we keep.
type CheckoutSession struct {
	ID  string
	URL string
}

// RefundParams describes one refund request against a payment intent.
type RefundParams struct {
	PaymentIntentID string
	AmountCents     int64
	Reason          string
	IdempotencyKey  string
}

// RefundResult is the subset of the processor's refund object we keep.
type RefundResult struct {
	ID     string
	Status string
}

// Account is the connected-account state relevant to billing eligibility.
type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	DisabledReason   string
	CurrentlyDue     []string
}

// SubscriptionState is the subset of the processor's subscription we keep.
type SubscriptionState struct {
	ID                string
	Status            string
	CancelAtPeriodEnd bool
	CanceledAt        *time.Time
}

// Client is the outbound interface to the external payment processor. All
// mutating calls carry a deterministic idempotency key.
type Client interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreateRefund(ctx context.Context, params RefundParams) (*RefundResult, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID, idempotencyKey string) (*SubscriptionState, error)
	CancelSubscriptionNow(ctx context.Context, subscriptionID, idempotencyKey string) (*SubscriptionState, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error)
}

type stripeClient struct{}

// NewClientFromEnv configures the SDK with the secret key from the
// environment and returns a live processor client.
func NewClientFromEnv() Client {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	return &stripeClient{}
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(p.ApplicationFeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(p.DestinationAccountID),
			},
			Metadata: p.Metadata,
		},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(p.IdempotencyKey)
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, reduceError(err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (c *stripeClient) CreateRefund(ctx context.Context, p RefundParams) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(p.PaymentIntentID),
	}
	if p.AmountCents > 0 {
		params.Amount = stripe.Int64(p.AmountCents)
	}
	if p.Reason != "" {
		params.Reason = stripe.String(p.Reason)
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(p.IdempotencyKey)

	r, err := refund.New(params)
	if err != nil {
		return nil, reduceError(err)
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status)}, nil
}

func (c *stripeClient) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	a, err := account.GetByID(accountID, params)
	if err != nil {
		return nil, reduceError(err)
	}
	out := &Account{
		ID:               a.ID,
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
	}
	if a.Requirements != nil {
		out.DisabledReason = string(a.Requirements.DisabledReason)
		out.CurrentlyDue = a.Requirements.CurrentlyDue
	}
	return out, nil
}

func (c *stripeClient) CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID, idempotencyKey string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)

	s, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, reduceError(err)
	}
	return subscriptionState(s), nil
}

func (c *stripeClient) CancelSubscriptionNow(ctx context.Context, subscriptionID, idempotencyKey string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)

	s, err := subscription.Cancel(subscriptionID, params)
	if err != nil {
		return nil, reduceError(err)
	}
	return subscriptionState(s), nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, reduceError(err)
	}
	return subscriptionState(s), nil
}

func subscriptionState(s *stripe.Subscription) *SubscriptionState {
	state := &SubscriptionState{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.CanceledAt > 0 {
		t := time.Unix(s.CanceledAt, 0).UTC()
		state.CanceledAt = &t
	}
	return state
}
