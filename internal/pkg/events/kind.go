package events

import "github.com/stripe/stripe-go/v83"

// Kind is the closed set of inbound notification types the engine handles.
// Routing happens on this enum, not on raw strings, so adding a handler is a
// compile-checked change.
type Kind int

const (
	KindUnknown Kind = iota
	KindCheckoutCompleted
	KindPaymentSucceeded
	KindPaymentFailed
	KindAccountUpdated
	KindAccountDeauthorized
	KindSubscriptionCreated
	KindSubscriptionUpdated
	KindSubscriptionDeleted
	KindInvoicePaid
	KindInvoicePaymentFailed
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindCheckoutCompleted:    "checkout.session.completed",
	KindPaymentSucceeded:     "payment_intent.succeeded",
	KindPaymentFailed:        "payment_intent.payment_failed",
	KindAccountUpdated:       "account.updated",
	KindAccountDeauthorized:  "account.application.deauthorized",
	KindSubscriptionCreated:  "customer.subscription.created",
	KindSubscriptionUpdated:  "customer.subscription.updated",
	KindSubscriptionDeleted:  "customer.subscription.deleted",
	KindInvoicePaid:          "invoice.paid",
	KindInvoicePaymentFailed: "invoice.payment_failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromEventType maps a processor event-type string onto a Kind. Types we
// do not handle map to KindUnknown and are accepted as no-ops.
func KindFromEventType(eventType string) Kind {
	switch stripe.EventType(eventType) {
	case stripe.EventTypeCheckoutSessionCompleted:
		return KindCheckoutCompleted
	case stripe.EventTypePaymentIntentSucceeded:
		return KindPaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		return KindPaymentFailed
	case stripe.EventTypeAccountUpdated:
		return KindAccountUpdated
	case stripe.EventTypeAccountApplicationDeauthorized:
		return KindAccountDeauthorized
	case stripe.EventTypeCustomerSubscriptionCreated:
		return KindSubscriptionCreated
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return KindSubscriptionUpdated
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return KindSubscriptionDeleted
	case stripe.EventTypeInvoicePaid:
		return KindInvoicePaid
	case stripe.EventTypeInvoicePaymentFailed:
		return KindInvoicePaymentFailed
	default:
		return KindUnknown
	}
}
