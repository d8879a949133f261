package webhooks

// Outbound event names tenants can subscribe to.
const (
	EventPaymentSucceeded     = "payment.succeeded"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"
	EventAccountUpdated       = "account.updated"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
	EventTestPing             = "test.ping"
)

// KnownEvents lists every subscribable event name.
var KnownEvents = []string{
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventAccountUpdated,
	EventSubscriptionUpdated,
	EventSubscriptionCanceled,
}

// IsKnownEvent reports whether an event name is subscribable. "*" is the
// wildcard subscription.
func IsKnownEvent(name string) bool {
	if name == "*" {
		return true
	}
	for _, known := range KnownEvents {
		if known == name {
			return true
		}
	}
	return false
}
