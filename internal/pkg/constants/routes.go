package constants

// API route constants
const (
	APIPrefix   = "/api"
	APIV1Prefix = "/v1"

	// Authenticated tenant surface
	CheckoutRoute           = "/checkout"
	RefundRoute             = "/refunds"
	SubscriptionRoute       = "/subscription"
	SubscriptionCancelRoute = "/subscription/cancel"
	WebhookEndpointsRoute   = "/webhook-endpoints"
	WebhookEndpointRoute    = "/webhook-endpoints/:id"
	WebhookEndpointTest     = "/webhook-endpoints/:id/test"
	WebhookDeliveriesRoute  = "/webhook-deliveries"
	WebhookDeliveryRetry    = "/webhook-deliveries/:id/retry"

	// Inbound processor notifications, signature-authenticated
	ProcessorWebhookRoute = "/webhooks/processor"
)
