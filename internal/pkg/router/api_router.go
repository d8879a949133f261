package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rentbase/rentbase/app/controllers"
	"github.com/rentbase/rentbase/internal/pkg/cache"
	"github.com/rentbase/rentbase/internal/pkg/constants"
	"github.com/rentbase/rentbase/internal/pkg/env"
	"github.com/rentbase/rentbase/internal/pkg/middleware"
	"github.com/rentbase/rentbase/internal/pkg/ratelimit"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	store := limiterStore()

	api := app.Group(constants.APIPrefix)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"name":   "rentbase billing api",
			"status": "ok",
		})
	})

	// Inbound processor notifications carry their own signature; the API key
	// middleware never sees them.
	app.Post(constants.ProcessorWebhookRoute,
		ratelimit.New(store, ratelimit.QuotaInbound),
		controllers.HandleProcessorWebhook)

	v1 := api.Group(constants.APIV1Prefix)

	// Everything below requires a tenant API key.
	tenant := v1.Group("", middleware.APIKeyAuthMiddleware())

	tenant.Post(constants.CheckoutRoute,
		ratelimit.New(store, ratelimit.QuotaCheckout),
		controllers.HandleCreateCheckout)
	tenant.Post(constants.RefundRoute,
		ratelimit.New(store, ratelimit.QuotaRefund),
		controllers.HandleCreateRefund)

	tenant.Get(constants.SubscriptionRoute,
		ratelimit.New(store, ratelimit.QuotaRead),
		controllers.HandleGetSubscription)
	tenant.Post(constants.SubscriptionCancelRoute,
		ratelimit.New(store, ratelimit.QuotaAccount),
		controllers.HandleCancelSubscription)

	tenant.Post(constants.WebhookEndpointsRoute,
		ratelimit.New(store, ratelimit.QuotaAccount),
		controllers.HandleCreateWebhookEndpoint)
	tenant.Get(constants.WebhookEndpointsRoute,
		ratelimit.New(store, ratelimit.QuotaRead),
		controllers.HandleListWebhookEndpoints)
	tenant.Delete(constants.WebhookEndpointRoute,
		ratelimit.New(store, ratelimit.QuotaAccount),
		controllers.HandleDeleteWebhookEndpoint)
	tenant.Post(constants.WebhookEndpointTest,
		ratelimit.New(store, ratelimit.QuotaAccount),
		controllers.HandleTestWebhookEndpoint)

	tenant.Get(constants.WebhookDeliveriesRoute,
		ratelimit.New(store, ratelimit.QuotaRead),
		controllers.HandleListWebhookDeliveries)
	tenant.Post(constants.WebhookDeliveryRetry,
		ratelimit.New(store, ratelimit.QuotaAccount),
		controllers.HandleRetryWebhookDelivery)
}

// limiterStore picks the limiter backend. Redis keeps counters shared across
// instances; a single-node deployment can opt out and count in memory.
func limiterStore() ratelimit.Store {
	if env.GetEnv("RATELIMIT_BACKEND", "redis") == "memory" {
		return ratelimit.NewMemoryStore()
	}
	return ratelimit.NewRedisStore(cache.GetClient())
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
