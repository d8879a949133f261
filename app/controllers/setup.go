package controllers

import (
	"github.com/rentbase/rentbase/internal/pkg/billing"
	"github.com/rentbase/rentbase/internal/pkg/database"
	"github.com/rentbase/rentbase/internal/pkg/env"
	"github.com/rentbase/rentbase/internal/pkg/events"
	"github.com/rentbase/rentbase/internal/pkg/ledger"
	"github.com/rentbase/rentbase/internal/pkg/mail"
	"github.com/rentbase/rentbase/internal/pkg/processor"
	"github.com/rentbase/rentbase/internal/pkg/subsync"
	"github.com/rentbase/rentbase/internal/pkg/webhooks"
)

var (
	billingService *billing.Service
	subsyncService *subsync.Service
	eventProcessor *events.Processor
	dispatcher     *webhooks.Dispatcher
	webhookRepo    webhooks.Repository
	sweeper        *webhooks.Manager
)

// Setup wires the service graph once the database connection exists. Must run
// before any route is served.
func Setup() {
	db := database.GetDB()
	client := processor.NewClientFromEnv()
	ledgerWriter := ledger.NewWriter(db)

	webhookRepo = webhooks.NewRepository(db)
	sender := webhooks.NewSender(webhookRepo, mail.NewOperatorAlerter())
	dispatcher = webhooks.NewDispatcher(webhookRepo, sender)
	sweeper = webhooks.NewManager(webhookRepo, sender, 0)

	subsyncService = subsync.NewService(subsync.NewRepository(db), client, ledgerWriter, dispatcher)

	eventRepo := events.NewRepository(db)
	handlers := events.NewHandlers(eventRepo, ledgerWriter, dispatcher, subsyncService)
	eventProcessor = events.NewProcessor(env.GetEnv("PROCESSOR_WEBHOOK_SECRET", ""), eventRepo, handlers)

	billingService = billing.NewServiceFromDB(db, client, dispatcher)
}

// Sweeper exposes the delivery retry manager so main can start and stop it.
func Sweeper() *webhooks.Manager {
	return sweeper
}
