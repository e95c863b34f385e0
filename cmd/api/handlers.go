package main

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/app"
	"github.com/xavierca1/nivesh-crm/internal/config"
	"github.com/xavierca1/nivesh-crm/internal/infra/http/handlers"
	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

var version = "dev"

// buildRouter creates the use cases over st and hands them to the HTTP layer.
// mq and rdb are optional.
func buildRouter(cfg *config.Config, st *app.Stores, mq *queue.RabbitMQ, rdb *redis.Client, limiter handlers.RateLimiter, logger *zap.Logger) handlers.Router {
	normalizer := app.Normalizer(cfg)

	upsertUC := usecase.NewUpsertLeadsUseCase(st.Leads, normalizer, cfg.Leads.MaxBatchSize, logger)
	searchUC := usecase.NewSearchLeadsUseCase(st.Leads)
	adminUC := usecase.NewLeadAdminUseCase(st.Leads, normalizer, logger)
	ledgerUC := usecase.NewFeeLedgerUseCase(st.Ledger, logger)
	webinarUC := usecase.NewWebinarUseCase(st.Webinars, st.Courses, logger)

	var (
		events usecase.LeadEventPublisher
		conn   *amqp.Connection
	)
	if mq != nil {
		events = queue.NewProducer(mq.Ch)
		conn = mq.Conn
	}
	registerUC := usecase.NewRegisterLeadUseCase(upsertUC, st.Webinars, events, logger)
	health := handlers.NewHealthHandler(st.DB, rdb, conn, cfg.Store.Backend, version)

	return handlers.Router{
		Leads:          handlers.NewLeadHandler(registerUC, limiter, logger),
		AdminLeads:     handlers.NewAdminLeadHandler(upsertUC, searchUC, adminUC),
		Installments:   handlers.NewInstallmentHandler(ledgerUC),
		Webinars:       handlers.NewWebinarHandler(webinarUC),
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}
}
