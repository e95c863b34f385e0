package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/app"
	"github.com/xavierca1/nivesh-crm/internal/config"
	"github.com/xavierca1/nivesh-crm/internal/infra/http/handlers"
	"github.com/xavierca1/nivesh-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/nivesh-crm/internal/infra/mail"
	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
	"github.com/xavierca1/nivesh-crm/internal/infra/ratelimit"
	"github.com/xavierca1/nivesh-crm/internal/infra/worker"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	st, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// 2. Rate limiter: Redis when configured, otherwise per process
	var (
		rdb     *redis.Client
		limiter handlers.RateLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window())
	} else {
		ml := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window())
		go ml.Cleanup(ctx, time.Minute)
		limiter = ml
	}

	// 3. Notifications
	var sender *mail.EmailSender
	if cfg.Mail.Enabled() {
		sender = mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From, cfg.Mail.Brand)
	}

	var mq *queue.RabbitMQ
	if cfg.RabbitMQ.URL != "" {
		mq, err = queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		defer mq.Close()
		logger.Info("rabbitmq connected", zap.String("queue", queue.QueueName))

		if sender != nil || cfg.WhatsApp.Enabled() {
			consumer, err := mq.Conn.Channel()
			if err != nil {
				return fmt.Errorf("open consumer channel: %w", err)
			}
			defer consumer.Close()

			notifier := mail.NewNotifier(sender, st.Webinars, logger)
			if cfg.WhatsApp.Enabled() {
				wa := whatsapp.NewClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneID, cfg.WhatsApp.BaseURL, cfg.WhatsApp.Language, logger)
				notifier.WithMessages(wa, cfg.WhatsApp.Template)
			}

			w := queue.NewWorker(consumer, notifier, logger)
			go func() {
				if err := w.Start(ctx, queue.QueueName); err != nil {
					logger.Error("lead event worker", zap.Error(err))
				}
			}()
		}
	}

	if sender != nil && cfg.Mail.AdminEmail != "" {
		fw := worker.NewFollowUpWorker(st.Leads, sender, cfg.Mail.AdminEmail, cfg.FollowUp.Interval(), logger)
		go fw.Start(ctx)
	}

	// 4. HTTP
	router := buildRouter(cfg, st, mq, rdb, limiter, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
