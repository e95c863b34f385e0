package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

type DigestSender interface {
	SendFollowUpDigest(to string, day time.Time, leads []entity.Lead) error
}

// FollowUpWorker mails the admin a digest of the leads whose next follow-up
// is today. It sends at most one digest per day and never modifies leads.
type FollowUpWorker struct {
	leads        entity.LeadRepositoryInterface
	sender       DigestSender
	adminEmail   string
	tickInterval time.Duration
	logger       *zap.Logger
	now          func() time.Time

	lastSent time.Time
}

func NewFollowUpWorker(leads entity.LeadRepositoryInterface, sender DigestSender, adminEmail string, tick time.Duration, logger *zap.Logger) *FollowUpWorker {
	if tick <= 0 {
		tick = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowUpWorker{
		leads:        leads,
		sender:       sender,
		adminEmail:   adminEmail,
		tickInterval: tick,
		logger:       logger,
		now:          time.Now,
	}
}

func (w *FollowUpWorker) Start(ctx context.Context) {
	w.logger.Info("follow-up worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("follow-up worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce reports whether a digest was sent.
func (w *FollowUpWorker) runOnce(ctx context.Context) bool {
	today := entity.DateOnly(w.now())
	if w.lastSent.Equal(today) {
		return false
	}

	due, err := w.leads.DueFollowUps(ctx, today)
	if err != nil {
		w.logger.Error("load due follow-ups", zap.Error(err))
		return false
	}
	if len(due) == 0 {
		w.lastSent = today
		return false
	}

	if err := w.sender.SendFollowUpDigest(w.adminEmail, today, due); err != nil {
		// Retried on the next tick.
		w.logger.Warn("follow-up digest not sent", zap.Int("due", len(due)), zap.Error(err))
		return false
	}

	w.lastSent = today
	w.logger.Info("follow-up digest sent", zap.Int("due", len(due)), zap.String("to", w.adminEmail))
	return true
}
