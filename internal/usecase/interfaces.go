package usecase

import (
	"context"

	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
)

// LeadEventPublisher delivers lead events to the notification pipeline.
type LeadEventPublisher interface {
	PublishLeadEvent(ctx context.Context, event queue.LeadEvent) error
}
