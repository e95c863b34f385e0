package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
)

// MessageSender delivers a pre-approved template message to a phone number.
// Satisfied by the WhatsApp client adapter.
type MessageSender interface {
	SendTemplate(ctx context.Context, phone, template string, params []string) error
}

// Notifier turns lead events from the queue into emails and, when a message
// sender is set, a WhatsApp confirmation. Either channel may be nil.
type Notifier struct {
	Sender   *EmailSender
	Messages MessageSender
	Template string
	Webinars entity.WebinarRepositoryInterface
	Logger   *zap.Logger
}

func NewNotifier(sender *EmailSender, webinars entity.WebinarRepositoryInterface, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{Sender: sender, Webinars: webinars, Logger: logger}
}

// WithMessages enables the WhatsApp confirmation using template.
func (n *Notifier) WithMessages(m MessageSender, template string) *Notifier {
	n.Messages = m
	n.Template = template
	return n
}

func (n *Notifier) HandleLeadEvent(ctx context.Context, event queue.LeadEvent) error {
	switch event.Type {
	case queue.EventRegistration:
		return n.registration(ctx, event)
	default:
		return fmt.Errorf("%w: unknown type %q", queue.ErrUnprocessable, event.Type)
	}
}

func (n *Notifier) registration(ctx context.Context, event queue.LeadEvent) error {
	data := RegistrationEmailData{
		Name:         event.Name,
		Phone:        "+" + event.Phone,
		WebinarTitle: event.WebinarTitle,
	}
	if event.WebinarID != "" && n.Webinars != nil {
		if w, err := n.Webinars.FindByID(ctx, event.WebinarID); err == nil {
			data.WebinarTitle = w.Title
			data.WebinarDate = w.Date.Format("02 Jan 2006")
			if w.Time != "" {
				data.WebinarDate += ", " + w.Time
			}
		}
	}

	// A failed WhatsApp send is logged only; the email below is what gets
	// retried through the queue.
	if n.Messages != nil && event.Phone != "" {
		params := []string{event.Name, data.WebinarTitle, data.WebinarDate}
		if err := n.Messages.SendTemplate(ctx, event.Phone, n.Template, params); err != nil {
			n.Logger.Warn("whatsapp confirmation failed", zap.String("lead_id", event.LeadID), zap.Error(err))
		}
	}

	if n.Sender == nil || event.Email == "" {
		n.Logger.Debug("registration without email, nothing to send", zap.String("lead_id", event.LeadID))
		return nil
	}
	return n.Sender.SendRegistrationConfirmation(event.Email, data)
}
