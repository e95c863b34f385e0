package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrUnprocessable marks a delivery that will never succeed; it is sent to
// the dead letter queue instead of being retried.
var ErrUnprocessable = errors.New("unprocessable lead event")

// LeadEventHandler reacts to one decoded event.
type LeadEventHandler interface {
	HandleLeadEvent(ctx context.Context, event LeadEvent) error
}

// Consumer is satisfied by *amqp.Channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Handler LeadEventHandler
	Logger  *zap.Logger
}

func NewWorker(ch Consumer, handler LeadEventHandler, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{Channel: ch, Handler: handler, Logger: logger}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	w.Logger.Info("lead event worker started", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("lead event worker stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var event LeadEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.Logger.Error("malformed lead event", zap.Error(err))
		d.Nack(false, false)
		return
	}

	log := w.Logger.With(zap.String("type", event.Type), zap.String("lead_id", event.LeadID))

	err := w.Handler.HandleLeadEvent(ctx, event)
	switch {
	case err == nil:
		log.Debug("lead event handled")
		d.Ack(false)
	case errors.Is(err, ErrUnprocessable) || d.Redelivered:
		// Second failure goes to the DLQ so a bad message cannot loop forever.
		log.Error("lead event dead-lettered", zap.Error(err))
		d.Nack(false, false)
	default:
		log.Warn("lead event failed, requeueing", zap.Error(err))
		d.Nack(false, true)
	}
}
