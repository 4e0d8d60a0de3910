package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/EgehanKilicarslan/bienesraices/internal/mq"
	"github.com/EgehanKilicarslan/bienesraices/internal/worker"
)

// Dispatcher hands a message off for delivery without blocking on SMTP.
// A nil error only means the message was accepted, not delivered.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// ==================== Inline (worker pool) ====================

// PoolDispatcher delivers on the shared worker pool so shutdown waits for in-flight mail
type PoolDispatcher struct {
	pool    *worker.Pool
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger
}

// NewPoolDispatcher creates a dispatcher that sends from background workers
func NewPoolDispatcher(pool *worker.Pool, sender Sender, timeout time.Duration, logger *slog.Logger) *PoolDispatcher {
	return &PoolDispatcher{
		pool:    pool,
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

func (d *PoolDispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.pool.SubmitWithTimeout("mail", d.timeout, func(ctx context.Context) {
		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Error("❌ [Mail] Delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
			return
		}
		d.logger.Info("📧 [Mail] Delivered", "to", msg.To, "subject", msg.Subject)
	})
	return nil
}

// ==================== Queue ====================

// QueueDispatcher publishes messages to the broker, the mailer command delivers them
type QueueDispatcher struct {
	mq     *mq.MQ
	queue  string
	logger *slog.Logger
}

// NewQueueDispatcher creates a dispatcher publishing to queue
func NewQueueDispatcher(broker *mq.MQ, queue string, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		mq:     broker,
		queue:  queue,
		logger: logger,
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode mail: %w", err)
	}

	id, err := d.mq.Publish(ctx, d.queue, data, map[string]string{"kind": "mail"})
	if err != nil {
		d.logger.Error("❌ [Mail] Failed to enqueue", "to", msg.To, "queue", d.queue, "error", err)
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}

	d.logger.Debug("📨 [Mail] Enqueued", "to", msg.To, "queue", d.queue, "message_id", id)
	return nil
}

// ==================== Consumer ====================

// QueueHandler decodes queued messages and delivers them with sender.
// Undecodable payloads are logged and acknowledged so they are not redelivered forever.
func QueueHandler(sender Sender, logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, m mq.Message) error {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			logger.Error("❌ [Mailer] Dropping malformed message", "message_id", m.ID, "error", err)
			return nil
		}

		if err := sender.Send(ctx, msg); err != nil {
			logger.Error("❌ [Mailer] Delivery failed", "message_id", m.ID, "to", msg.To, "error", err)
			return err
		}

		logger.Info("📧 [Mailer] Delivered", "message_id", m.ID, "to", msg.To)
		return nil
	}
}
