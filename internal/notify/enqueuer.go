package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-aurum/internal/events"
	"github.com/noah-isme/backend-aurum/internal/resilience"
)

// Enqueuer listens on the event bus and schedules background delivery
// tasks. It implements events.Notifier. When a Breaker is set, enqueue
// failures trip it and an open breaker short-circuits with ErrOpenCircuit
// instead of paying a Redis round trip per sale.
type Enqueuer struct {
	Client  *asynq.Client
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

func (e Enqueuer) enqueue(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	if e.Breaker != nil && !e.Breaker.Allow(ctx) {
		return nil, resilience.ErrOpenCircuit
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if e.Breaker != nil {
		e.Breaker.Report(ctx, err == nil)
	}
	return info, err
}

// Notify maps committed-sale and stock-depleted events onto asynq tasks.
// Unknown topics are ignored.
func (e Enqueuer) Notify(ctx context.Context, event events.Event) error {
	if e.Client == nil {
		return nil
	}
	switch event.Topic {
	case events.TopicSaleCommitted:
		return e.enqueueReceipt(ctx, event)
	case events.TopicStockDepleted:
		return e.enqueueStockAlert(ctx, event)
	default:
		return nil
	}
}

func (e Enqueuer) enqueueReceipt(ctx context.Context, event events.Event) error {
	var p ReceiptPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("notify: decode sale payload: %w", err)
	}
	if strings.TrimSpace(p.CustomerEmail) == "" {
		// Walk-in sale with no email on file, nothing to deliver.
		return nil
	}
	p.CommittedAt = event.OccurredAt
	task, err := NewReceiptEmailTask(p)
	if err != nil {
		return err
	}
	info, err := e.enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("notify: enqueue receipt: %w", err)
	}
	e.Logger.Debug().Str("task_id", info.ID).Str("invoice", p.InvoiceNumber).Msg("receipt queued")
	return nil
}

func (e Enqueuer) enqueueStockAlert(ctx context.Context, event events.Event) error {
	var p StockAlertPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("notify: decode stock payload: %w", err)
	}
	if p.ProductID == "" {
		p.ProductID = event.AggregateID.String()
	}
	task, err := NewStockAlertTask(p)
	if err != nil {
		return err
	}
	if _, err := e.enqueue(ctx, task); err != nil {
		return fmt.Errorf("notify: enqueue stock alert: %w", err)
	}
	return nil
}
