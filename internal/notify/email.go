package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/backend-aurum/internal/common"
	"github.com/noah-isme/backend-aurum/internal/events"
)

// ReconcileNotifier emails the owner immediately when a sale commits
// partially. This one bypasses the queue: an invoice whose stock was not
// decremented is an open liability and the mail should not wait behind
// receipt traffic.
type ReconcileNotifier struct {
	Mail       common.EmailSender
	OwnerEmail string
	Enabled    bool
}

// Notify implements events.Notifier for reconcile-required events.
func (n ReconcileNotifier) Notify(_ context.Context, event events.Event) error {
	if !n.Enabled || n.Mail == nil || n.OwnerEmail == "" {
		return nil
	}
	if event.Topic != events.TopicReconcileRequired {
		return nil
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("reconcile notify: decode payload: %w", err)
		}
	}
	number, _ := payload["number"].(string)
	reason, _ := payload["reason"].(string)
	subject := fmt.Sprintf("Reconciliation required: invoice %s", number)
	body := fmt.Sprintf(
		"Invoice %s was written but inventory did not update.\nReason: %s\n\nCompare the invoice items against current stock and adjust manually.",
		number, reason)
	return n.Mail.Send(n.OwnerEmail, subject, body)
}
