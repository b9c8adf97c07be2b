package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/common"
)

// ProductLookup resolves products for alert rendering.
type ProductLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Worker handles queued notification tasks.
type Worker struct {
	Mail       common.EmailSender
	Products   ProductLookup
	From       string
	OwnerEmail string
	Logger     zerolog.Logger
}

// Register attaches the task handlers onto the asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReceiptEmail, w.HandleReceiptEmail)
	mux.HandleFunc(TypeStockAlert, w.HandleStockAlert)
}

// HandleReceiptEmail renders and sends the sale receipt.
func (w *Worker) HandleReceiptEmail(_ context.Context, task *asynq.Task) error {
	if w.Mail == nil {
		return nil
	}
	var p ReceiptPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("receipt: decode payload: %w", err)
	}
	to := strings.TrimSpace(p.CustomerEmail)
	if to == "" {
		return nil
	}
	subject := fmt.Sprintf("Receipt for invoice %s", p.InvoiceNumber)
	body := receiptBody(p, w.From)
	if err := w.Mail.Send(to, subject, body); err != nil {
		return fmt.Errorf("receipt: send: %w", err)
	}
	w.Logger.Info().Str("invoice", p.InvoiceNumber).Str("to", to).Msg("receipt sent")
	return nil
}

// HandleStockAlert tells the owner a product ran out. The product is
// re-read at handling time so the alert reflects current stock, not the
// quantity at enqueue time.
func (w *Worker) HandleStockAlert(ctx context.Context, task *asynq.Task) error {
	if w.Mail == nil || strings.TrimSpace(w.OwnerEmail) == "" {
		return nil
	}
	var p StockAlertPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("stock alert: decode payload: %w", err)
	}
	if w.Products != nil && p.ProductID != "" {
		if id, err := uuid.Parse(p.ProductID); err == nil {
			if product, err := w.Products.GetByID(ctx, id); err == nil {
				p.Barcode = product.Barcode
				p.ProductName = product.Name
				p.Quantity = product.Quantity
			}
		}
	}
	name := p.ProductName
	if name == "" {
		name = p.ProductID
	}
	subject := fmt.Sprintf("Stock alert: %s", name)
	body := fmt.Sprintf("%s (barcode %s) is down to %d units. Restock before the next sale.",
		name, p.Barcode, p.Quantity)
	if err := w.Mail.Send(w.OwnerEmail, subject, body); err != nil {
		return fmt.Errorf("stock alert: send: %w", err)
	}
	return nil
}

func receiptBody(p ReceiptPayload, from string) string {
	var b strings.Builder
	name := strings.TrimSpace(p.CustomerName)
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "Thank you for your purchase. Invoice %s", p.InvoiceNumber)
	if !p.CommittedAt.IsZero() {
		fmt.Fprintf(&b, " dated %s", p.CommittedAt.Format("02 Jan 2006"))
	}
	fmt.Fprintf(&b, " totals %s.\n", formatPaise(p.Total))
	b.WriteString("\nPlease retain this receipt for exchanges and buy-backs.\n")
	if from = strings.TrimSpace(from); from != "" {
		fmt.Fprintf(&b, "Questions about this invoice? Write to %s.\n", from)
	}
	return b.String()
}

// formatPaise renders a paise amount as rupees with two decimals.
func formatPaise(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, amount/100, amount%100)
}
