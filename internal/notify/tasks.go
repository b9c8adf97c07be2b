// Package notify turns domain events into background work: receipt emails
// after each committed sale and low-stock alerts for the owner. Delivery
// runs on asynq so a slow SMTP hop never blocks the billing counter.
package notify

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeReceiptEmail = "email:receipt"
	TypeStockAlert   = "email:stock_alert"
)

// ReceiptPayload is the material needed to render a receipt email.
type ReceiptPayload struct {
	InvoiceNumber string    `json:"invoiceNumber"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Total         int64     `json:"total"`
	CommittedAt   time.Time `json:"committedAt"`
}

// StockAlertPayload describes a product that needs the owner's attention.
type StockAlertPayload struct {
	ProductID   string `json:"productId"`
	Barcode     string `json:"barcode"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
}

// NewReceiptEmailTask builds the asynq task for a receipt email.
func NewReceiptEmailTask(p ReceiptPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReceiptEmail, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewStockAlertTask builds the asynq task for a low-stock alert.
func NewStockAlertTask(p StockAlertPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStockAlert, payload, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}
