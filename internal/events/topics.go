package events

// Topic constants for domain events emitted by the billing core.
const (
	TopicSaleCommitted      = "sale.committed"
	TopicStockDepleted      = "stock.depleted"
	TopicInvoiceBurned      = "invoice.number_burned"
	TopicReconcileRequired  = "sale.reconcile_required"
	TopicProductRegistered  = "product.registered"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicSaleCommitted,
		TopicStockDepleted,
		TopicInvoiceBurned,
		TopicReconcileRequired,
		TopicProductRegistered,
	}
}
