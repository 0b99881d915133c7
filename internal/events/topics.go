package events

// Topic constants for domain events emitted by the checkout engine.
const (
	TopicSaleCompleted  = "sale.completed"
	TopicSaleFailed     = "sale.failed"
	TopicStockAdjusted  = "stock.adjusted"
	TopicLoyaltyAccrued = "loyalty.accrued"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicSaleCompleted,
		TopicSaleFailed,
		TopicStockAdjusted,
		TopicLoyaltyAccrued,
	}
}
