package stock

import "time"

// StockAdjustedEvent is emitted after a clerk adjustment commits.
type StockAdjustedEvent struct {
	ProductID     string
	Actor         string
	Delta         int
	QuantityAfter int
	OccurredAt    time.Time
}

func (StockAdjustedEvent) EventName() string { return "stock.adjusted" }

func NewStockAdjustedEvent(productID, actor string, delta, quantityAfter int) StockAdjustedEvent {
	return StockAdjustedEvent{
		ProductID:     productID,
		Actor:         actor,
		Delta:         delta,
		QuantityAfter: quantityAfter,
		OccurredAt:    time.Now().UTC(),
	}
}
