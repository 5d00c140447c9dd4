package order

import "time"

// PlacedLine reports one committed line item along with the stock remaining
// after its decrement.
type PlacedLine struct {
	ProductID     string
	Quantity      int
	QuantityAfter int
}

// OrderPlacedEvent is emitted after a checkout commits. It is a post-commit
// notification; the transactional record is the order itself.
type OrderPlacedEvent struct {
	OrderID    string
	Status     Status
	Lines      []PlacedLine
	OccurredAt time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order, lines []PlacedLine) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:    o.ID,
		Status:     o.Status,
		Lines:      lines,
		OccurredAt: time.Now().UTC(),
	}
}
