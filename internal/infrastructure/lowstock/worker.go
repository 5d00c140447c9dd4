package lowstock

import (
	"context"
	"fmt"
	"sync"

	domorder "github.com/quickmart/ordercore/internal/domain/order"
	domoutbox "github.com/quickmart/ordercore/internal/domain/outbox"
	domstock "github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/observability"
)

const componentLowStock = "lowstock_worker"

// Worker watches post-commit stock events and keeps a gauge of products whose
// quantity sits below the configured threshold, warning when one crosses it.
// Purely observational; it never touches the ledger.
type Worker struct {
	sub       domoutbox.Subscriber
	threshold int
	log       observability.Logger
	gauge     observability.Gauge

	mu  sync.Mutex
	low map[string]struct{}
}

func New(sub domoutbox.Subscriber, threshold int, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		sub:       sub,
		threshold: threshold,
		log:       tel.Logger().With(observability.F("component", componentLowStock)),
		gauge:     tel.Metrics().Gauge(observability.MLowStockProducts),
		low:       make(map[string]struct{}),
	}
}

// Start registers the event subscriptions. The bus drives execution.
func (w *Worker) Start() {
	w.sub.Subscribe(domorder.OrderPlacedEvent{}.EventName(), w.onOrderPlaced)
	w.sub.Subscribe(domstock.StockAdjustedEvent{}.EventName(), w.onStockAdjusted)
}

func (w *Worker) onOrderPlaced(ctx context.Context, e domoutbox.Event) error {
	ev, ok := e.(domorder.OrderPlacedEvent)
	if !ok {
		return fmt.Errorf("lowstock: unexpected event type %T", e)
	}
	for _, line := range ev.Lines {
		w.observe(ctx, line.ProductID, line.QuantityAfter)
	}
	return nil
}

func (w *Worker) onStockAdjusted(ctx context.Context, e domoutbox.Event) error {
	ev, ok := e.(domstock.StockAdjustedEvent)
	if !ok {
		return fmt.Errorf("lowstock: unexpected event type %T", e)
	}
	w.observe(ctx, ev.ProductID, ev.QuantityAfter)
	return nil
}

func (w *Worker) observe(_ context.Context, productID string, quantity int) {
	w.mu.Lock()
	_, wasLow := w.low[productID]
	isLow := quantity < w.threshold
	switch {
	case isLow && !wasLow:
		w.low[productID] = struct{}{}
	case !isLow && wasLow:
		delete(w.low, productID)
	}
	count := len(w.low)
	w.mu.Unlock()

	w.gauge.Set(float64(count))
	if isLow && !wasLow {
		w.log.Warn("stock_below_threshold",
			observability.F("product_id", productID),
			observability.F("quantity", quantity),
			observability.F("threshold", w.threshold),
		)
	}
}

// LowCount reports how many products are currently below the threshold.
func (w *Worker) LowCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.low)
}
