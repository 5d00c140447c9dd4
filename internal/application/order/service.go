package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quickmart/ordercore/internal/domain/catalog"
	domain "github.com/quickmart/ordercore/internal/domain/order"
	domoutbox "github.com/quickmart/ordercore/internal/domain/outbox"
	"github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
	"github.com/quickmart/ordercore/internal/observability"
	"github.com/quickmart/ordercore/internal/observability/logctx"
)

const (
	serviceName     = "order-placement"
	useCasePlace    = "order.place"
	useCaseDelete   = "order.delete"
	spanPrefix      = "UC."
	reasonPlacement = "order placement"
)

var (
	// ErrInvalidOrder marks caller errors detected before any transaction is
	// opened: empty cart, bad quantities, missing buyer identity, price
	// mismatch.
	ErrInvalidOrder = errors.New("order: invalid order request")

	// ErrOrderPersistenceFailed marks storage faults. The unit of work is
	// guaranteed rolled back, so retrying the whole call is safe.
	ErrOrderPersistenceFailed = errors.New("order: persistence failure")

	ErrNotFound = domain.ErrNotFound
)

// PlacementService is the end-to-end, all-or-nothing checkout operation:
// validate, decrement the ledger per line item in a stable order, persist the
// order with its items and one audit entry per decrement, commit.
type PlacementService struct {
	uow         storage.UnitOfWork
	catalog     catalog.Reader
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
	tel         observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewPlacementService(
	uow storage.UnitOfWork,
	catalogReader catalog.Reader,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *PlacementService {
	if tel == nil {
		tel = observability.Nop()
	}
	return &PlacementService{
		uow:          uow,
		catalog:      catalogReader,
		idGenerator:  idGen,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", serviceName)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

type PlaceOrderInput struct {
	Buyer domain.BuyerIdentity
	Items []domain.LineItem
}

type PlaceOrderResult struct {
	OrderID     string
	Status      domain.Status
	TotalAmount decimal.Decimal
}

// PlaceOrder performs the checkout flow. On any failure nothing persists:
// earlier decrements in the same request are undone by the rollback.
func (s *PlacementService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCasePlace))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlace),
		attribute.Int("order.item_count", len(input.Items)),
		attribute.Bool("order.guest", input.Buyer.IsGuest()),
	)
	start := time.Now()
	defer func() { s.finishUseCase(ctx, span, logger, useCasePlace, start, err) }()

	items, err := s.resolvePrices(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	entity, derr := domain.New(s.idGenerator.NewID(), input.Buyer, items)
	if derr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, derr)
	}

	var lines []domain.PlacedLine
	err = s.uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		lines = lines[:0]
		// Items are sorted by product id, so concurrent multi-item orders
		// touch ledger rows in the same sequence.
		for _, it := range entity.Items {
			after, lerr := st.Ledger().TryDecrement(ctx, it.ProductID, it.Quantity)
			if lerr != nil {
				return lerr
			}
			entry := &stock.AuditEntry{
				ProductID:      it.ProductID,
				Actor:          stock.SystemOrderActor(entity.ID),
				Delta:          -it.Quantity,
				QuantityBefore: after + it.Quantity,
				QuantityAfter:  after,
				Reason:         reasonPlacement,
			}
			if aerr := st.Audit().Record(ctx, entry); aerr != nil {
				return aerr
			}
			lines = append(lines, domain.PlacedLine{
				ProductID:     it.ProductID,
				Quantity:      it.Quantity,
				QuantityAfter: after,
			})
		}
		return st.Orders().Insert(ctx, entity)
	})
	if err != nil {
		if errors.Is(err, stock.ErrInsufficientStock) || errors.Is(err, stock.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, err)
	}

	s.publish(ctx, domain.NewOrderPlacedEvent(entity, lines))

	span.SetAttributes(attribute.String("order.status", string(entity.Status)))
	span.AddEvent("order.placed", trace.WithAttributes(attribute.String("order.id", entity.ID)))

	return &PlaceOrderResult{
		OrderID:     entity.ID,
		Status:      entity.Status,
		TotalAmount: entity.TotalAmount,
	}, nil
}

// resolvePrices closes the client-price trust gap: a zero price is resolved
// from the catalog, a non-zero price must match it.
func (s *PlacementService) resolvePrices(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	resolved := make([]domain.LineItem, len(items))
	for i, it := range items {
		p, err := s.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", stock.ErrProductNotFound, it.ProductID)
			}
			return nil, fmt.Errorf("%w: resolve price: %w", ErrOrderPersistenceFailed, err)
		}
		if it.UnitPrice.IsZero() {
			it.UnitPrice = p.UnitPrice
		} else if !it.UnitPrice.Equal(p.UnitPrice) {
			return nil, fmt.Errorf("%w: price for product %s does not match catalog", ErrInvalidOrder, it.ProductID)
		}
		resolved[i] = it
	}
	return resolved, nil
}

func (s *PlacementService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidOrder)
	}
	var found *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		o, gerr := st.Orders().Get(ctx, id)
		if gerr != nil {
			return gerr
		}
		found = o
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, err)
	}
	return found, nil
}

// DeleteOrder is an administrative purge. Decremented stock is intentionally
// not restored; the audit trail keeps the historical decrements.
func (s *PlacementService) DeleteOrder(ctx context.Context, id string) (err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseDelete))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"DeleteOrder",
		attribute.String("use_case", useCaseDelete),
		attribute.String("order.id", id),
	)
	start := time.Now()
	defer func() { s.finishUseCase(ctx, span, logger, useCaseDelete, start, err) }()

	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidOrder)
	}
	err = s.uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		return st.Orders().Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrOrderPersistenceFailed, err)
	}
	return nil
}

func (s *PlacementService) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

func (s *PlacementService) finishUseCase(
	ctx context.Context,
	span trace.Span,
	logger observability.Logger,
	useCase string,
	start time.Time,
	err error,
) {
	lat := time.Since(start).Seconds()
	outcome, statusText := "success", "OK"
	if err != nil {
		outcome, statusText = "error", statusFor(err)
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()
	}

	s.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	s.durHistogram.Observe(lat, observability.L("use_case", useCase))

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	logger.Info("use_case_done", fields...)
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOrder):
		return "INVALID_ORDER"
	case errors.Is(err, stock.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, stock.ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "PERSISTENCE_FAILED"
	}
}
