package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/quickmart/ordercore/internal/domain/outbox"
	domain "github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/domain/storage"
	"github.com/quickmart/ordercore/internal/observability"
	"github.com/quickmart/ordercore/internal/observability/logctx"
)

const (
	serviceName   = "stock-adjustment"
	useCaseAdjust = "stock.adjust"
	spanPrefix    = "UC."
)

var (
	ErrActorRequired = errors.New("stock: actor name is required")

	// ErrAdjustmentPersistenceFailed marks storage faults during a clerk
	// adjustment. The unit of work is rolled back, so retrying is safe.
	ErrAdjustmentPersistenceFailed = errors.New("stock: adjustment persistence failure")
)

// AdjustmentService applies clerk-initiated corrections (restock, shrinkage,
// recount) through the same ledger and audit log the order flow uses. The
// overwrite is optimistic-concurrency guarded: it only lands while the stored
// quantity still equals what the clerk saw.
type AdjustmentService struct {
	uow       storage.UnitOfWork
	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewAdjustmentService(uow storage.UnitOfWork, publisher domoutbox.Publisher, tel observability.Observability) *AdjustmentService {
	if tel == nil {
		tel = observability.Nop()
	}
	return &AdjustmentService{
		uow:          uow,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", serviceName)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

type AdjustStockInput struct {
	ProductID        string
	NewQuantity      int
	ExpectedQuantity int
	Actor            string
	Reason           string
}

type AdjustStockResult struct {
	NewQuantity int
	Delta       int
}

// ApplyAdjustment overwrites a product's quantity and records the resulting
// delta in the audit log, all in one unit of work. A concurrent change since
// the clerk's read surfaces as *StaleViewError carrying the current quantity.
func (s *AdjustmentService) ApplyAdjustment(ctx context.Context, input AdjustStockInput) (_ *AdjustStockResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseAdjust))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"AdjustStock",
		attribute.String("use_case", useCaseAdjust),
		attribute.String("stock.product_id", input.ProductID),
		attribute.Int("stock.new_quantity", input.NewQuantity),
	)
	start := time.Now()
	defer func() { s.finishUseCase(ctx, span, logger, useCaseAdjust, start, err) }()

	if input.Actor == "" {
		return nil, ErrActorRequired
	}
	if input.NewQuantity < 0 {
		return nil, domain.ErrNegativeQuantity
	}
	if input.ExpectedQuantity < 0 {
		return nil, domain.ErrNegativeQuantity
	}

	delta := input.NewQuantity - input.ExpectedQuantity
	err = s.uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		if lerr := st.Ledger().SetAbsolute(ctx, input.ProductID, input.NewQuantity, input.ExpectedQuantity); lerr != nil {
			return lerr
		}
		return st.Audit().Record(ctx, &domain.AuditEntry{
			ProductID:      input.ProductID,
			Actor:          input.Actor,
			Delta:          delta,
			QuantityBefore: input.ExpectedQuantity,
			QuantityAfter:  input.NewQuantity,
			Reason:         input.Reason,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStaleView):
			return nil, s.staleView(ctx, input.ProductID)
		case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrNegativeQuantity):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", ErrAdjustmentPersistenceFailed, err)
		}
	}

	s.publish(ctx, domain.NewStockAdjustedEvent(input.ProductID, input.Actor, delta, input.NewQuantity))

	span.AddEvent("stock.adjusted", trace.WithAttributes(
		attribute.String("stock.product_id", input.ProductID),
		attribute.Int("stock.delta", delta),
	))

	return &AdjustStockResult{NewQuantity: input.NewQuantity, Delta: delta}, nil
}

// staleView re-reads the current quantity after the conflicting unit rolled
// back, so the caller can refetch-and-retry with fresh expectations.
func (s *AdjustmentService) staleView(ctx context.Context, productID string) error {
	var current int
	err := s.uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		q, qerr := st.Ledger().Quantity(ctx, productID)
		if qerr != nil {
			return qerr
		}
		current = q
		return nil
	})
	if err != nil {
		return domain.ErrStaleView
	}
	return &domain.StaleViewError{ProductID: productID, CurrentQuantity: current}
}

// AuditTrail returns the mutation history of a product, newest first.
func (s *AdjustmentService) AuditTrail(ctx context.Context, productID string, limit int) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	err := s.uow.Do(ctx, func(ctx context.Context, st storage.TxStores) error {
		if _, qerr := st.Ledger().Quantity(ctx, productID); qerr != nil {
			return qerr
		}
		list, lerr := st.Audit().ListByProduct(ctx, productID, limit)
		if lerr != nil {
			return lerr
		}
		entries = list
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrAdjustmentPersistenceFailed, err)
	}
	return entries, nil
}

func (s *AdjustmentService) publish(ctx context.Context, e domoutbox.Event) {
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

func (s *AdjustmentService) finishUseCase(
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
	case errors.Is(err, ErrActorRequired), errors.Is(err, domain.ErrNegativeQuantity):
		return "INVALID_ADJUSTMENT"
	case errors.Is(err, domain.ErrStaleView):
		return "STALE_VIEW"
	case errors.Is(err, domain.ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "PERSISTENCE_FAILED"
	}
}
