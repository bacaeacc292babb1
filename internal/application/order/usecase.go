package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/marketsquare/order-service/internal/domain/order"
	"github.com/marketsquare/order-service/internal/observability"
	"github.com/marketsquare/order-service/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	spanPrefix         = "UC."
)

// CreateOrderUseCase runs the order-creation workflow end to end:
// idempotency lookup, auth validation, cart fetch, per-item stock
// verification, assembly, persistence, remote stock reduction, and
// best-effort cart clearing. Execution is synchronous; no stage retries.
type CreateOrderUseCase struct {
	repo      domain.Repository
	auth      AuthGateway
	carts     CartGateway
	products  ProductGateway
	assembler *Assembler
	tel       observability.Observability

	// Base logger with fixed fields prebound (vendor must remain hidden).
	log observability.Logger
	// RED metrics (supplied via DI; do not instantiate inside methods).
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

// NewCreateOrderUseCase wires the dependencies required to execute the use case.
func NewCreateOrderUseCase(
	repo domain.Repository,
	auth AuthGateway,
	carts CartGateway,
	products ProductGateway,
	idGen IDGenerator,
	tel observability.Observability,
) *CreateOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLog := tel.Logger().With(
		observability.F("service", orderService),
	)

	return &CreateOrderUseCase{
		repo:         repo,
		auth:         auth,
		carts:        carts,
		products:     products,
		assembler:    NewAssembler(idGen),
		tel:          tel,
		log:          baseLog,
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

type CreateOrderInput struct {
	// Token is the caller's bearer token, with or without the "Bearer " prefix.
	Token string
	// IdempotencyKey deduplicates logically identical requests. Empty means
	// the caller accepts at-least-once semantics.
	IdempotencyKey string
}

// Execute performs the order creation flow and returns the persisted order.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseOrderCreate))

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"CreateOrder",
		attribute.String("use_case", useCaseOrderCreate),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		if uc.reqCounter != nil {
			uc.reqCounter.Add(1,
				observability.L("use_case", useCaseOrderCreate),
				observability.L("outcome", outcome),
			)
		}
		if uc.durHistogram != nil {
			uc.durHistogram.Observe(lat,
				observability.L("use_case", useCaseOrderCreate),
			)
		}

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
	}()

	// 1. Idempotency guard: a known key short-circuits the whole workflow.
	// No re-validation, no re-mutation of stock or cart.
	if cmd.IdempotencyKey != "" {
		existing, repoErr := uc.repo.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
		switch {
		case repoErr == nil:
			statusText = "IDEMPOTENT_REPLAY"
			uc.markReplay(span, existing)
			return existing, nil
		case errors.Is(repoErr, domain.ErrNotFound):
			// continue
		default:
			outcome, statusText = "error", "IDEMPOTENCY_LOOKUP_FAILED"
			return nil, fmt.Errorf("%w: %w", ErrRepository, repoErr)
		}
	}

	// 2. Token validation. The gateway fails closed, so an unreachable auth
	// service lands here exactly like an invalid token.
	auth, authErr := uc.auth.ValidateToken(ctx, cmd.Token)
	if authErr != nil || !auth.Valid {
		outcome, statusText = "error", "TOKEN_INVALID"
		return nil, newValidation("invalid or expired token")
	}
	span.SetAttributes(attribute.String("order.user_id", auth.UserID))

	// 3. Cart fetch. Absent and empty carts are the same terminal state.
	cart, cartErr := uc.carts.GetCart(ctx, cmd.Token)
	if cartErr != nil {
		outcome, statusText = "error", "CART_UNAVAILABLE"
		return nil, cartErr
	}
	if cart == nil || len(cart.Items) == 0 {
		outcome, statusText = "error", "CART_EMPTY"
		return nil, newValidation("cart empty or not found")
	}

	// 4. Per-item catalog snapshots, fetched sequentially in cart order.
	products := make(map[string]*Product, len(cart.Items))
	for _, line := range cart.Items {
		if _, fetched := products[line.ProductID]; fetched {
			continue
		}
		product, prodErr := uc.products.GetProductByID(ctx, line.ProductID)
		if prodErr != nil {
			outcome, statusText = "error", "PRODUCT_UNAVAILABLE"
			return nil, prodErr
		}
		products[line.ProductID] = product
	}

	// 5. Validate stock and assemble; nothing has been persisted yet.
	entity, asmErr := uc.assembler.Assemble(auth.UserID, cmd.IdempotencyKey, cart, products)
	if asmErr != nil {
		outcome, statusText = "error", "VALIDATION_FAILED"
		return nil, asmErr
	}

	// 6. Persist. The atomic scope is exactly this write; everything after
	// runs outside any transaction.
	if insErr := uc.repo.Insert(ctx, entity); insErr != nil {
		if errors.Is(insErr, domain.ErrConflict) && cmd.IdempotencyKey != "" {
			// Lost a race with a concurrent request carrying the same key:
			// the store's uniqueness constraint fired, so return the winner.
			if existing, lookupErr := uc.repo.FindByIdempotencyKey(ctx, cmd.IdempotencyKey); lookupErr == nil {
				statusText = "IDEMPOTENT_REPLAY"
				uc.markReplay(span, existing)
				return existing, nil
			}
		}
		outcome, statusText = "error", "REPO_INSERT_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrRepository, insErr)
	}
	span.AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)

	// 7. Reduce remote stock per item, in list order. No compensation: on
	// the first failure the order stays persisted and CONFIRMED with stock
	// only partially reduced, and the error is surfaced, not masked. A retry
	// with the same key replays the order without resuming the reductions.
	for _, item := range entity.Items {
		if redErr := uc.products.ReduceStock(ctx, item.ProductID, item.Quantity); redErr != nil {
			outcome, statusText = "error", "STOCK_REDUCE_FAILED"
			logger.Error("stock_reduce_failed_after_persist",
				observability.F("order_id", entity.ID),
				observability.F("product_id", item.ProductID),
				observability.F("error", redErr.Error()),
			)
			return nil, redErr
		}
	}

	// 8. Clear the cart, best-effort. The order is already complete.
	if clearErr := uc.carts.ClearCart(ctx, cmd.Token); clearErr != nil {
		logger.Warn("cart_clear_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", clearErr.Error()),
		)
	}

	span.SetAttributes(attribute.String("order.status", string(entity.Status)))
	return entity, nil
}

func (uc *CreateOrderUseCase) markReplay(span trace.Span, existing *domain.Order) {
	if span == nil || existing == nil {
		return
	}
	span.SetAttributes(attribute.String("order.status", string(existing.Status)))
	span.AddEvent("order.idempotent_replay",
		trace.WithAttributes(attribute.String("order.id", existing.ID)),
	)
}

// GetOrderUseCase resolves a single order by id.
type GetOrderUseCase struct {
	repo domain.Repository
}

func NewGetOrderUseCase(repo domain.Repository) *GetOrderUseCase {
	return &GetOrderUseCase{repo: repo}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, newValidation("order id is required")
	}
	return uc.repo.FindByID(ctx, id)
}
