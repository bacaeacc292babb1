package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	apporder "github.com/marketsquare/order-service/internal/application/order"
	domain "github.com/marketsquare/order-service/internal/domain/order"
	"github.com/marketsquare/order-service/internal/observability"
	"github.com/marketsquare/order-service/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

type Handler struct {
	createOrder *apporder.CreateOrderUseCase
	getOrder    *apporder.GetOrderUseCase
	log         observability.Logger
	tel         observability.Observability
}

func NewHandler(create *apporder.CreateOrderUseCase, get *apporder.GetOrderUseCase, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		createOrder: create,
		getOrder:    get,
		log:         tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:         tel,
	}
}

// Router wires each route behind the observability middleware:
// Trace -> request logger -> HTTP metrics -> access log -> handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.tel))
	r.Use(h.withAccessLog)

	r.Post("/orders", h.handleCreateOrder)
	r.Get("/orders/{orderID}", h.handleGetOrder)
	r.Get("/health", h.handleHealth)

	return r
}

type orderItemResponse struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"userId"`
	Items      []orderItemResponse `json:"items"`
	Status     domain.Status       `json:"status"`
	TotalPrice string              `json:"totalPrice"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.String(),
			Subtotal:    item.Subtotal().String(),
		})
	}
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Items:      items,
		Status:     o.Status,
		TotalPrice: o.TotalPrice.String(),
		CreatedAt:  o.CreatedAt,
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing Authorization header"))
		return
	}

	result, err := h.createOrder.Execute(r.Context(), apporder.CreateOrderInput{
		Token:          token,
		IdempotencyKey: r.Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}

	// Replays return the stored order with the same status code as the
	// original request, so retrying clients need no special casing.
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.getOrder.Execute(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes,
// through the request-scoped logger injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routePattern(r)),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeWorkflowError maps error kinds to transport status codes. This is the
// only place the mapping lives.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apporder.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, apporder.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
