package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appOrder "github.com/quickmart/ordercore/internal/application/order"
	appStock "github.com/quickmart/ordercore/internal/application/stock"
	domainCatalog "github.com/quickmart/ordercore/internal/domain/catalog"
	domainOrder "github.com/quickmart/ordercore/internal/domain/order"
	domainStock "github.com/quickmart/ordercore/internal/domain/stock"
	"github.com/quickmart/ordercore/internal/observability"
)

const componentHTTPHandler = "http_server"

type Handler struct {
	placement  *appOrder.PlacementService
	adjustment *appStock.AdjustmentService
	log        observability.Logger
	tel        observability.Observability
}

func NewHandler(placement *appOrder.PlacementService, adjustment *appStock.AdjustmentService, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		placement:  placement,
		adjustment: adjustment,
		log:        tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:        tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.tel))

	r.Post("/orders", h.handlePlaceOrder)
	r.Get("/orders/{orderID}", h.handleGetOrder)
	r.Delete("/orders/{orderID}", h.handleDeleteOrder)
	r.Post("/products/{productID}/adjustments", h.handleAdjustStock)
	r.Get("/products/{productID}/audit", h.handleAuditTrail)
	r.Get("/health", h.handleHealth)

	return r
}

type guestPayload struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

type buyerPayload struct {
	UserID string        `json:"user_id,omitempty"`
	Guest  *guestPayload `json:"guest,omitempty"`
}

type lineItemPayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type placeOrderRequest struct {
	Buyer buyerPayload      `json:"buyer"`
	Items []lineItemPayload `json:"items"`
}

type placeOrderResponse struct {
	OrderID     string             `json:"order_id"`
	Status      domainOrder.Status `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	buyer := domainOrder.BuyerIdentity{UserID: req.Buyer.UserID}
	if g := req.Buyer.Guest; g != nil {
		buyer = domainOrder.GuestBuyer(g.Name, g.Contact, g.Address)
	}
	items := make([]domainOrder.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = domainOrder.LineItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}

	result, err := h.placement.PlaceOrder(r.Context(), appOrder.PlaceOrderInput{Buyer: buyer, Items: items})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID:     result.OrderID,
		Status:      result.Status,
		TotalAmount: result.TotalAmount,
	})
}

type orderItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	OrderID     string              `json:"order_id"`
	Buyer       buyerPayload        `json:"buyer"`
	Items       []orderItemResponse `json:"items"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      domainOrder.Status  `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.placement.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := orderResponse{
		OrderID:     o.ID,
		Buyer:       buyerPayload{UserID: o.Buyer.UserID},
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
	if g := o.Buyer.Guest; g != nil {
		resp.Buyer.Guest = &guestPayload{Name: g.Name, Contact: g.Contact, Address: g.Address}
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.placement.DeleteOrder(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequest struct {
	NewQuantity      int    `json:"new_quantity"`
	ExpectedQuantity int    `json:"expected_quantity"`
	Actor            string `json:"actor"`
	Reason           string `json:"reason"`
}

type adjustStockResponse struct {
	ProductID   string `json:"product_id"`
	NewQuantity int    `json:"new_quantity"`
	Delta       int    `json:"delta"`
}

func (h *Handler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	productID := chi.URLParam(r, "productID")
	result, err := h.adjustment.ApplyAdjustment(r.Context(), appStock.AdjustStockInput{
		ProductID:        productID,
		NewQuantity:      req.NewQuantity,
		ExpectedQuantity: req.ExpectedQuantity,
		Actor:            req.Actor,
		Reason:           req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adjustStockResponse{
		ProductID:   productID,
		NewQuantity: result.NewQuantity,
		Delta:       result.Delta,
	})
}

type auditEntryResponse struct {
	ID             int64     `json:"id"`
	ProductID      string    `json:"product_id"`
	Actor          string    `json:"actor"`
	Delta          int       `json:"delta"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.adjustment.AuditTrail(r.Context(), chi.URLParam(r, "productID"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditEntryResponse{
			ID:             e.ID,
			ProductID:      e.ProductID,
			Actor:          e.Actor,
			Delta:          e.Delta,
			QuantityBefore: e.QuantityBefore,
			QuantityAfter:  e.QuantityAfter,
			Reason:         e.Reason,
			CreatedAt:      e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *domainStock.InsufficientStockError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      insufficient.Error(),
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
		return
	}
	var stale *domainStock.StaleViewError
	if errors.As(err, &stale) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            stale.Error(),
			"product_id":       stale.ProductID,
			"current_quantity": stale.CurrentQuantity,
		})
		return
	}

	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainStock.ErrProductNotFound),
		errors.Is(err, domainCatalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appOrder.ErrInvalidOrder),
		errors.Is(err, appStock.ErrActorRequired),
		errors.Is(err, domainStock.ErrNegativeQuantity),
		errors.Is(err, domainStock.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domainStock.ErrInsufficientStock),
		errors.Is(err, domainStock.ErrStaleView):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
