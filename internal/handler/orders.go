package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/orderdeck/api/internal/database"
	"github.com/orderdeck/api/internal/service"
	"github.com/orderdeck/api/internal/status"
	"github.com/orderdeck/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListActiveOrders(ctx context.Context, outletID uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// Broadcaster publishes change-feed events after successful mutations.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToOutlet(outletID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	feed     Broadcaster
	mutation []func(http.Handler) http.Handler
}

// NewOrderHandler creates an order handler. Any mutation middlewares are
// applied to the write endpoints only; reads stay unthrottled.
func NewOrderHandler(svc OrderServicer, store OrderStore, feed Broadcaster, mutation ...func(http.Handler) http.Handler) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, feed: feed, mutation: mutation}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/active", h.ListActive)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(h.mutation...)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.UpdateStatus)
	})
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	CustomerAddress string                   `json:"customer_address"`
	Notes           string                   `json:"notes"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Notes       string `json:"notes"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OutletID        uuid.UUID           `json:"outlet_id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerAddress *string             `json:"customer_address"`
	Total           string              `json:"total"`
	Notes           *string             `json:"notes"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Notes       *string   `json:"notes"`
}

type paginationResponse struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// orderListResponse wraps a page of orders with pagination metadata.
type orderListResponse struct {
	Data       []orderResponse    `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// --- Handlers ---

// Create handles POST /outlets/{oid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, codeValidation, "items are required")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Notes:       item.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		OutletID:        outletID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}

	h.publish(outletID, ws.EventInsert, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /outlets/{oid}/orders with status and date filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		OutletID: outletID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}
	counts := database.CountOrdersParams{OutletID: outletID}

	if s := r.URL.Query().Get("status"); s != "" {
		st, err := status.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: string(st), Valid: true}
		counts.Status = params.Status
	}
	if s := r.URL.Query().Get("date_from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid date_from format, use YYYY-MM-DD")
			return
		}
		params.DateFrom = pgtype.Timestamptz{Time: t, Valid: true}
		counts.DateFrom = params.DateFrom
	}
	if s := r.URL.Query().Get("date_to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid date_to format, use YYYY-MM-DD")
			return
		}
		params.DateTo = pgtype.Timestamptz{Time: t, Valid: true}
		counts.DateTo = params.DateTo
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountOrders(r.Context(), counts)
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Data: resp,
		Pagination: paginationResponse{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+len(orders)) < total,
		},
	})
}

// ListActive handles GET /outlets/{oid}/orders/active: the board view of
// non-terminal orders, oldest first.
func (h *OrderHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	orders, err := h.store.ListActiveOrders(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list active orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /outlets/{oid}/orders/{id}: one order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /outlets/{oid}/orders/{id}.
// The transition is validated server-side regardless of any client-side
// pre-validation; an illegal edge yields 400 invalid_transition.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.Status == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "status is required")
		return
	}

	newStatus, err := status.Parse(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid status")
		return
	}

	current, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	currentStatus, err := status.Parse(current.Status)
	if err != nil {
		log.Printf("ERROR: stored order %s has invalid status %q", current.ID, current.Status)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if !status.CanTransition(currentStatus, newStatus) {
		writeError(w, http.StatusBadRequest, codeInvalidTransition,
			"cannot transition from "+current.Status+" to "+req.Status)
		return
	}

	notes := pgtype.Text{}
	if req.Notes != nil {
		notes = pgtype.Text{String: *req.Notes, Valid: true}
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:       orderID,
		OutletID: outletID,
		Status:   string(newStatus),
		Notes:    notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "order not found")
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(updated)
	h.publish(outletID, ws.EventUpdate, resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// publish broadcasts a change-feed event carrying the full order document.
func (h *OrderHandler) publish(outletID uuid.UUID, kind ws.EventKind, order orderResponse) {
	payload, err := json.Marshal(order)
	if err != nil {
		log.Printf("ERROR: marshal feed event: %v", err)
		return
	}
	h.feed.BroadcastToOutlet(outletID, ws.Event{Kind: kind, Order: payload})
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrCustomerName) ||
		errors.Is(err, service.ErrCustomerPhone) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidUnitPrice) ||
		errors.Is(err, service.ErrNegativePrice)
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OutletID:      o.OutletID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Total:         numericToString(o.Total),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.CustomerAddress.Valid {
		resp.CustomerAddress = &o.CustomerAddress.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:          item.ID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   numericToString(item.UnitPrice),
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}
