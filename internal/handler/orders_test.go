package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/orderdeck/api/internal/database"
	"github.com/orderdeck/api/internal/handler"
	"github.com/orderdeck/api/internal/service"
	"github.com/orderdeck/api/internal/ws"
)

// --- Shared helpers ---

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// --- Mocks ---

type mockOrderStore struct {
	orders map[uuid.UUID]database.Order
	items  map[uuid.UUID][]database.OrderItem
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders: make(map[uuid.UUID]database.Order),
		items:  make(map[uuid.UUID][]database.OrderItem),
	}
}

func (m *mockOrderStore) GetOrder(_ context.Context, arg database.GetOrderParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.OutletID != arg.OutletID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	all := m.matching(arg.OutletID, arg.Status)
	start := int(arg.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *mockOrderStore) CountOrders(_ context.Context, arg database.CountOrdersParams) (int64, error) {
	return int64(len(m.matching(arg.OutletID, arg.Status))), nil
}

func (m *mockOrderStore) matching(outletID uuid.UUID, status pgtype.Text) []database.Order {
	var result []database.Order
	for _, o := range m.orders {
		if o.OutletID != outletID {
			continue
		}
		if status.Valid && o.Status != status.String {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (m *mockOrderStore) ListActiveOrders(_ context.Context, outletID uuid.UUID) ([]database.Order, error) {
	var result []database.Order
	for _, o := range m.orders {
		if o.OutletID != outletID || o.Status == "delivered" || o.Status == "cancelled" {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

func (m *mockOrderStore) UpdateOrderStatus(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.OutletID != arg.OutletID {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.Notes.Valid {
		o.Notes = arg.Notes
	}
	o.UpdatedAt = time.Now()
	m.orders[arg.ID] = o
	return o, nil
}

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

type mockFeed struct {
	events []ws.Event
}

func (m *mockFeed) BroadcastToOutlet(_ uuid.UUID, event ws.Event) {
	m.events = append(m.events, event)
}

func setupOrderRouter(svc handler.OrderServicer, store handler.OrderStore, feed handler.Broadcaster) *chi.Mux {
	h := handler.NewOrderHandler(svc, store, feed)
	r := chi.NewRouter()
	r.Route("/outlets/{oid}/orders", h.RegisterRoutes)
	return r
}

func seedOrder(store *mockOrderStore, outletID uuid.UUID, number, status string, createdAt time.Time) database.Order {
	o := database.Order{
		ID:            uuid.New(),
		OutletID:      outletID,
		OrderNumber:   number,
		Status:        status,
		CustomerName:  "Budi",
		CustomerPhone: "08123456789",
		Total:         testNumeric("50000"),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	store.orders[o.ID] = o
	return o
}

// --- ListActive tests ---

func TestOrderListActive_OldestFirst(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	now := time.Now()

	seedOrder(store, outletID, "#1002", "confirmed", now)
	seedOrder(store, outletID, "#1001", "pending", now.Add(-time.Hour))
	seedOrder(store, outletID, "#1003", "delivered", now.Add(-2*time.Hour))
	seedOrder(store, outletID, "#1004", "cancelled", now.Add(-3*time.Hour))

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders/active", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 active orders, got %d", len(resp))
	}
	if resp[0]["order_number"] != "#1001" || resp[1]["order_number"] != "#1002" {
		t.Errorf("expected oldest first [#1001 #1002], got [%v %v]",
			resp[0]["order_number"], resp[1]["order_number"])
	}
}

func TestOrderListActive_ExcludesOtherOutlets(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	seedOrder(store, outletID, "#1001", "pending", time.Now())
	seedOrder(store, uuid.New(), "#1001", "pending", time.Now())

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders/active", nil)

	resp := decodeList(t, rr)
	if len(resp) != 1 {
		t.Errorf("expected 1 order, got %d", len(resp))
	}
}

// --- Get tests ---

func TestOrderGet_WithItems(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "pending", time.Now())
	store.items[order.ID] = []database.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, ProductName: "Nasi Goreng", Quantity: 2, UnitPrice: testNumeric("25000")},
	}

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["order_number"] != "#1001" {
		t.Errorf("order_number: got %v, want #1001", resp["order_number"])
	}
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", resp["items"])
	}
	item := items[0].(map[string]interface{})
	if item["product_name"] != "Nasi Goreng" {
		t.Errorf("product_name: got %v", item["product_name"])
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	resp := decodeObject(t, rr)
	if resp["code"] != "not_found" {
		t.Errorf("code: got %v, want not_found", resp["code"])
	}
}

func TestOrderGet_WrongOutlet(t *testing.T) {
	store := newMockOrderStore()
	order := seedOrder(store, uuid.New(), "#1001", "pending", time.Now())

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+uuid.New().String()+"/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- UpdateStatus tests ---

func TestOrderUpdateStatus_HappyPath(t *testing.T) {
	store := newMockOrderStore()
	feed := &mockFeed{}
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "pending", time.Now())

	router := setupOrderRouter(nil, store, feed)
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(),
		map[string]string{"status": "confirmed"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["status"] != "confirmed" {
		t.Errorf("status: got %v, want confirmed", resp["status"])
	}
	if store.orders[order.ID].Status != "confirmed" {
		t.Errorf("stored status: got %s, want confirmed", store.orders[order.ID].Status)
	}

	if len(feed.events) != 1 {
		t.Fatalf("expected 1 feed event, got %d", len(feed.events))
	}
	if feed.events[0].Kind != ws.EventUpdate {
		t.Errorf("event kind: got %s, want %s", feed.events[0].Kind, ws.EventUpdate)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(feed.events[0].Order, &payload); err != nil {
		t.Fatalf("unmarshal event payload: %v", err)
	}
	if payload["status"] != "confirmed" {
		t.Errorf("event status: got %v, want confirmed", payload["status"])
	}
}

func TestOrderUpdateStatus_InvalidTransition(t *testing.T) {
	store := newMockOrderStore()
	feed := &mockFeed{}
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "pending", time.Now())

	router := setupOrderRouter(nil, store, feed)
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(),
		map[string]string{"status": "ready"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["code"] != "invalid_transition" {
		t.Errorf("code: got %v, want invalid_transition", resp["code"])
	}
	if store.orders[order.ID].Status != "pending" {
		t.Errorf("stored status changed to %s", store.orders[order.ID].Status)
	}
	if len(feed.events) != 0 {
		t.Errorf("rejected transition must not broadcast, got %d events", len(feed.events))
	}
}

func TestOrderUpdateStatus_CancelFromActive(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "preparing", time.Now())

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(),
		map[string]string{"status": "cancelled"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestOrderUpdateStatus_TerminalIsFrozen(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "delivered", time.Now())

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(),
		map[string]string{"status": "cancelled"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeObject(t, rr)
	if resp["code"] != "invalid_transition" {
		t.Errorf("code: got %v, want invalid_transition", resp["code"])
	}
}

func TestOrderUpdateStatus_UnknownStatus(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "pending", time.Now())

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(),
		map[string]string{"status": "shipped"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeObject(t, rr)
	if resp["code"] != "validation_error" {
		t.Errorf("code: got %v, want validation_error", resp["code"])
	}
}

func TestOrderUpdateStatus_NotFound(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+uuid.New().String(),
		map[string]string{"status": "confirmed"})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOrderUpdateStatus_WithNotes(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	order := seedOrder(store, outletID, "#1001", "pending", time.Now())

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "PATCH", "/outlets/"+outletID.String()+"/orders/"+order.ID.String(),
		map[string]interface{}{"status": "confirmed", "notes": "call on arrival"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := store.orders[order.ID].Notes.String; got != "call on arrival" {
		t.Errorf("notes: got %q, want %q", got, "call on arrival")
	}
}

// --- Create tests ---

func TestOrderCreate_Success(t *testing.T) {
	outletID := uuid.New()
	orderID := uuid.New()
	now := time.Now()

	svc := &mockOrderService{
		createFn: func(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			if req.OutletID != outletID {
				t.Errorf("outlet ID: got %s, want %s", req.OutletID, outletID)
			}
			return &service.CreateOrderResult{
				Order: database.Order{
					ID:            orderID,
					OutletID:      outletID,
					OrderNumber:   "#1001",
					Status:        "pending",
					CustomerName:  req.CustomerName,
					CustomerPhone: req.CustomerPhone,
					Total:         testNumeric("50000"),
					CreatedAt:     now,
					UpdatedAt:     now,
				},
				Items: []database.OrderItem{
					{ID: uuid.New(), OrderID: orderID, ProductName: "Nasi Goreng", Quantity: 2, UnitPrice: testNumeric("25000")},
				},
			}, nil
		},
	}

	feed := &mockFeed{}
	router := setupOrderRouter(svc, newMockOrderStore(), feed)
	rr := doRequest(t, router, "POST", "/outlets/"+outletID.String()+"/orders", map[string]interface{}{
		"customer_name":  "Budi",
		"customer_phone": "08123456789",
		"items": []map[string]interface{}{
			{"product_name": "Nasi Goreng", "quantity": 2, "unit_price": "25000"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["order_number"] != "#1001" {
		t.Errorf("order_number: got %v, want #1001", resp["order_number"])
	}
	if resp["status"] != "pending" {
		t.Errorf("status: got %v, want pending", resp["status"])
	}

	if len(feed.events) != 1 || feed.events[0].Kind != ws.EventInsert {
		t.Fatalf("expected 1 insert event, got %+v", feed.events)
	}
}

func TestOrderCreate_ValidationError(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, _ service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrCustomerName
		},
	}

	feed := &mockFeed{}
	router := setupOrderRouter(svc, newMockOrderStore(), feed)
	rr := doRequest(t, router, "POST", "/outlets/"+uuid.New().String()+"/orders", map[string]interface{}{
		"customer_phone": "08123456789",
		"items": []map[string]interface{}{
			{"product_name": "Nasi Goreng", "quantity": 1, "unit_price": "25000"},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if len(feed.events) != 0 {
		t.Errorf("failed create must not broadcast")
	}
}

func TestOrderCreate_EmptyItems(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, newMockOrderStore(), &mockFeed{})
	rr := doRequest(t, router, "POST", "/outlets/"+uuid.New().String()+"/orders", map[string]interface{}{
		"customer_name":  "Budi",
		"customer_phone": "08123456789",
		"items":          []map[string]interface{}{},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- List tests ---

func TestOrderList_Pagination(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	now := time.Now()
	for i := 0; i < 5; i++ {
		seedOrder(store, outletID, "#100"+string(rune('1'+i)), "delivered", now.Add(time.Duration(i)*time.Minute))
	}

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders?limit=2&offset=0", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	data := resp["data"].([]interface{})
	if len(data) != 2 {
		t.Errorf("expected 2 orders, got %d", len(data))
	}
	pagination := resp["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 5 {
		t.Errorf("total: got %v, want 5", pagination["total"])
	}
	if pagination["has_more"] != true {
		t.Errorf("has_more: got %v, want true", pagination["has_more"])
	}
}

func TestOrderList_StatusFilter(t *testing.T) {
	store := newMockOrderStore()
	outletID := uuid.New()
	now := time.Now()
	seedOrder(store, outletID, "#1001", "pending", now)
	seedOrder(store, outletID, "#1002", "delivered", now)

	router := setupOrderRouter(nil, store, &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/orders?status=delivered", nil)

	resp := decodeObject(t, rr)
	data := resp["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("expected 1 order, got %d", len(data))
	}
	if data[0].(map[string]interface{})["status"] != "delivered" {
		t.Errorf("status filter not applied")
	}
}

func TestOrderList_RejectsBadStatusFilter(t *testing.T) {
	router := setupOrderRouter(nil, newMockOrderStore(), &mockFeed{})
	rr := doRequest(t, router, "GET", "/outlets/"+uuid.New().String()+"/orders?status=bogus", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
