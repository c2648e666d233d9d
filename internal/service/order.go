package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/orderdeck/api/internal/database"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems       = errors.New("items are required")
	ErrCustomerName     = errors.New("customer_name is required")
	ErrCustomerPhone    = errors.New("customer_phone is required")
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidUnitPrice = errors.New("invalid unit_price")
	ErrNegativePrice    = errors.New("unit_price must be >= 0")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
// Item prices arrive as snapshots from the ordering flow; this service does
// not look products up again.
type CreateOrderRequest struct {
	OutletID        uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Notes           string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	ProductName string
	Quantity    int32
	UnitPrice   string
	Notes       string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order creation.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// preparedItem is a validated item with its parsed price.
type preparedItem struct {
	params database.CreateOrderItemParams
}

// CreateOrder validates, totals, and creates an order atomically. New orders
// always start in pending; the total is the sum of quantity times unit price
// at creation time and is never recomputed. Retries up to
// maxOrderNumberRetries times on order_number unique constraint violations
// (concurrent transactions can observe the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.CustomerName == "" {
		return nil, ErrCustomerName
	}
	if req.CustomerPhone == "" {
		return nil, ErrCustomerPhone
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	total := decimal.Zero
	items := make([]preparedItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.ProductName == "" {
			return nil, fmt.Errorf("items[%d]: product_name is required", i)
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidUnitPrice)
		}
		if unitPrice.IsNegative() {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrNegativePrice)
		}

		total = total.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))

		notes := pgtype.Text{}
		if item.Notes != "" {
			notes = pgtype.Text{String: item.Notes, Valid: true}
		}
		items = append(items, preparedItem{
			params: database.CreateOrderItemParams{
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   decimalToNumeric(unitPrice),
				Notes:       notes,
			},
		})
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, items, total)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks for a unique constraint violation on the
// order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_outlet_id_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, items []preparedItem, total decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx, req.OutletID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("#%d", nextNum)

	address := pgtype.Text{}
	if req.CustomerAddress != "" {
		address = pgtype.Text{String: req.CustomerAddress, Valid: true}
	}
	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OutletID:        req.OutletID,
		OrderNumber:     orderNumber,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: address,
		Total:           decimalToNumeric(total),
		Notes:           notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var created []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: created}, nil
}

// --- Helpers ---

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
