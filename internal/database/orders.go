package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, outlet_id, order_number, status, customer_name, customer_phone,
	customer_address, total, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OutletID, &o.OrderNumber, &o.Status, &o.CustomerName,
		&o.CustomerPhone, &o.CustomerAddress, &o.Total, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND outlet_id = $2
`

type GetOrderParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.OutletID))
}

const listActiveOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE outlet_id = $1 AND status NOT IN ('delivered', 'cancelled')
ORDER BY created_at ASC
`

// ListActiveOrders returns the board view: non-terminal orders, oldest
// first to match the physical kitchen queue.
func (q *Queries) ListActiveOrders(ctx context.Context, outletID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveOrders, outletID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE outlet_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at ASC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	OutletID uuid.UUID
	Status   pgtype.Text
	DateFrom pgtype.Timestamptz
	DateTo   pgtype.Timestamptz
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.OutletID, arg.Status, arg.DateFrom, arg.DateTo, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrders = `
SELECT COUNT(*)
FROM orders
WHERE outlet_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
`

type CountOrdersParams struct {
	OutletID uuid.UUID
	Status   pgtype.Text
	DateFrom pgtype.Timestamptz
	DateTo   pgtype.Timestamptz
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrders,
		arg.OutletID, arg.Status, arg.DateFrom, arg.DateTo).Scan(&n)
	return n, err
}

const getNextOrderNumber = `
SELECT COALESCE(MAX(substring(order_number FROM 2)::int), 1000) + 1
FROM orders
WHERE outlet_id = $1
`

// GetNextOrderNumber allocates the next human-facing order number for the
// outlet. Concurrent callers can observe the same MAX; the unique constraint
// on (outlet_id, order_number) catches the race and the service retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber, outletID).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (
	outlet_id, order_number, status, customer_name, customer_phone,
	customer_address, total, notes
) VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	OutletID        uuid.UUID
	OrderNumber     string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress pgtype.Text
	Total           pgtype.Numeric
	Notes           pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OutletID, arg.OrderNumber, arg.CustomerName, arg.CustomerPhone,
		arg.CustomerAddress, arg.Total, arg.Notes))
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_name, quantity, unit_price, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_name, quantity, unit_price, notes
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	ProductName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Notes       pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductName, arg.Quantity, arg.UnitPrice, arg.Notes).
		Scan(&it.ID, &it.OrderID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Notes)
	return it, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_name, quantity, unit_price, notes
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Notes); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $3, notes = COALESCE($4, notes), updated_at = now()
WHERE id = $1 AND outlet_id = $2
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
	Status   string
	Notes    pgtype.Text
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID, arg.OutletID, arg.Status, arg.Notes))
}
