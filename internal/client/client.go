// Package client is the typed HTTP facade over the OrderDeck API. Board
// processes use it for reads and mutations; live updates arrive separately
// over the websocket feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/orderdeck/api/internal/status"
)

// Order mirrors the API's order document.
type Order struct {
	ID              uuid.UUID     `json:"id"`
	OutletID        uuid.UUID     `json:"outlet_id"`
	OrderNumber     string        `json:"order_number"`
	Status          status.Status `json:"status"`
	CustomerName    string        `json:"customer_name"`
	CustomerPhone   string        `json:"customer_phone"`
	CustomerAddress *string       `json:"customer_address"`
	Total           string        `json:"total"`
	Notes           *string       `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Items           []OrderItem   `json:"items,omitempty"`
}

type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Notes       *string   `json:"notes"`
}

// Category mirrors the API's menu category document.
type Category struct {
	ID        uuid.UUID `json:"id"`
	OutletID  uuid.UUID `json:"outlet_id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateOrderInput is the payload for Create.
type CreateOrderInput struct {
	CustomerName    string                 `json:"customer_name"`
	CustomerPhone   string                 `json:"customer_phone"`
	CustomerAddress string                 `json:"customer_address,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	Items           []CreateOrderItemInput `json:"items"`
}

type CreateOrderItemInput struct {
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Notes       string `json:"notes,omitempty"`
}

// Client calls the OrderDeck API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login authenticates and returns a client bound to the issued token,
// plus the outlet the user belongs to.
func Login(ctx context.Context, baseURL, email, password string) (*Client, uuid.UUID, error) {
	c := New(baseURL, "")
	var resp struct {
		Token    string    `json:"token"`
		OutletID uuid.UUID `json:"outlet_id"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return New(baseURL, resp.Token), resp.OutletID, nil
}

// Token returns the bearer token the client authenticates with. The
// websocket feed takes it as a query parameter.
func (c *Client) Token() string { return c.token }

// ListActive fetches the outlet's non-terminal orders, oldest first.
func (c *Client) ListActive(ctx context.Context, outletID uuid.UUID) ([]Order, error) {
	var orders []Order
	path := fmt.Sprintf("/outlets/%s/orders/active", outletID)
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get fetches one order with its items.
func (c *Client) Get(ctx context.Context, outletID, orderID uuid.UUID) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/outlets/%s/orders/%s", outletID, orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves an order to a new status. The server validates the
// transition; an illegal edge comes back as an invalid_transition APIError.
func (c *Client) UpdateStatus(ctx context.Context, outletID, orderID uuid.UUID, to status.Status, notes *string) (*Order, error) {
	body := map[string]interface{}{"status": string(to)}
	if notes != nil {
		body["notes"] = *notes
	}
	var order Order
	path := fmt.Sprintf("/outlets/%s/orders/%s", outletID, orderID)
	if err := c.do(ctx, http.MethodPatch, path, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Create submits a new order. The server assigns the order number and
// starts it in pending.
func (c *Client) Create(ctx context.Context, outletID uuid.UUID, input CreateOrderInput) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/outlets/%s/orders", outletID)
	if err := c.do(ctx, http.MethodPost, path, input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListCategories fetches the outlet's active menu categories in display order.
func (c *Client) ListCategories(ctx context.Context, outletID uuid.UUID) ([]Category, error) {
	var categories []Category
	path := fmt.Sprintf("/outlets/%s/categories", outletID)
	if err := c.do(ctx, http.MethodGet, path, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ReorderCategories replaces the outlet's display order. The id list must
// cover every active category exactly once; the server returns the new order.
func (c *Client) ReorderCategories(ctx context.Context, outletID uuid.UUID, ids []uuid.UUID) ([]Category, error) {
	var categories []Category
	path := fmt.Sprintf("/outlets/%s/categories/reorder", outletID)
	body := map[string][]uuid.UUID{"ids": ids}
	if err := c.do(ctx, http.MethodPatch, path, body, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			apiErr.Message = errBody.Error
			apiErr.Code = errBody.Code
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
