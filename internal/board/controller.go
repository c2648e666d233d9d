package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/orderdeck/api/internal/client"
	"github.com/orderdeck/api/internal/status"
)

// ErrUnknownOrder is returned when a mutation names an order the board
// does not have.
var ErrUnknownOrder = errors.New("order not on the board")

// OrderMutator is the slice of the API client the controller needs for
// order mutations. Satisfied by *client.Client.
type OrderMutator interface {
	UpdateStatus(ctx context.Context, outletID, orderID uuid.UUID, to status.Status, notes *string) (*client.Order, error)
}

// CategoryAPI is the slice of the API client the controller needs for
// menu category management. Satisfied by *client.Client.
type CategoryAPI interface {
	ListCategories(ctx context.Context, outletID uuid.UUID) ([]client.Category, error)
	ReorderCategories(ctx context.Context, outletID uuid.UUID, ids []uuid.UUID) ([]client.Category, error)
}

// Controller drives board-side mutations: order status changes against the
// store and an optimistically reordered view of the outlet's categories.
// Every mutation is applied locally first and rolled back if the server
// rejects it, so the operator sees the change immediately but never keeps
// state the server refused.
type Controller struct {
	store      *Store
	orders     OrderMutator
	categories CategoryAPI
	outletID   uuid.UUID

	mu   sync.Mutex
	cats []client.Category
}

func NewController(store *Store, orders OrderMutator, categories CategoryAPI, outletID uuid.UUID) *Controller {
	return &Controller{store: store, orders: orders, categories: categories, outletID: outletID}
}

// FindByNumber resolves an order number like "#1001" to a cached order.
func (c *Controller) FindByNumber(number string) (client.Order, bool) {
	for _, col := range c.store.Board() {
		for _, o := range col.Orders {
			if o.OrderNumber == number {
				return o, true
			}
		}
	}
	return client.Order{}, false
}

// Advance moves an order one step along the happy path. The store is
// updated optimistically; on rejection the previous copy is restored, and
// on success the server's authoritative copy is merged in.
func (c *Controller) Advance(ctx context.Context, id uuid.UUID) error {
	o, ok := c.store.Get(id)
	if !ok {
		return ErrUnknownOrder
	}
	next, ok := status.NextStatus(o.Status)
	if !ok {
		return fmt.Errorf("order %s is already %s", o.OrderNumber, o.Status)
	}
	return c.transition(ctx, o, next)
}

// Cancel cancels a non-terminal order.
func (c *Controller) Cancel(ctx context.Context, id uuid.UUID) error {
	o, ok := c.store.Get(id)
	if !ok {
		return ErrUnknownOrder
	}
	return c.transition(ctx, o, status.Cancelled)
}

func (c *Controller) transition(ctx context.Context, o client.Order, to status.Status) error {
	return c.store.MutateOrder(ctx, o.ID,
		func() {
			local := o
			local.Status = to
			c.store.Upsert(local)
		},
		func(ctx context.Context) error {
			updated, err := c.orders.UpdateStatus(ctx, c.outletID, o.ID, to, nil)
			if err != nil {
				return err
			}
			c.store.Merge(*updated)
			return nil
		},
	)
}

// LoadCategories refreshes the cached category list from the server.
func (c *Controller) LoadCategories(ctx context.Context) ([]client.Category, error) {
	cats, err := c.categories.ListCategories(ctx, c.outletID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cats = cats
	c.mu.Unlock()
	return c.Categories(), nil
}

// Categories returns a copy of the cached category list in display order.
func (c *Controller) Categories() []client.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]client.Category, len(c.cats))
	copy(out, c.cats)
	return out
}

// MoveCategory shifts the category at index from to index to, reordering
// the cached list optimistically and confirming the full permutation with
// the server. On rejection the previous order is restored; on success the
// cache takes the server's returned order.
func (c *Controller) MoveCategory(ctx context.Context, from, to int) error {
	c.mu.Lock()
	n := len(c.cats)
	c.mu.Unlock()
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("category position out of range (have %d categories)", n)
	}

	return Mutate(ctx,
		func() []client.Category {
			return c.Categories()
		},
		func() {
			c.mu.Lock()
			moved := c.cats[from]
			next := make([]client.Category, 0, len(c.cats))
			next = append(next, c.cats[:from]...)
			next = append(next, c.cats[from+1:]...)
			next = append(next, client.Category{})
			copy(next[to+1:], next[to:])
			next[to] = moved
			c.cats = next
			c.mu.Unlock()
		},
		func(ctx context.Context) error {
			ids := make([]uuid.UUID, 0, n)
			for _, cat := range c.Categories() {
				ids = append(ids, cat.ID)
			}
			cats, err := c.categories.ReorderCategories(ctx, c.outletID, ids)
			if err != nil {
				return err
			}
			c.mu.Lock()
			c.cats = cats
			c.mu.Unlock()
			return nil
		},
		func(snap []client.Category) {
			c.mu.Lock()
			c.cats = snap
			c.mu.Unlock()
		},
	)
}
