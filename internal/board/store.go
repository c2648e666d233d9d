// Package board holds the in-memory state behind a live order board: a
// store of active orders, an optimistic mutation helper, and a bridge that
// folds websocket feed events into the store.
package board

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/orderdeck/api/internal/client"
	"github.com/orderdeck/api/internal/status"
)

// Column is one status lane of the board with its orders oldest first.
type Column struct {
	Status status.Status
	Orders []client.Order
}

// Store is the order cache keyed by order ID. All methods are safe for
// concurrent use; the bridge writes while renderers read.
type Store struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]client.Order
}

func NewStore() *Store {
	return &Store{orders: make(map[uuid.UUID]client.Order)}
}

// ReplaceAll swaps the entire cache for a fresh snapshot. Used after
// initial load and on feed reconnect, when missed events make the current
// contents untrustworthy.
func (s *Store) ReplaceAll(orders []client.Order) {
	next := make(map[uuid.UUID]client.Order, len(orders))
	for _, o := range orders {
		next[o.ID] = o
	}
	s.mu.Lock()
	s.orders = next
	s.mu.Unlock()
}

// Upsert inserts or overwrites an order unconditionally. Safe to call
// twice with the same order.
func (s *Store) Upsert(o client.Order) {
	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()
}

// Merge applies an updated order unless the cached copy is strictly newer,
// so late-arriving updates cannot roll the board backwards. Returns false
// when the update was discarded as stale. An unknown order is inserted.
func (s *Store) Merge(o client.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.orders[o.ID]; ok && existing.UpdatedAt.After(o.UpdatedAt) {
		return false
	}
	s.orders[o.ID] = o
	return true
}

// Remove deletes an order. Removing an unknown ID is a no-op.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()
}

// Get returns a copy of the cached order.
func (s *Store) Get(id uuid.UUID) (client.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Len returns the number of cached orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Board groups the cached orders into one column per active status, in
// workflow order, each column oldest first. Orders that reached a terminal
// status are left out; the bridge removes them on the next update anyway,
// and a terminal order has no lane to sit in.
func (s *Store) Board() []Column {
	s.mu.RLock()
	byStatus := make(map[status.Status][]client.Order)
	for _, o := range s.orders {
		if status.IsTerminal(o.Status) {
			continue
		}
		byStatus[o.Status] = append(byStatus[o.Status], o)
	}
	s.mu.RUnlock()

	active := status.Active()
	columns := make([]Column, len(active))
	for i, st := range active {
		orders := byStatus[st]
		sort.Slice(orders, func(a, b int) bool {
			return orders[a].CreatedAt.Before(orders[b].CreatedAt)
		})
		columns[i] = Column{Status: st, Orders: orders}
	}
	return columns
}
