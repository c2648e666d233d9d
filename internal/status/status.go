// Package status encodes the order status state machine.
//
// The graph is a linear happy path with a single escape hatch:
//
//	pending → confirmed → preparing → ready → out_for_delivery → delivered
//
// plus cancelled, reachable from every non-terminal state. delivered and
// cancelled have no outgoing edges.
package status

import "fmt"

// Status is an order lifecycle state.
type Status string

const (
	Pending        Status = "pending"
	Confirmed      Status = "confirmed"
	Preparing      Status = "preparing"
	Ready          Status = "ready"
	OutForDelivery Status = "out_for_delivery"
	Delivered      Status = "delivered"
	Cancelled      Status = "cancelled"
)

// happyPath maps each status to its single successor on the happy path.
// Terminal statuses have no entry.
var happyPath = map[Status]Status{
	Pending:        Confirmed,
	Confirmed:      Preparing,
	Preparing:      Ready,
	Ready:          OutForDelivery,
	OutForDelivery: Delivered,
}

// Parse validates a raw string against the closed enum. Graph functions
// below assume their inputs passed through here (caller contract).
func Parse(s string) (Status, error) {
	switch st := Status(s); st {
	case Pending, Confirmed, Preparing, Ready, OutForDelivery, Delivered, Cancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// NextStatus returns the successor on the happy path, or false for
// terminal statuses.
func NextStatus(current Status) (Status, bool) {
	next, ok := happyPath[current]
	return next, ok
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	return s == Delivered || s == Cancelled
}

// CanTransition reports whether from → to is a legal edge: either the
// single happy-path step, or a cancellation of any non-terminal order.
func CanTransition(from, to Status) bool {
	if to == Cancelled {
		return !IsTerminal(from)
	}
	next, ok := happyPath[from]
	return ok && next == to
}

// Active returns the non-terminal statuses in board-column order.
func Active() []Status {
	return []Status{Pending, Confirmed, Preparing, Ready, OutForDelivery}
}
