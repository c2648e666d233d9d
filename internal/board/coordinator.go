package board

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderdeck/api/internal/client"
)

// Mutate runs an optimistic mutation: snapshot the affected state, apply
// the local change, then confirm it remotely. If the remote call fails the
// snapshot is restored, so the board never keeps state the server rejected.
//
// Each call takes its own snapshot; concurrent mutations of the same state
// roll back independently. There is no retry and no cancellation of
// in-flight calls, so when two mutations race the last server response
// wins, matching what the server actually stored.
func Mutate[S any](ctx context.Context, snapshot func() S, apply func(), remote func(context.Context) error, restore func(S)) error {
	snap := snapshot()
	apply()
	if err := remote(ctx); err != nil {
		restore(snap)
		return err
	}
	return nil
}

type orderSnapshot struct {
	order   client.Order
	existed bool
}

// MutateOrder is the common case: optimistically rewrite one order in the
// store, confirm remotely, and put the old copy back on failure. The
// server's authoritative copy then arrives over the feed, or via the
// remote call's own response.
func (s *Store) MutateOrder(ctx context.Context, id uuid.UUID, change func(), remote func(context.Context) error) error {
	return Mutate(ctx,
		func() orderSnapshot {
			o, ok := s.Get(id)
			return orderSnapshot{order: o, existed: ok}
		},
		change,
		remote,
		func(snap orderSnapshot) {
			if snap.existed {
				s.Upsert(snap.order)
			} else {
				s.Remove(id)
			}
		},
	)
}
