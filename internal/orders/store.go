package orders

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no order has the requested code.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateCode is returned by Create when the code is taken.
	ErrDuplicateCode = errors.New("order code already exists")
	// ErrConcurrentUpdate is returned when a transition keeps losing its compare-and-set.
	ErrConcurrentUpdate = errors.New("order modified concurrently")

	// errUnchanged lets a mutation finish without writing.
	errUnchanged = errors.New("order unchanged")
)

// Mutation edits a private copy of the current order. Returning an error
// aborts the transition and nothing is persisted.
type Mutation func(o *Order) error

// Store persists orders. Transition applies mutate atomically with respect to
// any other Transition on the same code.
type Store interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, code string) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
	Transition(ctx context.Context, code string, mutate Mutation) (*Order, error)
}

func applyMutation(current *Order, mutate Mutation) (*Order, error) {
	next := current.clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := checkEdge(current.Status, next.Status); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Code = current.Code
	next.CreatedAt = current.CreatedAt
	next.Total = current.Total
	next.Version = current.Version + 1
	return next, nil
}
