package groups

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no room has the requested code.
	ErrNotFound = errors.New("room not found")
	// ErrCodeTaken is returned by Create when the code already exists.
	ErrCodeTaken = errors.New("room code already exists")
	// ErrConcurrentUpdate is returned when an update keeps losing its compare-and-set.
	ErrConcurrentUpdate = errors.New("room modified concurrently")
	// ErrSubtotalOverflow is returned when a mutation pushes the cart total out of range.
	ErrSubtotalOverflow = errors.New("room subtotal out of range")

	errUnchanged = errors.New("room unchanged")
)

// Mutation edits a private copy of the room.
type Mutation func(r *Room) error

// Store persists rooms with per-room serialized updates.
type Store interface {
	Create(ctx context.Context, room *Room) error
	Exists(ctx context.Context, code string) (bool, error)
	Get(ctx context.Context, code string) (*Room, error)
	Update(ctx context.Context, code string, mutate Mutation) (*Room, error)
}

func applyMutation(current *Room, mutate Mutation) (*Room, error) {
	next := current.clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Code = current.Code
	next.HostID = current.HostID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	total, err := next.sumItems()
	if err != nil {
		return nil, err
	}
	next.Subtotal = total
	return next, nil
}
