package orders

import (
	"errors"
	"fmt"
	"math"

	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
)

const (
	// PayoutFloor is the minimum owed to a delivery actor per order.
	PayoutFloor = 30
	// PayoutPercent of the order total is owed when it exceeds the floor.
	PayoutPercent = 10

	// MaxUnitPrice and MaxQuantity bound a single line item.
	MaxUnitPrice = 10_000_000
	MaxQuantity  = 1_000
	// MaxOrderTotal keeps the payout computation inside int.
	MaxOrderTotal = math.MaxInt / 100
)

// ErrTotalOverflow is returned when line items sum past MaxOrderTotal.
var ErrTotalOverflow = errors.New("order total out of range")

var edges = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusAccepted,
		enums.OrderStatusPreparing,
		enums.OrderStatusCancelled,
		enums.OrderStatusOutForDelivery,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusPreparing,
		enums.OrderStatusCancelled,
		enums.OrderStatusOutForDelivery,
	},
	enums.OrderStatusAccepted: {
		enums.OrderStatusPreparing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusCancelled,
		enums.OrderStatusOutForDelivery,
	},
	enums.OrderStatusPreparing: {
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusOutForDelivery,
	},
	enums.OrderStatusReadyForPickup: {
		enums.OrderStatusOutForDelivery,
	},
	// the self edge is a driver reassignment
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDelivered,
		enums.OrderStatusOutForDelivery,
	},
	// no operation enters pending_delivery
	enums.OrderStatusPendingDelivery: {
		enums.OrderStatusAcceptedDelivery,
		enums.OrderStatusRejected,
		enums.OrderStatusOutForDelivery,
	},
	enums.OrderStatusAcceptedDelivery: {
		enums.OrderStatusOutForDelivery,
	},
}

var assignable = map[enums.OrderStatus]struct{}{
	enums.OrderStatusPending:   {},
	enums.OrderStatusConfirmed: {},
	enums.OrderStatusPreparing: {},
}

// settable lists the statuses a privileged caller may request directly.
var settable = map[enums.OrderStatus]struct{}{
	enums.OrderStatusPending:        {},
	enums.OrderStatusConfirmed:      {},
	enums.OrderStatusPreparing:      {},
	enums.OrderStatusReadyForPickup: {},
	enums.OrderStatusOutForDelivery: {},
	enums.OrderStatusDelivered:      {},
	enums.OrderStatusCancelled:      {},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsAssignable reports whether a delivery actor may claim an order in status.
func IsAssignable(status enums.OrderStatus) bool {
	_, ok := assignable[status]
	return ok
}

// IsSettable reports whether status may be requested through a generic update.
func IsSettable(status enums.OrderStatus) bool {
	_, ok := settable[status]
	return ok
}

// ComputeTotal sums unit price times quantity for non-negative items.
func ComputeTotal(items []LineItem) (int, error) {
	total := 0
	for _, item := range items {
		if item.UnitPrice < 0 || item.Quantity < 0 {
			return 0, ErrTotalOverflow
		}
		if item.Quantity > 0 && item.UnitPrice > (MaxOrderTotal-total)/item.Quantity {
			return 0, ErrTotalOverflow
		}
		total += item.UnitPrice * item.Quantity
	}
	return total, nil
}

// ComputePayout is max(PayoutFloor, round(total * PayoutPercent / 100)).
func ComputePayout(total int) int {
	payout := (total*PayoutPercent + 50) / 100
	if payout < PayoutFloor {
		return PayoutFloor
	}
	return payout
}

// moveTo applies an edge or returns an invalid state error.
func moveTo(o *Order, to enums.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return invalidTransition(o.Status, to)
	}
	o.Status = to
	return nil
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

// checkEdge guards stores against a mutation that skipped moveTo.
func checkEdge(before, after enums.OrderStatus) error {
	if before == after || CanTransition(before, after) {
		return nil
	}
	return invalidTransition(before, after)
}
