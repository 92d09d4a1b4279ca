package orders

import (
	"testing"

	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotalsAndPayout(t *testing.T) {
	items := []LineItem{{Name: "Pizza", UnitPrice: 299, Quantity: 2}}
	total, err := ComputeTotal(items)
	require.NoError(t, err)
	assert.Equal(t, 598, total)
	assert.Equal(t, 60, ComputePayout(total))

	cases := map[int]int{
		0:    30,
		100:  30,
		300:  30,
		304:  30,
		305:  31,
		1000: 100,
	}
	for total, want := range cases {
		assert.Equal(t, want, ComputePayout(total), "total %d", total)
	}
}

func TestComputeTotalRejectsOverflow(t *testing.T) {
	_, err := ComputeTotal([]LineItem{{Name: "Gold", UnitPrice: 1 << 62, Quantity: 2}})
	require.ErrorIs(t, err, ErrTotalOverflow)

	_, err = ComputeTotal([]LineItem{
		{Name: "A", UnitPrice: MaxOrderTotal, Quantity: 1},
		{Name: "B", UnitPrice: 1, Quantity: 1},
	})
	require.ErrorIs(t, err, ErrTotalOverflow)

	total, err := ComputeTotal([]LineItem{{Name: "A", UnitPrice: MaxOrderTotal, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, MaxOrderTotal, total)
	assert.Positive(t, ComputePayout(total))
}

func TestDeliveryBranchIsNotEnteredByAnyOperation(t *testing.T) {
	for from, targets := range edges {
		for _, to := range targets {
			assert.NotEqual(t, enums.OrderStatusPendingDelivery, to, "edge from %s", from)
		}
	}
	assert.False(t, IsSettable(enums.OrderStatusPendingDelivery))
	assert.False(t, IsSettable(enums.OrderStatusAcceptedDelivery))
	assert.False(t, IsSettable(enums.OrderStatusRejected))

	assert.True(t, CanTransition(enums.OrderStatusPendingDelivery, enums.OrderStatusAcceptedDelivery))
	assert.True(t, CanTransition(enums.OrderStatusPendingDelivery, enums.OrderStatusRejected))
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRejected} {
		assert.Empty(t, edges[status], status)
	}
}

func TestEveryNonTerminalStatusCanBeReassigned(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusAccepted,
		enums.OrderStatusPreparing,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusPendingDelivery,
		enums.OrderStatusAcceptedDelivery,
	} {
		assert.True(t, CanTransition(status, enums.OrderStatusOutForDelivery), status)
	}
}

func TestMoveToRejectsUnknownEdge(t *testing.T) {
	o := &Order{Status: enums.OrderStatusReadyForPickup}
	err := moveTo(o, enums.OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))
	assert.Equal(t, enums.OrderStatusReadyForPickup, o.Status)

	require.NoError(t, moveTo(o, enums.OrderStatusOutForDelivery))
	assert.Equal(t, enums.OrderStatusOutForDelivery, o.Status)
}

func TestDeliveryBranch(t *testing.T) {
	assert.True(t, CanTransition(enums.OrderStatusPendingDelivery, enums.OrderStatusAcceptedDelivery))
	assert.True(t, CanTransition(enums.OrderStatusPendingDelivery, enums.OrderStatusRejected))
	assert.False(t, CanTransition(enums.OrderStatusAcceptedDelivery, enums.OrderStatusRejected))
}

func TestSettableWhitelist(t *testing.T) {
	assert.True(t, IsSettable(enums.OrderStatusDelivered))
	assert.False(t, IsSettable(enums.OrderStatusAccepted))
	assert.False(t, IsSettable(enums.OrderStatusRejected))
	assert.False(t, IsSettable("shipped"))
}

func TestNewCodeFormat(t *testing.T) {
	code := NewCode(fixedNow())
	assert.Regexp(t, `^ORD-260301-[A-Z2-9]{6}$`, code)
	assert.NotEqual(t, code, NewCode(fixedNow()))
}
