package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []Item {
	return []Item{
		{ProductID: 100, ReservationID: "res-a", Quantity: 2, Price: 1500},
		{ProductID: 101, ReservationID: "res-b", Quantity: 1, Price: 3000},
	}
}

func TestNewOrder(t *testing.T) {
	o, err := NewOrder("ORD123", 1, "上海市浦东新区", testItems())
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, o.Status)
	// 总额 = 2*1500 + 1*3000
	assert.Equal(t, int64(6000), o.Total)

	_, err = NewOrder("ORD124", 1, "", nil)
	assert.ErrorIs(t, err, ErrInvalidOrderItems)

	_, err = NewOrder("ORD125", 1, "", []Item{{ProductID: 100, Quantity: 0, Price: 100}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestOrder_StatusTransitions(t *testing.T) {
	o, err := NewOrder("ORD123", 1, "addr", testItems())
	require.NoError(t, err)

	// CREATED → PAYMENT_COMPLETED → SHIPPED → COMPLETED
	require.NoError(t, o.CompletePayment())
	require.NoError(t, o.Ship())
	require.NoError(t, o.Complete())

	// 终态后不可再变更
	assert.ErrorIs(t, o.Cancel(), ErrInvalidStatusTransition)
	assert.ErrorIs(t, o.CompletePayment(), ErrInvalidStatusTransition)
}

func TestOrder_PaymentFailure(t *testing.T) {
	o, err := NewOrder("ORD123", 1, "addr", testItems())
	require.NoError(t, err)

	require.NoError(t, o.FailPayment())
	assert.Equal(t, StatusFailed, o.Status)

	// 失败的订单只能取消
	assert.ErrorIs(t, o.CompletePayment(), ErrInvalidStatusTransition)
	require.NoError(t, o.Cancel())
}

func TestOrder_CancelAfterPayment(t *testing.T) {
	o, err := NewOrder("ORD123", 1, "addr", testItems())
	require.NoError(t, err)

	require.NoError(t, o.CompletePayment())
	// 已支付可以取消(触发库存冲正)
	assert.True(t, o.CanTransitionTo(StatusCancelled))
	require.NoError(t, o.Cancel())

	// 已发货不可取消
	o2, err := NewOrder("ORD124", 1, "addr", testItems())
	require.NoError(t, err)
	require.NoError(t, o2.CompletePayment())
	require.NoError(t, o2.Ship())
	assert.False(t, o2.CanTransitionTo(StatusCancelled))
}
