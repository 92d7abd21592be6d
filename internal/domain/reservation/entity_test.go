package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newCartHold(t *testing.T) *Reservation {
	t.Helper()
	r, err := New(1, 100, 2, StatusCart, 30*time.Minute, baseTime)
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	// 数量必须大于0
	_, err := New(1, 100, 0, StatusCart, time.Minute, baseTime)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New(1, 100, -3, StatusCheckout, time.Minute, baseTime)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// 只能以活跃状态创建
	_, err = New(1, 100, 1, StatusConfirmed, time.Minute, baseTime)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	r, err := New(1, 100, 2, StatusCart, 30*time.Minute, baseTime)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusCart, r.Status)
	require.NotNil(t, r.ExpiresAt)
	assert.Equal(t, baseTime.Add(30*time.Minute), *r.ExpiresAt)
}

func TestReservation_Expiry(t *testing.T) {
	r := newCartHold(t)

	assert.False(t, r.IsExpired(baseTime))
	assert.False(t, r.IsExpired(baseTime.Add(29*time.Minute)))
	// 截止时刻本身视为已过期
	assert.True(t, r.IsExpired(baseTime.Add(30*time.Minute)))
	assert.True(t, r.IsExpired(baseTime.Add(time.Hour)))
}

func TestReservation_Extend(t *testing.T) {
	r := newCartHold(t)

	// 续期从now起算,不叠加剩余时间
	now := baseTime.Add(20 * time.Minute)
	require.NoError(t, r.Extend(30*time.Minute, now))
	assert.Equal(t, now.Add(30*time.Minute), *r.ExpiresAt)

	// 过期后不能续期
	expired := newCartHold(t)
	err := expired.Extend(30*time.Minute, baseTime.Add(time.Hour))
	assert.ErrorIs(t, err, ErrReservationExpired)

	// 结算持有也可以续期
	co := newCartHold(t)
	require.NoError(t, co.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, co.Extend(10*time.Minute, baseTime.Add(time.Minute)))
	assert.Equal(t, baseTime.Add(11*time.Minute), *co.ExpiresAt)

	// 确认后的预留无TTL,不能续期
	cf := newCartHold(t)
	require.NoError(t, cf.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, cf.Confirm(baseTime))
	err = cf.Extend(30*time.Minute, baseTime)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestReservation_ConvertToCheckout(t *testing.T) {
	r := newCartHold(t)
	now := baseTime.Add(5 * time.Minute)

	require.NoError(t, r.ConvertToCheckout(10*time.Minute, now))
	assert.Equal(t, StatusCheckout, r.Status)
	// 结算TTL独立计算
	assert.Equal(t, now.Add(10*time.Minute), *r.ExpiresAt)

	// 过期的购物车持有不能转结算
	stale := newCartHold(t)
	err := stale.ConvertToCheckout(10*time.Minute, baseTime.Add(time.Hour))
	assert.ErrorIs(t, err, ErrReservationExpired)
}

func TestReservation_RevertToCart(t *testing.T) {
	r := newCartHold(t)
	require.NoError(t, r.ConvertToCheckout(10*time.Minute, baseTime))

	now := baseTime.Add(3 * time.Minute)
	require.NoError(t, r.RevertToCart(30*time.Minute, now))
	assert.Equal(t, StatusCart, r.Status)
	assert.Equal(t, now.Add(30*time.Minute), *r.ExpiresAt)

	// 购物车持有本身不能"回退"
	assert.ErrorIs(t, r.RevertToCart(30*time.Minute, now), ErrInvalidStatusTransition)
}

func TestReservation_RevertToCartFromConfirmed(t *testing.T) {
	// 支付失败:未消费的已确认持有退回购物车,重新计TTL
	r := newCartHold(t)
	require.NoError(t, r.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, r.Confirm(baseTime.Add(time.Minute)))
	require.Nil(t, r.ExpiresAt)

	now := baseTime.Add(5 * time.Minute)
	require.NoError(t, r.RevertToCart(30*time.Minute, now))
	assert.Equal(t, StatusCart, r.Status)
	assert.Equal(t, now.Add(30*time.Minute), *r.ExpiresAt)

	// 已消费的持有货已离库,不能退回
	consumed := newCartHold(t)
	require.NoError(t, consumed.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, consumed.Confirm(baseTime))
	require.NoError(t, consumed.MarkConsumed(baseTime.Add(time.Minute)))
	assert.ErrorIs(t, consumed.RevertToCart(30*time.Minute, now), ErrTerminalState)
}

func TestReservation_Confirm(t *testing.T) {
	// 购物车持有不能直接确认
	cart := newCartHold(t)
	assert.ErrorIs(t, cart.Confirm(baseTime), ErrInvalidStatusTransition)

	// 结算持有确认后清除TTL
	r := newCartHold(t)
	require.NoError(t, r.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, r.Confirm(baseTime.Add(time.Minute)))
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Nil(t, r.ExpiresAt)

	// 重复确认幂等
	assert.NoError(t, r.Confirm(baseTime.Add(2*time.Minute)))

	// 过期的结算持有不能确认
	stale := newCartHold(t)
	require.NoError(t, stale.ConvertToCheckout(10*time.Minute, baseTime))
	err := stale.Confirm(baseTime.Add(time.Hour))
	assert.ErrorIs(t, err, ErrReservationExpired)
}

func TestReservation_Cancel(t *testing.T) {
	r := newCartHold(t)
	require.NoError(t, r.Cancel(baseTime))
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Nil(t, r.ExpiresAt)

	// 重复取消
	assert.ErrorIs(t, r.Cancel(baseTime), ErrAlreadyCancelled)

	// 已确认未消费的预留可以取消(订单取消释放持有)
	c := newCartHold(t)
	require.NoError(t, c.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, c.Confirm(baseTime))
	assert.NoError(t, c.Cancel(baseTime))

	// 已消费的预留不可取消
	done := newCartHold(t)
	require.NoError(t, done.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, done.Confirm(baseTime))
	require.NoError(t, done.MarkConsumed(baseTime))
	assert.ErrorIs(t, done.Cancel(baseTime), ErrTerminalState)
}

func TestReservation_MarkConsumed(t *testing.T) {
	r := newCartHold(t)
	// 未确认不能消费
	assert.ErrorIs(t, r.MarkConsumed(baseTime), ErrInvalidStatusTransition)

	require.NoError(t, r.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, r.Confirm(baseTime))
	require.NoError(t, r.MarkConsumed(baseTime.Add(time.Minute)))
	require.NotNil(t, r.ConsumedAt)

	// 重复消费
	assert.ErrorIs(t, r.MarkConsumed(baseTime), ErrTerminalState)
}

func TestReservation_IsHolding(t *testing.T) {
	// 未过期的购物车持有占用库存
	r := newCartHold(t)
	assert.True(t, r.IsHolding(baseTime))

	// 过期后不再占用(即使行还没被回收)
	assert.False(t, r.IsHolding(baseTime.Add(time.Hour)))

	// 确认后无限期占用
	c := newCartHold(t)
	require.NoError(t, c.ConvertToCheckout(10*time.Minute, baseTime))
	require.NoError(t, c.Confirm(baseTime))
	assert.True(t, c.IsHolding(baseTime.Add(100*time.Hour)))

	// 消费后释放占用
	require.NoError(t, c.MarkConsumed(baseTime))
	assert.False(t, c.IsHolding(baseTime))

	// 取消后释放占用
	x := newCartHold(t)
	require.NoError(t, x.Cancel(baseTime))
	assert.False(t, x.IsHolding(baseTime))
}

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusCart.CanTransitionTo(StatusCheckout))
	assert.True(t, StatusCart.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCart.CanTransitionTo(StatusConfirmed))

	assert.True(t, StatusCheckout.CanTransitionTo(StatusCart))
	assert.True(t, StatusCheckout.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusCheckout.CanTransitionTo(StatusCancelled))

	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCart))
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusCheckout))

	assert.False(t, StatusCancelled.CanTransitionTo(StatusCart))
	assert.True(t, StatusCancelled.IsTerminal())
}
