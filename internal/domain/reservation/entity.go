package reservation

import (
	"time"

	"github.com/google/uuid"
)

// Reservation 库存预留实体(聚合根)
// DDD设计说明:
// 1. 一条预留代表某用户对某商品若干件库存的持有
// 2. CART/CHECKOUT状态带ExpiresAt,到期后持有自动失效(惰性处理,
//    不依赖后台定时器,任何读到它的路径都把过期视同不存在)
// 3. CONFIRMED状态无TTL,由订单生命周期决定去向:
//    出库消费时打上ConsumedAt,订单取消时转CANCELLED
// 4. 时间一律由调用方注入now,便于测试和统一事务内时钟
type Reservation struct {
	ID        string // UUID,对外暴露的业务标识
	UserID    uint
	ProductID uint
	Quantity  int
	Status    Status

	// ExpiresAt 持有截止时间;CONFIRMED/CANCELLED状态为nil
	ExpiresAt *time.Time

	// ConsumedAt 出库消费时间;只有CONFIRMED状态的预留会被消费
	// 已消费的预留不再占用库存,也不可再取消
	ConsumedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New 创建新预留(工厂方法)
// status只允许CART或CHECKOUT,ttl决定ExpiresAt
func New(userID, productID uint, quantity int, status Status, ttl time.Duration, now time.Time) (*Reservation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !status.IsActive() {
		return nil, ErrInvalidStatusTransition
	}
	expires := now.Add(ttl)
	return &Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    status,
		ExpiresAt: &expires,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExpired 活跃持有是否已过期
// 非活跃状态永远返回false(CONFIRMED无TTL,CANCELLED已终结)
func (r *Reservation) IsExpired(now time.Time) bool {
	if !r.Status.IsActive() || r.ExpiresAt == nil {
		return false
	}
	return !now.Before(*r.ExpiresAt)
}

// IsHolding 是否仍占用库存
// 占用 = 未过期的CART/CHECKOUT + 未消费的CONFIRMED
// 台账的Reserved字段就是该判断在全体预留上的汇总
func (r *Reservation) IsHolding(now time.Time) bool {
	if r.Status.IsActive() {
		return !r.IsExpired(now)
	}
	return r.Status == StatusConfirmed && r.ConsumedAt == nil
}

// Extend 续期(领域行为)
// 业务规则:只有未过期的活跃持有可以续期,新截止时间从now起算
func (r *Reservation) Extend(ttl time.Duration, now time.Time) error {
	if !r.Status.IsActive() {
		return ErrInvalidStatusTransition
	}
	if r.IsExpired(now) {
		return ErrReservationExpired
	}
	expires := now.Add(ttl)
	r.ExpiresAt = &expires
	r.UpdatedAt = now
	return nil
}

// ConvertToCheckout 购物车持有转结算持有(领域行为)
// 结算TTL独立计算,不继承购物车剩余时间
func (r *Reservation) ConvertToCheckout(ttl time.Duration, now time.Time) error {
	if r.IsExpired(now) {
		return ErrReservationExpired
	}
	if !r.Status.CanTransitionTo(StatusCheckout) {
		return ErrInvalidStatusTransition
	}
	expires := now.Add(ttl)
	r.Status = StatusCheckout
	r.ExpiresAt = &expires
	r.UpdatedAt = now
	return nil
}

// RevertToCart 回退为购物车持有(领域行为)
// 两个入口:用户放弃结算页(CHECKOUT回退),支付失败回调(未消费的CONFIRMED回退)
// 持有不丢,重新按购物车TTL计时
func (r *Reservation) RevertToCart(ttl time.Duration, now time.Time) error {
	switch r.Status {
	case StatusCheckout:
	case StatusConfirmed:
		if r.ConsumedAt != nil {
			return ErrTerminalState
		}
	default:
		return ErrInvalidStatusTransition
	}
	if r.IsExpired(now) {
		return ErrReservationExpired
	}
	expires := now.Add(ttl)
	r.Status = StatusCart
	r.ExpiresAt = &expires
	r.UpdatedAt = now
	return nil
}

// Confirm 确认预留(领域行为)
// 业务规则:
// 1. 只接受CHECKOUT状态,CART必须先转结算(防止绕过结算页下单)
// 2. 幂等:已经CONFIRMED时直接返回成功
// 3. 确认后清除TTL,持有转为无限期,直到消费或取消
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status == StatusConfirmed {
		return nil
	}
	if r.Status != StatusCheckout {
		return ErrInvalidStatusTransition
	}
	if r.IsExpired(now) {
		return ErrReservationExpired
	}
	r.Status = StatusConfirmed
	r.ExpiresAt = nil
	r.UpdatedAt = now
	return nil
}

// Cancel 取消预留(领域行为)
// 业务规则:
// 1. 重复取消返回ErrAlreadyCancelled(调用方可据此做幂等处理)
// 2. 已消费的预留货已离库,不可取消
func (r *Reservation) Cancel(now time.Time) error {
	if r.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if r.Status == StatusConfirmed && r.ConsumedAt != nil {
		return ErrTerminalState
	}
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusCancelled
	r.ExpiresAt = nil
	r.UpdatedAt = now
	return nil
}

// MarkConsumed 出库消费(领域行为)
// 订单支付完成出库时调用,预留从此不再占用库存
func (r *Reservation) MarkConsumed(now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidStatusTransition
	}
	if r.ConsumedAt != nil {
		return ErrTerminalState
	}
	consumed := now
	r.ConsumedAt = &consumed
	r.UpdatedAt = now
	return nil
}
