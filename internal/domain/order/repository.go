package order

import (
	"context"
)

// Repository 订单仓储接口(依赖倒置原则)
type Repository interface {
	// Create 创建订单(含明细,同一事务)
	// 订单号撞唯一约束时返回ErrOrderNoDuplicate
	Create(ctx context.Context, o *Order) error

	// FindByID 根据ID查找订单(含明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 根据订单号查找订单(含明细)
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// Update 更新订单(主要用于状态更新)
	Update(ctx context.Context, o *Order) error

	// ListByUserID 分页查询用户订单(创建时间倒序)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Order, int64, error)
}
