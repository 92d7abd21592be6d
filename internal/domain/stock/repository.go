package stock

import (
	"context"
)

// Repository 库存仓储接口(依赖倒置原则)
type Repository interface {
	// Create 建账
	Create(ctx context.Context, s *Stock) error

	// FindByProduct 根据商品ID查找台账(无锁,只读场景)
	FindByProduct(ctx context.Context, productID uint) (*Stock, error)

	// LockByProduct 悲观锁查询台账
	// 使用SELECT FOR UPDATE锁定行,所有涉及数量变更的事务必须走这里
	LockByProduct(ctx context.Context, productID uint) (*Stock, error)

	// Save 回写台账
	Save(ctx context.Context, s *Stock) error

	// AddMovement 追加一条变动流水
	AddMovement(ctx context.Context, m *Movement) error

	// ListMovements 按商品分页查询变动流水(时间倒序)
	ListMovements(ctx context.Context, productID uint, page, pageSize int) ([]*Movement, int64, error)
}

// Notifier 库存事件通知端口
// infrastructure层用消息队列实现;通知失败不影响主流程
type Notifier interface {
	// NotifyLowStock 发送低库存告警
	NotifyLowStock(ctx context.Context, productID uint, available, threshold int) error
}
