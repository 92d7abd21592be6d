package reservation

import (
	"context"
	"time"
)

// Repository 预留仓储接口(依赖倒置原则)
// 汇总查询(HoldingSumByProduct)必须与台账行锁在同一事务内执行,
// 否则算出的占用数可能在回写前就已失真
type Repository interface {
	// Create 创建预留
	Create(ctx context.Context, r *Reservation) error

	// FindByID 根据ID查找预留
	FindByID(ctx context.Context, id string) (*Reservation, error)

	// Save 回写预留
	Save(ctx context.Context, r *Reservation) error

	// FindActiveByUserAndProduct 查找某用户对某商品的活跃持有
	// 未过期的CART或CHECKOUT;不存在时返回ErrReservationNotFound
	FindActiveByUserAndProduct(ctx context.Context, userID, productID uint, now time.Time) (*Reservation, error)

	// ListActiveByUser 列出某用户全部活跃持有(购物车视图)
	ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]*Reservation, error)

	// HoldingSumByProduct 汇总某商品当前占用的库存数量
	// 未过期CART/CHECKOUT + 未消费CONFIRMED的Quantity之和
	HoldingSumByProduct(ctx context.Context, productID uint, now time.Time) (int, error)

	// FindExpiredByProduct 查找某商品已过期但状态仍为活跃的预留行
	// 惰性回收用:这些行对占用汇总已不可见,只差落库改状态。
	// limit>0时限制返回行数,控制单次回收事务的大小
	FindExpiredByProduct(ctx context.Context, productID uint, now time.Time, limit int) ([]*Reservation, error)

	// ListProductsWithExpired 列出存在过期活跃预留的商品ID
	// 回收扫描的入口,每个商品单独开事务处理
	ListProductsWithExpired(ctx context.Context, now time.Time) ([]uint, error)
}
