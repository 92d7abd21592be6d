package cart

import (
	"context"
)

// Repository 购物车仓储接口(依赖倒置原则)
// (user_id, product_id)唯一,一个用户对一个商品只有一行
type Repository interface {
	// Create 创建购物车行
	Create(ctx context.Context, item *Item) error

	// FindByUserAndProduct 查找某用户对某商品的购物车行
	FindByUserAndProduct(ctx context.Context, userID, productID uint) (*Item, error)

	// ListByUser 列出某用户全部购物车行
	ListByUser(ctx context.Context, userID uint) ([]*Item, error)

	// Save 回写购物车行
	Save(ctx context.Context, item *Item) error

	// Delete 删除购物车行
	Delete(ctx context.Context, userID, productID uint) error
}
