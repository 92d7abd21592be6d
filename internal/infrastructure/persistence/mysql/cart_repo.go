package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/gomall/internal/domain/cart"
)

// cartRepository 购物车仓储实现(MySQL)
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) cart.Repository {
	return &cartRepository{db: db}
}

// Create 创建购物车行
func (r *cartRepository) Create(ctx context.Context, item *cart.Item) error {
	model := &CartItemModel{
		UserID:        item.UserID,
		ProductID:     item.ProductID,
		ReservationID: item.ReservationID,
		PriceAtAdd:    item.PriceAtAdd,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return cart.ErrItemDuplicate
		}
		return translateError(err, "创建购物车行失败")
	}
	item.ID = model.ID
	item.CreatedAt = model.CreatedAt
	item.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByUserAndProduct 查找某用户对某商品的购物车行
func (r *cartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uint) (*cart.Item, error) {
	var model CartItemModel
	err := getDB(ctx, r.db).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cart.ErrItemNotFound
		}
		return nil, translateError(err, "查询购物车行失败")
	}
	return toCartItemEntity(&model), nil
}

// ListByUser 列出某用户全部购物车行
func (r *cartRepository) ListByUser(ctx context.Context, userID uint) ([]*cart.Item, error) {
	var models []CartItemModel
	err := getDB(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, translateError(err, "查询购物车失败")
	}

	items := make([]*cart.Item, len(models))
	for i := range models {
		items[i] = toCartItemEntity(&models[i])
	}
	return items, nil
}

// Save 回写购物车行
func (r *cartRepository) Save(ctx context.Context, item *cart.Item) error {
	model := &CartItemModel{
		ID:            item.ID,
		UserID:        item.UserID,
		ProductID:     item.ProductID,
		ReservationID: item.ReservationID,
		PriceAtAdd:    item.PriceAtAdd,
		CreatedAt:     item.CreatedAt,
	}
	if err := getDB(ctx, r.db).Save(model).Error; err != nil {
		return translateError(err, "回写购物车行失败")
	}
	item.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete 删除购物车行
func (r *cartRepository) Delete(ctx context.Context, userID, productID uint) error {
	result := getDB(ctx, r.db).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&CartItemModel{})
	if result.Error != nil {
		return translateError(result.Error, "删除购物车行失败")
	}
	if result.RowsAffected == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

func toCartItemEntity(model *CartItemModel) *cart.Item {
	return &cart.Item{
		ID:            model.ID,
		UserID:        model.UserID,
		ProductID:     model.ProductID,
		ReservationID: model.ReservationID,
		PriceAtAdd:    model.PriceAtAdd,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
