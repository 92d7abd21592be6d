package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/gomall/internal/domain/stock"
)

// stockRepository 库存仓储实现(MySQL)
type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓储
func NewStockRepository(db *gorm.DB) stock.Repository {
	return &stockRepository{db: db}
}

// Create 建账
func (r *stockRepository) Create(ctx context.Context, s *stock.Stock) error {
	model := &StockModel{
		ProductID:         s.ProductID,
		Quantity:          s.Quantity,
		Reserved:          s.Reserved,
		LowStockThreshold: s.LowStockThreshold,
	}

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return stock.ErrStockDuplicate
		}
		return translateError(err, "创建库存台账失败")
	}

	s.ID = model.ID
	s.CreatedAt = model.CreatedAt
	s.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByProduct 根据商品ID查找台账(无锁)
func (r *stockRepository) FindByProduct(ctx context.Context, productID uint) (*stock.Stock, error) {
	var model StockModel
	err := getDB(ctx, r.db).Where("product_id = ?", productID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.ErrStockNotFound
		}
		return nil, translateError(err, "查询库存台账失败")
	}
	return toStockEntity(&model), nil
}

// LockByProduct 悲观锁查询台账
// SELECT FOR UPDATE锁定行,数量变更事务的入口
func (r *stockRepository) LockByProduct(ctx context.Context, productID uint) (*stock.Stock, error) {
	var model StockModel
	db := withRowLock(getDB(ctx, r.db))
	err := db.Where("product_id = ?", productID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.ErrStockNotFound
		}
		return nil, translateError(err, "锁定库存台账失败")
	}
	return toStockEntity(&model), nil
}

// Save 回写台账
func (r *stockRepository) Save(ctx context.Context, s *stock.Stock) error {
	model := &StockModel{
		ID:                s.ID,
		ProductID:         s.ProductID,
		Quantity:          s.Quantity,
		Reserved:          s.Reserved,
		LowStockThreshold: s.LowStockThreshold,
		CreatedAt:         s.CreatedAt,
	}
	if err := getDB(ctx, r.db).Save(model).Error; err != nil {
		return translateError(err, "回写库存台账失败")
	}
	s.UpdatedAt = model.UpdatedAt
	return nil
}

// AddMovement 追加变动流水
func (r *stockRepository) AddMovement(ctx context.Context, m *stock.Movement) error {
	model := &StockMovementModel{
		ProductID: m.ProductID,
		Type:      string(m.Type),
		Reason:    string(m.Reason),
		Delta:     m.Delta,
		After:     m.After,
		Reference: m.Reference,
		Operator:  m.Operator,
		CreatedAt: m.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return translateError(err, "写入库存流水失败")
	}
	m.ID = model.ID
	return nil
}

// ListMovements 分页查询变动流水(时间倒序)
func (r *stockRepository) ListMovements(ctx context.Context, productID uint, page, pageSize int) ([]*stock.Movement, int64, error) {
	var models []StockMovementModel
	var total int64

	query := getDB(ctx, r.db).Model(&StockMovementModel{}).Where("product_id = ?", productID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "查询流水总数失败")
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Limit(pageSize).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, 0, translateError(err, "查询流水列表失败")
	}

	movements := make([]*stock.Movement, len(models))
	for i, model := range models {
		movements[i] = &stock.Movement{
			ID:        model.ID,
			ProductID: model.ProductID,
			Type:      stock.ChangeType(model.Type),
			Reason:    stock.AdjustReason(model.Reason),
			Delta:     model.Delta,
			After:     model.After,
			Reference: model.Reference,
			Operator:  model.Operator,
			CreatedAt: model.CreatedAt,
		}
	}
	return movements, total, nil
}

func toStockEntity(model *StockModel) *stock.Stock {
	return &stock.Stock{
		ID:                model.ID,
		ProductID:         model.ProductID,
		Quantity:          model.Quantity,
		Reserved:          model.Reserved,
		LowStockThreshold: model.LowStockThreshold,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
