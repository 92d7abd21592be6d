package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/gomall/internal/domain/reservation"
)

// reservationRepository 预留仓储实现(MySQL)
// 所有"活跃"条件都在SQL里内联过期判断:
// status IN (CART, CHECKOUT) AND expires_at > now
// 过期但还没被回收的行对任何活跃查询都不可见
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预留仓储
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

// Create 创建预留
func (r *reservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return translateError(err, "创建预留失败")
	}
	return nil
}

// FindByID 根据ID查找预留
func (r *reservationRepository) FindByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var model ReservationModel
	err := getDB(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, translateError(err, "查询预留失败")
	}
	return toReservationEntity(&model), nil
}

// Save 回写预留
func (r *reservationRepository) Save(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)
	if err := getDB(ctx, r.db).Save(model).Error; err != nil {
		return translateError(err, "回写预留失败")
	}
	return nil
}

// FindActiveByUserAndProduct 查找某用户对某商品的活跃持有
func (r *reservationRepository) FindActiveByUserAndProduct(ctx context.Context, userID, productID uint, now time.Time) (*reservation.Reservation, error) {
	var model ReservationModel
	err := getDB(ctx, r.db).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Where("status IN ? AND expires_at > ?", activeStatuses(), now).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, translateError(err, "查询活跃预留失败")
	}
	return toReservationEntity(&model), nil
}

// ListActiveByUser 列出某用户全部活跃持有
func (r *reservationRepository) ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	err := getDB(ctx, r.db).
		Where("user_id = ?", userID).
		Where("status IN ? AND expires_at > ?", activeStatuses(), now).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, translateError(err, "查询用户预留失败")
	}

	result := make([]*reservation.Reservation, len(models))
	for i := range models {
		result[i] = toReservationEntity(&models[i])
	}
	return result, nil
}

// HoldingSumByProduct 汇总某商品当前占用的库存数量
// 占用 = 未过期CART/CHECKOUT + 未消费CONFIRMED
// 必须与台账行锁在同一事务中调用,否则汇总结果回写前就可能失真
func (r *reservationRepository) HoldingSumByProduct(ctx context.Context, productID uint, now time.Time) (int, error) {
	var sum int64
	err := getDB(ctx, r.db).
		Model(&ReservationModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID).
		Where("(status IN ? AND expires_at > ?) OR (status = ? AND consumed_at IS NULL)",
			activeStatuses(), now, string(reservation.StatusConfirmed)).
		Scan(&sum).Error
	if err != nil {
		return 0, translateError(err, "汇总预留占用失败")
	}
	return int(sum), nil
}

// FindExpiredByProduct 查找某商品已过期但状态仍为活跃的预留行
func (r *reservationRepository) FindExpiredByProduct(ctx context.Context, productID uint, now time.Time, limit int) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	query := getDB(ctx, r.db).
		Where("product_id = ?", productID).
		Where("status IN ? AND expires_at <= ?", activeStatuses(), now)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&models).Error
	if err != nil {
		return nil, translateError(err, "查询过期预留失败")
	}

	result := make([]*reservation.Reservation, len(models))
	for i := range models {
		result[i] = toReservationEntity(&models[i])
	}
	return result, nil
}

// ListProductsWithExpired 列出存在过期活跃预留的商品ID
func (r *reservationRepository) ListProductsWithExpired(ctx context.Context, now time.Time) ([]uint, error) {
	var productIDs []uint
	err := getDB(ctx, r.db).
		Model(&ReservationModel{}).
		Distinct("product_id").
		Where("status IN ? AND expires_at <= ?", activeStatuses(), now).
		Pluck("product_id", &productIDs).Error
	if err != nil {
		return nil, translateError(err, "扫描过期预留失败")
	}
	return productIDs, nil
}

func activeStatuses() []string {
	return []string{string(reservation.StatusCart), string(reservation.StatusCheckout)}
}

func toReservationModel(res *reservation.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:         res.ID,
		UserID:     res.UserID,
		ProductID:  res.ProductID,
		Quantity:   res.Quantity,
		Status:     string(res.Status),
		ExpiresAt:  res.ExpiresAt,
		ConsumedAt: res.ConsumedAt,
		CreatedAt:  res.CreatedAt,
		UpdatedAt:  res.UpdatedAt,
	}
}

func toReservationEntity(model *ReservationModel) *reservation.Reservation {
	return &reservation.Reservation{
		ID:         model.ID,
		UserID:     model.UserID,
		ProductID:  model.ProductID,
		Quantity:   model.Quantity,
		Status:     reservation.Status(model.Status),
		ExpiresAt:  model.ExpiresAt,
		ConsumedAt: model.ConsumedAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}
