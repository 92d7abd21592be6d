// Package stock 库存管理用例(运营侧)
package stock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/application/lifecycle"
	"github.com/xiebiao/gomall/internal/domain/product"
	"github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// AdminService 库存运营服务
// 建账、盘点调整、流水查询、过期回收入口
type AdminService struct {
	txManager   *mysql.TxManager
	stockRepo   stock.Repository
	productRepo product.Repository
	resRepo     ReservationSummer
	coord       *lifecycle.Coordinator
	notifier    stock.Notifier
	log         *zap.Logger
	now         func() time.Time
}

// ReservationSummer 占用汇总查询(预留仓储的子集)
// 调整在库数前要先用真实汇总刷新缓存,防止基于失真缓存放行非法调整
type ReservationSummer interface {
	HoldingSumByProduct(ctx context.Context, productID uint, now time.Time) (int, error)
}

// NewAdminService 创建库存运营服务
func NewAdminService(
	txManager *mysql.TxManager,
	stockRepo stock.Repository,
	productRepo product.Repository,
	resRepo ReservationSummer,
	coord *lifecycle.Coordinator,
	notifier stock.Notifier,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		txManager:   txManager,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		resRepo:     resRepo,
		coord:       coord,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// WithClock 替换时钟(测试用)
func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// Provision 为商品建账并录入初始库存
func (s *AdminService) Provision(ctx context.Context, productID uint, quantity, threshold int, operator string) (*stock.Stock, error) {
	// 商品必须先存在
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	entry, err := stock.NewStock(productID, quantity, threshold)
	if err != nil {
		return nil, err
	}

	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if err := s.stockRepo.Create(txCtx, entry); err != nil {
			return err
		}
		if quantity == 0 {
			return nil
		}
		return s.stockRepo.AddMovement(txCtx, stock.NewMovement(
			productID, stock.ChangeTypeProvision, quantity, quantity, "", operator,
		))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("库存建账完成",
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return entry, nil
}

// Adjust 盘点调整在库数
// delta为正表示入库,为负表示盘亏;调整后在库数不能低于当前占用数
// reason限定为进货/退货/纠错/报损/过期五种事由,流水按事由区分
func (s *AdminService) Adjust(ctx context.Context, productID uint, delta int, reason stock.AdjustReason, reference, operator string) (*stock.Stock, error) {
	if !reason.Valid() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "无效的调整事由")
	}

	var adjusted *stock.Stock

	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		entry, err := s.stockRepo.LockByProduct(txCtx, productID)
		if err != nil {
			return err
		}

		// 缓存可能落后(过期持有还没回收),先用真实汇总刷新再校验调整
		sum, err := s.resRepo.HoldingSumByProduct(txCtx, productID, s.now())
		if err != nil {
			return err
		}
		if err := entry.SetReserved(sum); err != nil {
			return err
		}

		if err := entry.Adjust(delta); err != nil {
			return err
		}
		if err := s.stockRepo.Save(txCtx, entry); err != nil {
			return err
		}
		if err := s.stockRepo.AddMovement(txCtx, stock.NewAdjustMovement(
			productID, reason, delta, entry.Quantity, reference, operator,
		)); err != nil {
			return err
		}

		adjusted = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("库存已调整",
		zap.Uint("product_id", productID),
		zap.Int("delta", delta),
		zap.String("reason", string(reason)),
		zap.String("operator", operator),
	)

	// 盘亏越过阈值同样要告警,发送失败不影响调整结果
	if adjusted.IsLow() {
		if err := s.notifier.NotifyLowStock(ctx, adjusted.ProductID, adjusted.Available(), adjusted.LowStockThreshold); err != nil {
			s.log.Warn("低库存告警发送失败",
				zap.Uint("product_id", adjusted.ProductID),
				zap.Error(err),
			)
		}
	}
	return adjusted, nil
}

// Get 查询库存台账
func (s *AdminService) Get(ctx context.Context, productID uint) (*stock.Stock, error) {
	return s.stockRepo.FindByProduct(ctx, productID)
}

// Movements 分页查询变动流水
func (s *AdminService) Movements(ctx context.Context, productID uint, page, pageSize int) ([]*stock.Movement, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.stockRepo.ListMovements(ctx, productID, page, pageSize)
}

// ReclaimExpired 回收过期持有(管理端点,由外部调度器定期触发)
func (s *AdminService) ReclaimExpired(ctx context.Context) (int, error) {
	return s.coord.ReclaimExpired(ctx)
}
