// Package cart 购物车用例
//
// 购物车行背后是CART状态的库存预留:加车即占位。
// 改数量走"取消旧预留+新建预留",两步在同一事务里,
// 失败时整体回滚,购物车行保持原样。
package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/application/lifecycle"
	"github.com/xiebiao/gomall/internal/domain/cart"
	"github.com/xiebiao/gomall/internal/domain/product"
	"github.com/xiebiao/gomall/internal/domain/reservation"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
)

// Service 购物车服务
type Service struct {
	txManager   *mysql.TxManager
	coord       *lifecycle.Coordinator
	cartRepo    cart.Repository
	productRepo product.Repository
	resRepo     reservation.Repository
	log         *zap.Logger
	now         func() time.Time
}

// NewService 创建购物车服务
func NewService(
	txManager *mysql.TxManager,
	coord *lifecycle.Coordinator,
	cartRepo cart.Repository,
	productRepo product.Repository,
	resRepo reservation.Repository,
	log *zap.Logger,
) *Service {
	return &Service{
		txManager:   txManager,
		coord:       coord,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		resRepo:     resRepo,
		log:         log,
		now:         time.Now,
	}
}

// WithClock 替换时钟(测试用)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddItem 加入购物车
// 已有活跃持有时叠加数量(取消旧持有+按合计数量新建);
// 库存不足时整个事务回滚,原持有和购物车行都保持原样
func (s *Service) AddItem(ctx context.Context, userID, productID uint, quantity int) (*cart.Item, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, product.ErrProductInactive
	}

	var result *cart.Item
	err = s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		now := s.now()
		price := p.EffectivePrice(now)

		item, err := s.cartRepo.FindByUserAndProduct(txCtx, userID, productID)
		switch {
		case err == nil:
			// 已有行:活跃持有叠加数量,死行按新数量重建
			total := quantity
			if old, ferr := s.resRepo.FindByID(txCtx, item.ReservationID); ferr == nil && old.IsHolding(now) {
				total += old.Quantity
				if cerr := s.coord.Cancel(txCtx, userID, item.ReservationID); cerr != nil {
					return cerr
				}
			}
			res, cerr := s.coord.CreateHold(txCtx, userID, productID, total, reservation.StatusCart)
			if cerr != nil {
				return cerr
			}
			item.Rebind(res.ID, price)
			if serr := s.cartRepo.Save(txCtx, item); serr != nil {
				return serr
			}
			result = item
			return nil

		case errors.Is(err, cart.ErrItemNotFound):
			res, cerr := s.coord.CreateHold(txCtx, userID, productID, quantity, reservation.StatusCart)
			if cerr != nil {
				return cerr
			}
			item = cart.NewItem(userID, productID, res.ID, price)
			if serr := s.cartRepo.Create(txCtx, item); serr != nil {
				return serr
			}
			result = item
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("商品已加入购物车",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return result, nil
}

// UpdateItem 修改购物车行数量
// newQuantity为0等价于删除该行
func (s *Service) UpdateItem(ctx context.Context, userID, productID uint, newQuantity int) error {
	if newQuantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	return s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		item, err := s.cartRepo.FindByUserAndProduct(txCtx, userID, productID)
		if err != nil {
			return err
		}

		now := s.now()
		if old, ferr := s.resRepo.FindByID(txCtx, item.ReservationID); ferr == nil && old.IsHolding(now) {
			if cerr := s.coord.Cancel(txCtx, userID, item.ReservationID); cerr != nil {
				return cerr
			}
		}

		res, err := s.coord.CreateHold(txCtx, userID, productID, newQuantity, reservation.StatusCart)
		if err != nil {
			return err
		}

		item.Rebind(res.ID, p.EffectivePrice(now))
		return s.cartRepo.Save(txCtx, item)
	})
}

// RemoveItem 从购物车移除
func (s *Service) RemoveItem(ctx context.Context, userID, productID uint) error {
	return s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		item, err := s.cartRepo.FindByUserAndProduct(txCtx, userID, productID)
		if err != nil {
			return err
		}

		if old, ferr := s.resRepo.FindByID(txCtx, item.ReservationID); ferr == nil && old.IsHolding(s.now()) {
			if cerr := s.coord.Cancel(txCtx, userID, item.ReservationID); cerr != nil {
				return cerr
			}
		}
		return s.cartRepo.Delete(txCtx, userID, productID)
	})
}

// LineReport 购物车行校验报告
type LineReport struct {
	ProductID     uint   `json:"product_id"`
	ProductName   string `json:"product_name"`
	ReservationID string `json:"reservation_id"`
	Quantity      int    `json:"quantity"`
	HoldAlive     bool   `json:"hold_alive"`               // 持有是否还有效
	ExpiresAt     string `json:"expires_at,omitempty"`     // 持有截止时间
	PriceAtAdd    int64  `json:"price_at_add"`             // 加车时价格(分)
	CurrentPrice  int64  `json:"current_price"`            // 当前生效价(分)
	PriceChanged  bool   `json:"price_changed"`            // 价格是否变动
}

// Validate 校验购物车(只读)
// 逐行上报:持有是否还活着、价格是否变了。不做任何修复动作,
// 死行的处理交给用户(重新加车)或结算流程
func (s *Service) Validate(ctx context.Context, userID uint) ([]LineReport, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reports := make([]LineReport, 0, len(items))
	for _, item := range items {
		report := LineReport{
			ProductID:     item.ProductID,
			ReservationID: item.ReservationID,
			PriceAtAdd:    item.PriceAtAdd,
		}

		if p, perr := s.productRepo.FindByID(ctx, item.ProductID); perr == nil {
			report.ProductName = p.Name
			report.CurrentPrice = p.EffectivePrice(now)
			report.PriceChanged = report.CurrentPrice != item.PriceAtAdd
		}

		if res, rerr := s.resRepo.FindByID(ctx, item.ReservationID); rerr == nil {
			report.Quantity = res.Quantity
			report.HoldAlive = res.IsHolding(now) && res.Status.IsActive()
			if report.HoldAlive && res.ExpiresAt != nil {
				report.ExpiresAt = res.ExpiresAt.Format(time.RFC3339)
			}
		}

		reports = append(reports, report)
	}
	return reports, nil
}
