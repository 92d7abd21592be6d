// Package lifecycle 实现预留生命周期协调器
//
// 所有会改变"谁占着多少库存"的操作都从这里走,并且每个操作都在
// 一个数据库事务内完成三件事:
// 1. SELECT FOR UPDATE锁定商品的库存台账行(串行化同商品的变更)
// 2. 读/写预留行
// 3. 用预留表的占用汇总重算台账的Reserved缓存并回写
//
// 可用性判断永远基于锁内重算的汇总,而不是台账缓存,
// 这样即使缓存曾经失真,也会在下一次操作时被修复。
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/domain/reservation"
	"github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/infrastructure/config"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/metrics"
	"github.com/xiebiao/gomall/pkg/tracing"
)

const tracerName = "lifecycle"

// Coordinator 预留生命周期协调器
type Coordinator struct {
	txManager *mysql.TxManager
	stockRepo stock.Repository
	resRepo   reservation.Repository
	notifier  stock.Notifier
	cartTTL   time.Duration
	coTTL     time.Duration

	// reclaimBatch限制单商品单次回收事务处理的行数
	reclaimBatch int
	log          *zap.Logger

	// now可注入,测试中用固定时钟驱动过期
	now func() time.Time
}

// NewCoordinator 创建协调器
func NewCoordinator(
	txManager *mysql.TxManager,
	stockRepo stock.Repository,
	resRepo reservation.Repository,
	notifier stock.Notifier,
	cfg config.ReservationConfig,
	log *zap.Logger,
) *Coordinator {
	reclaimBatch := cfg.ReclaimBatch
	if reclaimBatch <= 0 {
		reclaimBatch = 200
	}
	return &Coordinator{
		txManager:    txManager,
		stockRepo:    stockRepo,
		resRepo:      resRepo,
		notifier:     notifier,
		cartTTL:      cfg.CartTTL,
		coTTL:        cfg.CheckoutTTL,
		reclaimBatch: reclaimBatch,
		log:          log,
		now:          time.Now,
	}
}

// WithClock 替换时钟(测试用)
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// ttlFor 按状态取持有时长
func (c *Coordinator) ttlFor(status reservation.Status) time.Duration {
	if status == reservation.StatusCheckout {
		return c.coTTL
	}
	return c.cartTTL
}

// resyncReserved 用预留表的占用汇总重算并回写台账Reserved
// 必须在持有台账行锁的事务内调用
func (c *Coordinator) resyncReserved(ctx context.Context, s *stock.Stock, now time.Time) error {
	sum, err := c.resRepo.HoldingSumByProduct(ctx, s.ProductID, now)
	if err != nil {
		return err
	}
	if err := s.SetReserved(sum); err != nil {
		return err
	}
	return c.stockRepo.Save(ctx, s)
}

// verifyOwner 预留归属校验
func verifyOwner(res *reservation.Reservation, userID uint) error {
	if res.UserID != userID {
		return apperrors.ErrForbidden
	}
	return nil
}

// CreateHold 创建持有
// status为CART或CHECKOUT;可用性在锁内基于汇总重算,
// 不够时整个事务回滚,预留不会出现"挂出来又删掉"的中间态
func (c *Coordinator) CreateHold(ctx context.Context, userID, productID uint, quantity int, status reservation.Status) (*reservation.Reservation, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "CreateHold")
	defer span.End()

	var created *reservation.Reservation

	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		s, err := c.stockRepo.LockByProduct(txCtx, productID)
		if err != nil {
			return err
		}

		now := c.now()
		sum, err := c.resRepo.HoldingSumByProduct(txCtx, productID, now)
		if err != nil {
			return err
		}

		if s.Quantity-sum < quantity {
			metrics.RecordOversellRejected()
			return stock.ErrInsufficientStock
		}

		res, err := reservation.New(userID, productID, quantity, status, c.ttlFor(status), now)
		if err != nil {
			return err
		}
		if err := c.resRepo.Create(txCtx, res); err != nil {
			return err
		}

		// 新预留已入表,汇总 = sum + quantity
		if err := s.SetReserved(sum + quantity); err != nil {
			return err
		}
		if err := c.stockRepo.Save(txCtx, s); err != nil {
			return err
		}

		created = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReservationCreated(string(created.Status))
	return created, nil
}

// ExtendHold 续期持有
// TTL按当前状态取(CART用购物车时长,CHECKOUT用结算时长)
func (c *Coordinator) ExtendHold(ctx context.Context, userID uint, reservationID string) (*reservation.Reservation, error) {
	var extended *reservation.Reservation

	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := verifyOwner(res, userID); err != nil {
			return err
		}

		now := c.now()
		if err := res.Extend(c.ttlFor(res.Status), now); err != nil {
			return err
		}
		if err := c.resRepo.Save(txCtx, res); err != nil {
			return err
		}

		extended = res
		return c.resyncReserved(txCtx, s, now)
	})
	if err != nil {
		return nil, err
	}
	return extended, nil
}

// ConvertToCheckout 购物车持有转结算持有
func (c *Coordinator) ConvertToCheckout(ctx context.Context, userID uint, reservationID string) (*reservation.Reservation, error) {
	var converted *reservation.Reservation

	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := verifyOwner(res, userID); err != nil {
			return err
		}

		now := c.now()
		if err := res.ConvertToCheckout(c.coTTL, now); err != nil {
			return err
		}
		if err := c.resRepo.Save(txCtx, res); err != nil {
			return err
		}

		converted = res
		return c.resyncReserved(txCtx, s, now)
	})
	if err != nil {
		return nil, err
	}
	return converted, nil
}

// RevertToCart 回退为购物车持有
// 结算中止(CHECKOUT)和支付失败(未消费的CONFIRMED)都走这里,重新按购物车TTL计时
func (c *Coordinator) RevertToCart(ctx context.Context, userID uint, reservationID string) (*reservation.Reservation, error) {
	var reverted *reservation.Reservation

	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := verifyOwner(res, userID); err != nil {
			return err
		}

		now := c.now()
		if err := res.RevertToCart(c.cartTTL, now); err != nil {
			return err
		}
		if err := c.resRepo.Save(txCtx, res); err != nil {
			return err
		}

		reverted = res
		return c.resyncReserved(txCtx, s, now)
	})
	if err != nil {
		return nil, err
	}
	return reverted, nil
}

// Confirm 确认预留(下单锁定)
// 只接受CHECKOUT状态;幂等,重复确认直接成功
func (c *Coordinator) Confirm(ctx context.Context, userID uint, reservationID string) (*reservation.Reservation, error) {
	var confirmed *reservation.Reservation

	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := verifyOwner(res, userID); err != nil {
			return err
		}

		now := c.now()
		if err := res.Confirm(now); err != nil {
			return err
		}
		if err := c.resRepo.Save(txCtx, res); err != nil {
			return err
		}

		confirmed = res
		return c.resyncReserved(txCtx, s, now)
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Cancel 取消持有并释放占用
func (c *Coordinator) Cancel(ctx context.Context, userID uint, reservationID string) error {
	return c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := verifyOwner(res, userID); err != nil {
			return err
		}

		now := c.now()
		if err := res.Cancel(now); err != nil {
			return err
		}
		if err := c.resRepo.Save(txCtx, res); err != nil {
			return err
		}
		return c.resyncReserved(txCtx, s, now)
	})
}

// loadAndLock 加载预留并锁定其商品的台账行
// 锁定后重新读一次预留,保证读到的是锁内最新版本
func (c *Coordinator) loadAndLock(ctx context.Context, reservationID string) (*reservation.Reservation, *stock.Stock, error) {
	res, err := c.resRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}

	s, err := c.stockRepo.LockByProduct(ctx, res.ProductID)
	if err != nil {
		return nil, nil, err
	}

	// 拿锁前的读可能已过时,锁内重读
	res, err = c.resRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, nil, err
	}
	return res, s, nil
}
