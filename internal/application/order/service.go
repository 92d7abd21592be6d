// Package order 订单用例
//
// 下单是预留确认(CHECKOUT→CONFIRMED)与订单落库的一个事务;
// 支付回调是订单状态机与库存出库/回退的一个事务。
// 回调幂等靠redis处理标记挡重放,状态机兜底挡并发穿透。
package order

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/application/lifecycle"
	"github.com/xiebiao/gomall/internal/domain/cart"
	"github.com/xiebiao/gomall/internal/domain/order"
	"github.com/xiebiao/gomall/internal/domain/product"
	"github.com/xiebiao/gomall/internal/domain/reservation"
	"github.com/xiebiao/gomall/internal/infrastructure/gateway"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/metrics"
)

// 支付回调结果值,与网关约定一致
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// CallbackGuard 回调处理标记(幂等)
// redis实现:首个处理者拿到标记,重放直接短路
type CallbackGuard interface {
	MarkProcessed(ctx context.Context, orderNo, result string) (bool, error)
	Release(ctx context.Context, orderNo, result string) error
}

// Service 订单服务
type Service struct {
	txManager   *mysql.TxManager
	coord       *lifecycle.Coordinator
	orderRepo   order.Repository
	resRepo     reservation.Repository
	productRepo product.Repository
	cartRepo    cart.Repository
	payment     gateway.PaymentClient
	guard       CallbackGuard
	log         *zap.Logger
	now         func() time.Time
}

// NewService 创建订单服务
// payment和guard可以为nil(未接网关/未接redis时降级:
// 不发起支付、回调幂等只靠状态机兜底)
func NewService(
	txManager *mysql.TxManager,
	coord *lifecycle.Coordinator,
	orderRepo order.Repository,
	resRepo reservation.Repository,
	productRepo product.Repository,
	cartRepo cart.Repository,
	payment gateway.PaymentClient,
	guard CallbackGuard,
	log *zap.Logger,
) *Service {
	return &Service{
		txManager:   txManager,
		coord:       coord,
		orderRepo:   orderRepo,
		resRepo:     resRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		payment:     payment,
		guard:       guard,
		log:         log,
		now:         time.Now,
	}
}

// WithClock 替换时钟(测试用)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateResult 下单结果
type CreateResult struct {
	Order  *order.Order
	Ticket *gateway.PaymentTicket // 支付凭据,网关不可用时为nil
}

// Create 创建订单
// 每个预留必须是本人的CHECKOUT持有,确认(幂等)后按当前生效价
// 落单。订单号撞唯一约束时换号重试一次,仍冲突则放弃
func (s *Service) Create(ctx context.Context, userID uint, reservationIDs []string, shippingAddress string) (*CreateResult, error) {
	if len(reservationIDs) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")
	}

	var created *order.Order
	err := s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		now := s.now()
		items := make([]order.Item, 0, len(reservationIDs))

		for _, resID := range reservationIDs {
			res, err := s.resRepo.FindByID(txCtx, resID)
			if err != nil {
				return err
			}
			if res.UserID != userID {
				return apperrors.ErrForbidden
			}
			if res.Status != reservation.StatusCheckout {
				return apperrors.New(apperrors.ErrCodeInvalidTransition,
					"预留不在结算状态,无法下单")
			}

			p, err := s.productRepo.FindByID(txCtx, res.ProductID)
			if err != nil {
				return err
			}

			if _, err := s.coord.Confirm(txCtx, userID, resID); err != nil {
				return err
			}

			items = append(items, order.Item{
				ProductID:     res.ProductID,
				ReservationID: res.ID,
				Quantity:      res.Quantity,
				Price:         p.EffectivePrice(now),
			})
		}

		o, err := order.NewOrder(order.GenerateOrderNo(), userID, shippingAddress, items)
		if err != nil {
			return err
		}
		if err := s.orderRepo.Create(txCtx, o); err != nil {
			if !errors.Is(err, order.ErrOrderNoDuplicate) {
				return err
			}
			// 订单号冲突概率极低,换号重试一次
			o, err = order.NewOrder(order.GenerateOrderNo(), userID, shippingAddress, items)
			if err != nil {
				return err
			}
			if err := s.orderRepo.Create(txCtx, o); err != nil {
				return err
			}
		}

		s.dropCartLines(txCtx, userID, reservationIDs)
		created = o
		return nil
	})
	if err != nil {
		metrics.RecordOrderCreated(false)
		return nil, err
	}
	metrics.RecordOrderCreated(true)

	s.log.Info("订单已创建",
		zap.String("order_no", created.OrderNo),
		zap.Uint("user_id", userID),
		zap.Int64("total", created.Total),
	)

	result := &CreateResult{Order: created}
	if s.payment != nil {
		ticket, err := s.payment.InitiatePayment(ctx, created.OrderNo, created.Total)
		if err != nil {
			// 订单已落库,支付可以稍后重发起,不因网关故障回滚
			s.log.Warn("发起支付失败",
				zap.String("order_no", created.OrderNo),
				zap.Error(err),
			)
		} else {
			result.Ticket = ticket
		}
	}
	return result, nil
}

// dropCartLines 清掉已下单的购物车行(尽力而为)
func (s *Service) dropCartLines(ctx context.Context, userID uint, reservationIDs []string) {
	bound := make(map[string]struct{}, len(reservationIDs))
	for _, id := range reservationIDs {
		bound[id] = struct{}{}
	}
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return
	}
	for _, item := range items {
		if _, ok := bound[item.ReservationID]; ok {
			_ = s.cartRepo.Delete(ctx, userID, item.ProductID)
		}
	}
}

// HandlePaymentResult 处理支付回调
// 成功:逐明细出库(预留保持CONFIRMED并标记消费),订单转PAYMENT_COMPLETED;
// 失败:逐明细退回CART(持有保留,刷新TTL),订单转FAILED。
// 重放回调直接吞掉返回成功
func (s *Service) HandlePaymentResult(ctx context.Context, orderNo, result string) error {
	if result != ResultSuccess && result != ResultFailed {
		return apperrors.New(apperrors.ErrCodeInvalidParams, "未知的支付结果")
	}
	metrics.RecordPaymentCallback(result)

	if s.guard != nil {
		first, err := s.guard.MarkProcessed(ctx, orderNo, result)
		if err != nil {
			s.log.Warn("回调幂等标记失败,退化为状态机判重",
				zap.String("order_no", orderNo),
				zap.Error(err),
			)
		} else if !first {
			s.log.Info("重复的支付回调,忽略", zap.String("order_no", orderNo))
			return nil
		}
	}

	err := s.applyPaymentResult(ctx, orderNo, result)
	if err != nil && s.guard != nil {
		// 处理失败要让出标记,否则网关重试会被当成重放吞掉
		_ = s.guard.Release(ctx, orderNo, result)
	}
	return err
}

func (s *Service) applyPaymentResult(ctx context.Context, orderNo, result string) error {
	return s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.FindByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}

		// 状态机兜底:redis失效时重放会走到这里
		if o.Status != order.StatusCreated {
			s.log.Info("订单已不在待支付状态,忽略回调",
				zap.String("order_no", orderNo),
				zap.String("status", string(o.Status)),
			)
			return nil
		}

		if result == ResultSuccess {
			for _, item := range o.Items {
				if err := s.coord.CommitSale(txCtx, item.ReservationID, o.OrderNo); err != nil {
					return err
				}
			}
			if err := o.CompletePayment(); err != nil {
				return err
			}
		} else {
			for _, item := range o.Items {
				if _, err := s.coord.RevertToCart(txCtx, o.UserID, item.ReservationID); err != nil {
					return err
				}
			}
			if err := o.FailPayment(); err != nil {
				return err
			}
		}
		return s.orderRepo.Update(txCtx, o)
	})
}

// Cancel 用户取消订单
// 未支付的取消释放确认持有;已支付的取消走补偿入库(退货)
func (s *Service) Cancel(ctx context.Context, userID, orderID uint) error {
	return s.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.FindByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return apperrors.ErrForbidden
		}

		prev := o.Status
		if err := o.Cancel(); err != nil {
			return err
		}

		switch prev {
		case order.StatusPaymentCompleted:
			for _, item := range o.Items {
				if err := s.coord.CompensateSale(txCtx, item.ReservationID, o.OrderNo); err != nil {
					return err
				}
			}
		case order.StatusCreated:
			for _, item := range o.Items {
				if err := s.coord.Cancel(txCtx, userID, item.ReservationID); err != nil {
					return err
				}
			}
		default:
			// 支付失败单的持有已退回购物车,归用户自行处理
		}

		return s.orderRepo.Update(txCtx, o)
	})
}

// Get 查询订单(校验归属)
func (s *Service) Get(ctx context.Context, userID, orderID uint) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return o, nil
}

// List 分页查询用户订单
func (s *Service) List(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orderRepo.ListByUserID(ctx, userID, page, pageSize)
}
