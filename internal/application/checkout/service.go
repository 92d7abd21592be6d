// Package checkout 结算编排
//
// 把购物车里的CART持有整体推进到CHECKOUT。任何一行失败都要把
// 已推进的行退回去,不允许出现"半个购物车进了结算"的中间态,
// 所以用Saga逐行登记补偿动作。
package checkout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/application/lifecycle"
	"github.com/xiebiao/gomall/internal/domain/cart"
	"github.com/xiebiao/gomall/internal/domain/reservation"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/saga"
)

const sagaTimeout = 15 * time.Second

// Line 结算结果中的一行
type Line struct {
	ProductID     uint   `json:"product_id"`
	ReservationID string `json:"reservation_id"`
	Quantity      int    `json:"quantity"`
	ExpiresAt     string `json:"expires_at"`
	Refreshed     bool   `json:"refreshed"` // 原持有已失效,本次重新占用
}

// Service 结算服务
type Service struct {
	coord    *lifecycle.Coordinator
	cartRepo cart.Repository
	resRepo  reservation.Repository
	log      *zap.Logger
	now      func() time.Time
}

// NewService 创建结算服务
func NewService(
	coord *lifecycle.Coordinator,
	cartRepo cart.Repository,
	resRepo reservation.Repository,
	log *zap.Logger,
) *Service {
	return &Service{
		coord:    coord,
		cartRepo: cartRepo,
		resRepo:  resRepo,
		log:      log,
		now:      time.Now,
	}
}

// WithClock 替换时钟(测试用)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start 发起结算
// 逐行把CART持有转为CHECKOUT;行持有已失效时按原数量重新抢占。
// 任何一行失败,Saga按登记逆序回退已转换的行
func (s *Service) Start(ctx context.Context, userID uint) ([]Line, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "购物车为空")
	}

	lines := make([]Line, 0, len(items))
	sg := saga.NewSaga(sagaTimeout, s.log)

	for _, item := range items {
		item := item
		sg.AddStep("checkout:"+item.ReservationID,
			func(stepCtx context.Context) error {
				line, err := s.convertLine(stepCtx, userID, item)
				if err != nil {
					return err
				}
				lines = append(lines, *line)
				return nil
			},
			func(stepCtx context.Context) error {
				return s.revertLine(stepCtx, userID, item)
			},
		)
	}

	if err := sg.Execute(ctx); err != nil {
		s.log.Warn("结算失败,已回退",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("结算就绪",
		zap.Uint("user_id", userID),
		zap.Int("lines", len(lines)),
	)
	return lines, nil
}

// convertLine 推进单行
// 持有还活着就状态转换;已失效就按原数量重新建CHECKOUT持有,
// 此时库存要重新过可用量校验,抢不到就整单失败
func (s *Service) convertLine(ctx context.Context, userID uint, item *cart.Item) (*Line, error) {
	old, err := s.resRepo.FindByID(ctx, item.ReservationID)
	if err != nil {
		return nil, err
	}
	if old.UserID != userID {
		return nil, apperrors.ErrForbidden
	}

	if old.IsHolding(s.now()) && old.Status == reservation.StatusCart {
		res, err := s.coord.ConvertToCheckout(ctx, userID, item.ReservationID)
		if err != nil {
			return nil, err
		}
		return s.buildLine(res, false), nil
	}

	res, err := s.coord.CreateHold(ctx, userID, item.ProductID, old.Quantity, reservation.StatusCheckout)
	if err != nil {
		return nil, err
	}
	item.Rebind(res.ID, item.PriceAtAdd)
	if err := s.cartRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	return s.buildLine(res, true), nil
}

// revertLine 回退单行
// 转换过的退回CART,本次新建的直接取消
func (s *Service) revertLine(ctx context.Context, userID uint, item *cart.Item) error {
	res, err := s.resRepo.FindByID(ctx, item.ReservationID)
	if err != nil {
		return err
	}
	if res.Status != reservation.StatusCheckout {
		return nil
	}
	if _, err := s.coord.RevertToCart(ctx, userID, item.ReservationID); err != nil {
		return s.coord.Cancel(ctx, userID, item.ReservationID)
	}
	return nil
}

func (s *Service) buildLine(res *reservation.Reservation, refreshed bool) *Line {
	line := &Line{
		ProductID:     res.ProductID,
		ReservationID: res.ID,
		Quantity:      res.Quantity,
		Refreshed:     refreshed,
	}
	if res.ExpiresAt != nil {
		line.ExpiresAt = res.ExpiresAt.Format(time.RFC3339)
	}
	return line
}
