package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/domain/reservation"
	"github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/pkg/metrics"
	"github.com/xiebiao/gomall/pkg/tracing"
)

// CommitSale 出库落账
// 支付成功后按已确认的预留实际扣减在库数:
// 1. 预留打上ConsumedAt(从此不占库存)
// 2. 台账Quantity扣减,写SALE流水
// 3. 重算Reserved(消费掉的预留退出汇总)
// reference是订单号,落在流水上做审计关联
func (c *Coordinator) CommitSale(ctx context.Context, reservationID, reference string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "CommitSale")
	defer span.End()

	start := time.Now()
	var lowStock *stock.Stock

	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}

		now := c.now()
		if err := res.MarkConsumed(now); err != nil {
			return err
		}
		if err := c.resRepo.Save(txCtx, res); err != nil {
			return err
		}

		if err := s.CommitSale(res.Quantity); err != nil {
			return err
		}
		if err := c.stockRepo.AddMovement(txCtx, stock.NewMovement(
			s.ProductID, stock.ChangeTypeSale, -res.Quantity, s.Quantity, reference, "system",
		)); err != nil {
			return err
		}

		if err := c.resyncReserved(txCtx, s, now); err != nil {
			return err
		}

		if s.IsLow() {
			lowStock = s
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordStockCommit(time.Since(start))

	// 低库存告警在事务提交后发送,发送失败不影响出库结果
	if lowStock != nil {
		if err := c.notifier.NotifyLowStock(ctx, lowStock.ProductID, lowStock.Available(), lowStock.LowStockThreshold); err != nil {
			c.log.Warn("低库存告警发送失败",
				zap.Uint("product_id", lowStock.ProductID),
				zap.Error(err),
			)
		} else {
			metrics.RecordLowStockAlert()
		}
	}
	return nil
}

// CompensateSale 销售冲正
// 已出库的订单被取消时回补在库数,写COMPENSATE流水
// 对应的预留已消费,保持终态不动
func (c *Coordinator) CompensateSale(ctx context.Context, reservationID, reference string) error {
	return c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		res, s, err := c.loadAndLock(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != reservation.StatusConfirmed || res.ConsumedAt == nil {
			return reservation.ErrInvalidStatusTransition
		}

		if err := s.Adjust(res.Quantity); err != nil {
			return err
		}
		if err := c.stockRepo.AddMovement(txCtx, stock.NewMovement(
			s.ProductID, stock.ChangeTypeCompensate, res.Quantity, s.Quantity, reference, "system",
		)); err != nil {
			return err
		}
		return c.resyncReserved(txCtx, s, c.now())
	})
}
