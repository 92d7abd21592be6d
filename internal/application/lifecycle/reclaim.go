package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/pkg/metrics"
	"github.com/xiebiao/gomall/pkg/tracing"
)

// ReclaimExpired 回收过期持有
// 过期预留在所有读路径上早已不可见(惰性过期),这次扫描只是把
// 行状态落成CANCELLED并修复台账缓存。幂等:重复执行没有额外效果。
//
// 每个商品一个事务,单个商品失败不影响其余商品。
// 返回本次实际回收的预留行数。
func (c *Coordinator) ReclaimExpired(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ReclaimExpired")
	defer span.End()

	productIDs, err := c.resRepo.ListProductsWithExpired(ctx, c.now())
	if err != nil {
		return 0, err
	}

	total := 0
	for _, productID := range productIDs {
		n, err := c.reclaimProduct(ctx, productID)
		if err != nil {
			c.log.Error("回收过期预留失败",
				zap.Uint("product_id", productID),
				zap.Error(err),
			)
			continue
		}
		total += n
	}

	metrics.RecordReservationsReclaimed(total)
	return total, nil
}

// reclaimProduct 回收单个商品的过期预留
func (c *Coordinator) reclaimProduct(ctx context.Context, productID uint) (int, error) {
	count := 0
	err := c.txManager.Transaction(ctx, func(txCtx context.Context) error {
		s, err := c.stockRepo.LockByProduct(txCtx, productID)
		if err != nil {
			return err
		}

		now := c.now()
		expired, err := c.resRepo.FindExpiredByProduct(txCtx, productID, now, c.reclaimBatch)
		if err != nil {
			return err
		}

		for _, res := range expired {
			if err := res.Cancel(now); err != nil {
				// 并发回收可能已处理过这行,跳过
				continue
			}
			if err := c.resRepo.Save(txCtx, res); err != nil {
				return err
			}
			count++
		}

		return c.resyncReserved(txCtx, s, now)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
