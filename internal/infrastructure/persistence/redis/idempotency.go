package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// IdempotencyStore 支付回调幂等存储
// 网关可能对同一笔支付结果重复回调,用SETNX打标挡掉重复处理
// Key设计: payment:callback:{order_no}:{result}
//
// 注意这只是快速路径:Redis标记丢失时(过期、主从切换),
// 最终兜底是订单状态机本身拒绝重复转换
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore 创建幂等存储
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		ttl:    24 * time.Hour,
	}
}

// MarkProcessed 尝试打标
// 返回true表示首次处理,false表示该回调已处理过
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, orderNo, result string) (bool, error) {
	key := fmt.Sprintf("payment:callback:%s:%s", orderNo, result)
	ok, err := s.client.SetNX(ctx, key, time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "写入回调幂等标记失败")
	}
	return ok, nil
}

// Release 撤销打标
// 回调处理失败需要允许网关重试时调用
func (s *IdempotencyStore) Release(ctx context.Context, orderNo, result string) error {
	key := fmt.Sprintf("payment:callback:%s:%s", orderNo, result)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, "删除回调幂等标记失败")
	}
	return nil
}
