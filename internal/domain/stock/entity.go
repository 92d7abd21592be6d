package stock

import (
	"time"
)

// Stock 库存台账实体(聚合根)
// DDD设计说明:
// 1. 每个商品一行台账,Quantity是实物在库数,Reserved是被预留占用数
// 2. 可售量 = Quantity - Reserved,永远不直接落库,由Available()推导
// 3. Reserved是预留表的汇总缓存,只能在事务内与预留变更一起重算
// 4. 所有数量变更必须先通过LockByProduct取得行锁,防止并发超卖
type Stock struct {
	ID        uint
	ProductID uint
	Quantity  int // 实物在库数量
	Reserved  int // 被预留占用数量(汇总缓存)

	// LowStockThreshold 低库存告警阈值,可售量低于该值时触发通知
	// 0表示不告警
	LowStockThreshold int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStock 创建库存台账(工厂方法)
// 商品上架时初始化,初始在库数可以为0
func NewStock(productID uint, quantity, lowStockThreshold int) (*Stock, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if lowStockThreshold < 0 {
		return nil, ErrInvalidThreshold
	}
	now := time.Now()
	return &Stock{
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: lowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Available 可售数量(领域行为)
// 在库数减去被预留占用数,是新预留能看到的唯一额度
func (s *Stock) Available() int {
	return s.Quantity - s.Reserved
}

// CanReserve 判断能否再预留quantity件
func (s *Stock) CanReserve(quantity int) bool {
	return quantity > 0 && s.Available() >= quantity
}

// CommitSale 出库落账(领域行为)
// 已确认的预留消费掉时调用:实物离库,Quantity减少
// Reserved的同步下调由调用方在同一事务内重算,不在这里处理
func (s *Stock) CommitSale(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if s.Quantity < quantity {
		return ErrInsufficientStock
	}
	s.Quantity -= quantity
	s.UpdatedAt = time.Now()
	return nil
}

// Adjust 调整在库数量(领域行为)
// delta为正表示入库补货,为负表示盘亏/退货出库
// 业务规则:调整后在库数不能为负,也不能低于当前被占用数
// (否则已承诺给预留的货就不存在了)
func (s *Stock) Adjust(delta int) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}
	next := s.Quantity + delta
	if next < 0 {
		return ErrInvalidQuantity
	}
	if next < s.Reserved {
		return ErrQuantityBelowReserved
	}
	s.Quantity = next
	s.UpdatedAt = time.Now()
	return nil
}

// SetReserved 重置占用数(汇总缓存回写)
// 只能由生命周期协调器在事务内用预留表的汇总值调用
func (s *Stock) SetReserved(reserved int) error {
	if reserved < 0 {
		return ErrInvalidQuantity
	}
	if reserved > s.Quantity {
		return ErrReservedExceedsQuantity
	}
	s.Reserved = reserved
	s.UpdatedAt = time.Now()
	return nil
}

// IsLow 判断是否触发低库存告警
// 可用量恰好等于阈值也算低库存
func (s *Stock) IsLow() bool {
	return s.LowStockThreshold > 0 && s.Available() <= s.LowStockThreshold
}
