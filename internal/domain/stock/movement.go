package stock

import (
	"time"
)

// ChangeType 库存变动类型
type ChangeType string

const (
	// ChangeTypeProvision 初始建账入库
	ChangeTypeProvision ChangeType = "PROVISION"
	// ChangeTypeSale 销售出库(确认的预留被消费)
	ChangeTypeSale ChangeType = "SALE"
	// ChangeTypeCompensate 销售冲正(已出库订单取消后回补)
	ChangeTypeCompensate ChangeType = "COMPENSATE"
	// ChangeTypeAdjust 人工盘点调整
	ChangeTypeAdjust ChangeType = "ADJUST"
)

// AdjustReason 盘点调整事由
// 审计时区分进货、退货回补、纠错、报损、过期报废
type AdjustReason string

const (
	ReasonPurchase   AdjustReason = "PURCHASE"
	ReasonReturn     AdjustReason = "RETURN"
	ReasonCorrection AdjustReason = "CORRECTION"
	ReasonDamage     AdjustReason = "DAMAGE"
	ReasonExpired    AdjustReason = "EXPIRED"
)

// Valid 是否为已定义的调整事由
func (r AdjustReason) Valid() bool {
	switch r {
	case ReasonPurchase, ReasonReturn, ReasonCorrection, ReasonDamage, ReasonExpired:
		return true
	}
	return false
}

// Movement 库存变动流水
// 审计用途:每次Quantity变化记一条,按时间可重放出任意时刻的在库数
// 只追加不修改
type Movement struct {
	ID        uint
	ProductID uint
	Type      ChangeType
	Reason    AdjustReason // 调整事由,仅ADJUST类型有值
	Delta     int          // 本次变动量(正为入库,负为出库)
	After     int          // 变动后的在库数
	Reference string       // 业务单据号(订单号、预留ID、盘点单号)
	Operator  string       // 操作来源(system、回调方、管理员账号)
	CreatedAt time.Time
}

// NewMovement 创建变动流水
func NewMovement(productID uint, t ChangeType, delta, after int, reference, operator string) *Movement {
	return &Movement{
		ProductID: productID,
		Type:      t,
		Delta:     delta,
		After:     after,
		Reference: reference,
		Operator:  operator,
		CreatedAt: time.Now(),
	}
}

// NewAdjustMovement 创建盘点调整流水(带事由)
func NewAdjustMovement(productID uint, reason AdjustReason, delta, after int, reference, operator string) *Movement {
	m := NewMovement(productID, ChangeTypeAdjust, delta, after, reference, operator)
	m.Reason = reason
	return m
}
