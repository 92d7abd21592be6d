package order

import (
	"time"
)

// Status 订单状态
// 教学要点:
// 1. 使用string类型,回调方和运营后台都直接看状态值,可读性优先
// 2. 状态机集中在transitions表,所有转换必须走CanTransitionTo
type Status string

const (
	// StatusCreated 已创建,等待支付结果
	StatusCreated Status = "CREATED"
	// StatusPaymentCompleted 支付成功,库存已出库
	StatusPaymentCompleted Status = "PAYMENT_COMPLETED"
	// StatusFailed 支付失败,预留已回退购物车
	StatusFailed Status = "FAILED"
	// StatusCancelled 已取消(终态)
	StatusCancelled Status = "CANCELLED"
	// StatusShipped 已发货
	StatusShipped Status = "SHIPPED"
	// StatusCompleted 已完成(终态)
	StatusCompleted Status = "COMPLETED"
)

// transitions 合法的状态转换表
var transitions = map[Status][]Status{
	StatusCreated:          {StatusPaymentCompleted, StatusFailed, StatusCancelled},
	StatusPaymentCompleted: {StatusShipped, StatusCancelled},
	StatusFailed:           {StatusCancelled},
	StatusShipped:          {StatusCompleted},
	StatusCancelled:        {},
	StatusCompleted:        {},
}

// Order 订单实体(聚合根)
// 教学要点:
// 1. Order是聚合根,OrderItem是子实体,必须通过Order访问
// 2. Total是下单时刻的金额快照,商品后续改价不影响历史订单
// 3. 每个明细行绑定一条已确认的预留,支付成功时按预留出库
type Order struct {
	ID              uint
	OrderNo         string // 订单号(业务主键,全局唯一)
	UserID          uint
	Total           int64  // 订单总金额(分),快照
	Status          Status
	ShippingAddress string
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item 订单明细项
// Price是下单时的生效单价快照(含折扣窗口判定)
type Item struct {
	ID            uint
	OrderID       uint
	ProductID     uint
	ReservationID string // 绑定的预留UUID
	Quantity      int
	Price         int64 // 下单时单价(分)
}

// NewOrder 创建新订单(工厂方法)
// 初始状态为CREATED,总额由明细行算出,不接受外部传入
func NewOrder(orderNo string, userID uint, shippingAddress string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrInvalidOrderItems
	}
	var total int64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		total += item.Price * int64(item.Quantity)
	}
	now := time.Now()
	return &Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Total:           total,
		Status:          StatusCreated,
		ShippingAddress: shippingAddress,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CanTransitionTo 检查是否可以转换到目标状态
func (o *Order) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 状态转换
func (o *Order) TransitionTo(target Status) error {
	if !o.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// CompletePayment 支付成功(领域行为)
func (o *Order) CompletePayment() error {
	return o.TransitionTo(StatusPaymentCompleted)
}

// FailPayment 支付失败(领域行为)
func (o *Order) FailPayment() error {
	return o.TransitionTo(StatusFailed)
}

// Cancel 取消订单(领域行为)
func (o *Order) Cancel() error {
	return o.TransitionTo(StatusCancelled)
}

// Ship 发货(领域行为)
func (o *Order) Ship() error {
	return o.TransitionTo(StatusShipped)
}

// Complete 完成订单(领域行为)
func (o *Order) Complete() error {
	return o.TransitionTo(StatusCompleted)
}
