package reservation

// Status 预留状态
// 教学要点:
// 1. 使用string类型(排查线上数据时可读性优先于存储空间)
// 2. 状态机集中在transitions表,所有转换必须走CanTransitionTo
type Status string

const (
	// StatusCart 购物车持有:弱持有,带较长TTL,可续期
	StatusCart Status = "CART"
	// StatusCheckout 结算持有:强持有,带较短TTL,可续期
	StatusCheckout Status = "CHECKOUT"
	// StatusConfirmed 已确认:订单已锁定该预留,无TTL,等待出库消费;
	// 支付失败时未消费的持有可退回CART
	StatusConfirmed Status = "CONFIRMED"
	// StatusCancelled 已取消:终态
	StatusCancelled Status = "CANCELLED"
)

// transitions 合法的状态转换表
// CART不能直接到CONFIRMED:下单必须先经过结算转换
// CONFIRMED可回CART:支付失败时持有退回购物车,不白白作废
var transitions = map[Status][]Status{
	StatusCart:      {StatusCheckout, StatusCancelled},
	StatusCheckout:  {StatusCart, StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCart, StatusCancelled},
	StatusCancelled: {},
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsActive 是否为带TTL的活跃持有状态
func (s Status) IsActive() bool {
	return s == StatusCart || s == StatusCheckout
}

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusCancelled
}
