package dto

// CreateOrderRequest 下单请求
// 明细直接引用结算阶段产出的预留ID
type CreateOrderRequest struct {
	ReservationIDs  []string `json:"reservation_ids" binding:"required,min=1,dive,uuid"`
	ShippingAddress string   `json:"shipping_address" binding:"required,max=256"`
}

// PaymentCallbackRequest 支付网关回调
// result取值:SUCCESS / FAILED
type PaymentCallbackRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
	Result  string `json:"result" binding:"required,oneof=SUCCESS FAILED"`
}

// ListOrdersQuery 订单列表查询参数
type ListOrdersQuery struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}
