package dto

// ProvisionStockRequest 建账请求
type ProvisionStockRequest struct {
	ProductID         uint `json:"product_id" binding:"required"`
	Quantity          int  `json:"quantity" binding:"gte=0"`
	LowStockThreshold int  `json:"low_stock_threshold" binding:"gte=0"`
}

// AdjustStockRequest 库存调整请求
// delta为正是入库(采购、退货),为负是核减(盘亏、报废)
type AdjustStockRequest struct {
	Delta     int    `json:"delta" binding:"required"`
	Reason    string `json:"reason" binding:"required,oneof=PURCHASE RETURN CORRECTION DAMAGE EXPIRED"`
	Reference string `json:"reference" binding:"required,max=64"`
}

// MovementsQuery 流水查询参数
type MovementsQuery struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}
