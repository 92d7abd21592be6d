package dto

// CreateProductRequest 创建商品请求
// 价格一律用分,避免浮点
type CreateProductRequest struct {
	SKU         string `json:"sku" binding:"required,max=64"`
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=1024"`
	Unit        string `json:"unit" binding:"required,max=16"`
	Price       int64  `json:"price" binding:"required,gt=0"`
}

// UpdatePriceRequest 调价请求
type UpdatePriceRequest struct {
	Price int64 `json:"price" binding:"required,gt=0"`
}

// SetDiscountRequest 设置折扣请求
// 时间为RFC3339格式
type SetDiscountRequest struct {
	Price int64  `json:"price" binding:"required,gt=0"`
	From  string `json:"from" binding:"required"`
	Until string `json:"until" binding:"required"`
}

// ListProductsQuery 商品列表查询参数
type ListProductsQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Keyword  string `form:"keyword"`
	OnlyOn   bool   `form:"only_on"`
}
