package product

import (
	"time"
)

// Product 商品实体(聚合根)
// DDD设计说明:
// 1. Product只承载商品目录信息(名称、价格、折扣),不持有库存数量
// 2. 库存数量归stock聚合管理,两者通过ProductID关联
// 3. 价格使用int64存储"分"为单位(避免浮点数精度问题)
// 4. SKU作为业务唯一标识(数据库层保证唯一性)
type Product struct {
	ID          uint
	SKU         string // 商品编码(业务唯一标识)
	Name        string // 商品名称
	Description string // 商品描述
	Unit        string // 计量单位(件、箱、千克)
	Price       int64  // 标价(单位:分,1元=100分)

	// 折扣窗口:在[DiscountFrom, DiscountUntil)内生效折扣价
	// DiscountPrice为nil表示无折扣
	DiscountPrice *int64
	DiscountFrom  *time.Time
	DiscountUntil *time.Time

	Active    bool // 是否上架
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct 创建新商品(工厂方法)
func NewProduct(sku, name, description, unit string, price int64) (*Product, error) {
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	now := time.Now()
	return &Product{
		SKU:         sku,
		Name:        name,
		Description: description,
		Unit:        unit,
		Price:       price,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// EffectivePrice 计算当前生效价格(领域行为)
// 折扣窗口内返回折扣价,否则返回标价
func (p *Product) EffectivePrice(now time.Time) int64 {
	if p.DiscountPrice == nil {
		return p.Price
	}
	if p.DiscountFrom != nil && now.Before(*p.DiscountFrom) {
		return p.Price
	}
	if p.DiscountUntil != nil && !now.Before(*p.DiscountUntil) {
		return p.Price
	}
	return *p.DiscountPrice
}

// UpdatePrice 更新标价
// 业务规则:价格必须>0
func (p *Product) UpdatePrice(newPrice int64) error {
	if newPrice <= 0 {
		return ErrInvalidPrice
	}
	p.Price = newPrice
	p.UpdatedAt = time.Now()
	return nil
}

// SetDiscount 设置折扣窗口
// 业务规则:折扣价必须>0且低于标价,窗口起止时间必须有序
func (p *Product) SetDiscount(price int64, from, until time.Time) error {
	if price <= 0 || price >= p.Price {
		return ErrInvalidDiscount
	}
	if !until.After(from) {
		return ErrInvalidDiscount
	}
	p.DiscountPrice = &price
	p.DiscountFrom = &from
	p.DiscountUntil = &until
	p.UpdatedAt = time.Now()
	return nil
}

// ClearDiscount 清除折扣
func (p *Product) ClearDiscount() {
	p.DiscountPrice = nil
	p.DiscountFrom = nil
	p.DiscountUntil = nil
	p.UpdatedAt = time.Now()
}

// Deactivate 下架商品
// 下架后不可加入购物车,已有预留不受影响
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
}

// Activate 上架商品
func (p *Product) Activate() {
	p.Active = true
	p.UpdatedAt = time.Now()
}
