// Package product 商品目录用例
package product

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/gomall/internal/domain/product"
)

// Service 商品目录服务
type Service struct {
	repo product.Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService 创建商品目录服务
func NewService(repo product.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// WithClock 替换时钟(测试用)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create 创建商品
func (s *Service) Create(ctx context.Context, sku, name, description, unit string, price int64) (*product.Product, error) {
	p, err := product.NewProduct(sku, name, description, unit, price)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("商品已创建", zap.Uint("product_id", p.ID), zap.String("sku", sku))
	return p, nil
}

// Detail 商品详情视图,附当前生效价
type Detail struct {
	*product.Product
	EffectivePrice int64 `json:"effective_price"`
}

// Get 查询商品
func (s *Service) Get(ctx context.Context, id uint) (*Detail, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Product: p, EffectivePrice: p.EffectivePrice(s.now())}, nil
}

// List 分页查询商品
func (s *Service) List(ctx context.Context, params product.ListParams) ([]*Detail, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	details := make([]*Detail, 0, len(items))
	for _, p := range items {
		details = append(details, &Detail{Product: p, EffectivePrice: p.EffectivePrice(now)})
	}
	return details, total, nil
}

// UpdatePrice 调整标价
func (s *Service) UpdatePrice(ctx context.Context, id uint, price int64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.UpdatePrice(price); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// SetDiscount 设置折扣窗口
func (s *Service) SetDiscount(ctx context.Context, id uint, price int64, from, until time.Time) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.SetDiscount(price, from, until); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// ClearDiscount 清除折扣
func (s *Service) ClearDiscount(ctx context.Context, id uint) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.ClearDiscount()
	return s.repo.Update(ctx, p)
}

// SetActive 上架/下架
func (s *Service) SetActive(ctx context.Context, id uint, active bool) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if active {
		p.Activate()
	} else {
		p.Deactivate()
	}
	return s.repo.Update(ctx, p)
}
