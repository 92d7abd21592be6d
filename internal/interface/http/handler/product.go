package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appproduct "github.com/xiebiao/gomall/internal/application/product"
	"github.com/xiebiao/gomall/internal/domain/product"
	"github.com/xiebiao/gomall/internal/interface/http/dto"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/response"
)

// ProductHandler 商品HTTP处理器
type ProductHandler struct {
	productService *appproduct.Service
}

// NewProductHandler 创建商品处理器
func NewProductHandler(productService *appproduct.Service) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// Create 创建商品
// @Summary      创建商品
// @Tags         商品
// @Security     BearerAuth
// @Param        request body dto.CreateProductRequest true "商品信息"
// @Success      200 {object} response.Response
// @Router       /api/v1/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	p, err := h.productService.Create(c.Request.Context(), req.SKU, req.Name, req.Description, req.Unit, req.Price)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// Get 商品详情
// @Summary      商品详情
// @Tags         商品
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	detail, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// List 商品列表
// @Summary      商品列表
// @Tags         商品
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Param        keyword query string false "搜索关键词"
// @Param        only_on query bool false "只看上架商品"
// @Success      200 {object} response.Response
// @Router       /api/v1/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var query dto.ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	items, total, err := h.productService.List(c.Request.Context(), product.ListParams{
		Page:     query.Page,
		PageSize: query.PageSize,
		Keyword:  query.Keyword,
		OnlyOn:   query.OnlyOn,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": items, "total": total})
}

// UpdatePrice 调整标价
// @Summary      调整标价
// @Tags         商品
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Param        request body dto.UpdatePriceRequest true "新价格(分)"
// @Success      200 {object} response.Response
// @Router       /api/v1/products/{id}/price [put]
func (h *ProductHandler) UpdatePrice(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	if err := h.productService.UpdatePrice(c.Request.Context(), id, req.Price); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetDiscount 设置折扣窗口
// @Summary      设置折扣窗口
// @Tags         商品
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Param        request body dto.SetDiscountRequest true "折扣信息"
// @Success      200 {object} response.Response
// @Router       /api/v1/products/{id}/discount [put]
func (h *ProductHandler) SetDiscount(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	var req dto.SetDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	from, err := time.Parse(time.RFC3339, req.From)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "from时间格式错误")
		return
	}
	until, err := time.Parse(time.RFC3339, req.Until)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "until时间格式错误")
		return
	}

	if err := h.productService.SetDiscount(c.Request.Context(), id, req.Price, from, until); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ClearDiscount 清除折扣
// @Summary      清除折扣
// @Tags         商品
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/products/{id}/discount [delete]
func (h *ProductHandler) ClearDiscount(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.productService.ClearDiscount(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Activate 上架
// @Summary      商品上架
// @Tags         商品
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate 下架
// @Summary      商品下架
// @Tags         商品
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/products/{id}/deactivate [post]
func (h *ProductHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ProductHandler) setActive(c *gin.Context, active bool) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.productService.SetActive(c.Request.Context(), id, active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// parseUintParam 解析路径上的数字参数,失败时已写入响应并返回0
func parseUintParam(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "非法的"+name+"参数")
		return 0
	}
	return uint(v)
}
