package handler

import (
	"github.com/gin-gonic/gin"

	appcart "github.com/xiebiao/gomall/internal/application/cart"
	appcheckout "github.com/xiebiao/gomall/internal/application/checkout"
	"github.com/xiebiao/gomall/internal/interface/http/dto"
	"github.com/xiebiao/gomall/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/response"
)

// CartHandler 购物车与结算HTTP处理器
type CartHandler struct {
	cartService     *appcart.Service
	checkoutService *appcheckout.Service
}

// NewCartHandler 创建购物车处理器
func NewCartHandler(cartService *appcart.Service, checkoutService *appcheckout.Service) *CartHandler {
	return &CartHandler{
		cartService:     cartService,
		checkoutService: checkoutService,
	}
}

// AddItem 加入购物车
// @Summary      加入购物车
// @Tags         购物车
// @Security     BearerAuth
// @Param        request body dto.AddCartItemRequest true "商品和数量"
// @Success      200 {object} response.Response
// @Router       /api/v1/cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)
	item, err := h.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, item)
}

// UpdateItem 修改购物车行数量
// @Summary      修改购物车行数量
// @Tags         购物车
// @Security     BearerAuth
// @Param        product_id path int true "商品ID"
// @Param        request body dto.UpdateCartItemRequest true "新数量,0表示删除"
// @Success      200 {object} response.Response
// @Router       /api/v1/cart/items/{product_id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID := parseUintParam(c, "product_id")
	if productID == 0 {
		return
	}

	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)
	if err := h.cartService.UpdateItem(c.Request.Context(), userID, productID, *req.Quantity); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveItem 从购物车移除
// @Summary      从购物车移除
// @Tags         购物车
// @Security     BearerAuth
// @Param        product_id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/cart/items/{product_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID := parseUintParam(c, "product_id")
	if productID == 0 {
		return
	}

	userID := middleware.MustGetUserID(c)
	if err := h.cartService.RemoveItem(c.Request.Context(), userID, productID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Validate 校验购物车
// @Summary      校验购物车(持有有效性和价格变动)
// @Tags         购物车
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/cart [get]
func (h *CartHandler) Validate(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	reports, err := h.cartService.Validate(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": reports})
}

// Checkout 发起结算
// @Summary      发起结算,购物车持有整体转入结算状态
// @Tags         购物车
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/checkout [post]
func (h *CartHandler) Checkout(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	lines, err := h.checkoutService.Start(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"lines": lines})
}
