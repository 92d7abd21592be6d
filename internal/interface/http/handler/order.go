package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/gomall/internal/application/order"
	"github.com/xiebiao/gomall/internal/interface/http/dto"
	"github.com/xiebiao/gomall/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	orderService *apporder.Service
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orderService *apporder.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create 创建订单
// @Summary      创建订单
// @Tags         订单
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "下单信息"
// @Success      200 {object} response.Response
// @Router       /api/v1/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)
	result, err := h.orderService.Create(c.Request.Context(), userID, req.ReservationIDs, req.ShippingAddress)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"order":  result.Order,
		"ticket": result.Ticket,
	})
}

// Get 订单详情
// @Summary      订单详情
// @Tags         订单
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	userID := middleware.MustGetUserID(c)
	o, err := h.orderService.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// List 订单列表
// @Summary      订单列表
// @Tags         订单
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response
// @Router       /api/v1/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var query dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)
	orders, total, err := h.orderService.List(c.Request.Context(), userID, query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": orders, "total": total})
}

// Cancel 取消订单
// @Summary      取消订单
// @Tags         订单
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		return
	}

	userID := middleware.MustGetUserID(c)
	if err := h.orderService.Cancel(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// PaymentCallback 支付网关回调
// 网关侧无用户态,不走认证中间件;幂等由应用层保证
// @Summary      支付结果回调
// @Tags         订单
// @Param        request body dto.PaymentCallbackRequest true "支付结果"
// @Success      200 {object} response.Response
// @Router       /api/v1/payments/callback [post]
func (h *OrderHandler) PaymentCallback(c *gin.Context) {
	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	if err := h.orderService.HandlePaymentResult(c.Request.Context(), req.OrderNo, req.Result); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
