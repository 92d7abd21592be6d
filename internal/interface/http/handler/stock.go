package handler

import (
	"github.com/gin-gonic/gin"

	appstock "github.com/xiebiao/gomall/internal/application/stock"
	stockdomain "github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/interface/http/dto"
	"github.com/xiebiao/gomall/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/response"
)

// StockHandler 库存管理HTTP处理器(运营侧)
type StockHandler struct {
	adminService *appstock.AdminService
}

// NewStockHandler 创建库存处理器
func NewStockHandler(adminService *appstock.AdminService) *StockHandler {
	return &StockHandler{adminService: adminService}
}

// Provision 库存建账
// @Summary      库存建账
// @Tags         库存
// @Security     BearerAuth
// @Param        request body dto.ProvisionStockRequest true "建账信息"
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/stocks [post]
func (h *StockHandler) Provision(c *gin.Context) {
	var req dto.ProvisionStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	s, err := h.adminService.Provision(c.Request.Context(),
		req.ProductID, req.Quantity, req.LowStockThreshold, middleware.GetEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s)
}

// Adjust 库存调整
// @Summary      库存调整(采购入库/盘亏核减等)
// @Tags         库存
// @Security     BearerAuth
// @Param        product_id path int true "商品ID"
// @Param        request body dto.AdjustStockRequest true "调整量、事由和单据号"
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/stocks/{product_id}/adjust [post]
func (h *StockHandler) Adjust(c *gin.Context) {
	productID := parseUintParam(c, "product_id")
	if productID == 0 {
		return
	}

	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	s, err := h.adminService.Adjust(c.Request.Context(),
		productID, req.Delta, stockdomain.AdjustReason(req.Reason), req.Reference, middleware.GetEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s)
}

// Get 库存查询
// @Summary      库存查询
// @Tags         库存
// @Security     BearerAuth
// @Param        product_id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/stocks/{product_id} [get]
func (h *StockHandler) Get(c *gin.Context) {
	productID := parseUintParam(c, "product_id")
	if productID == 0 {
		return
	}

	s, err := h.adminService.Get(c.Request.Context(), productID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s)
}

// Movements 库存流水
// @Summary      库存流水
// @Tags         库存
// @Security     BearerAuth
// @Param        product_id path int true "商品ID"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/stocks/{product_id}/movements [get]
func (h *StockHandler) Movements(c *gin.Context) {
	productID := parseUintParam(c, "product_id")
	if productID == 0 {
		return
	}

	var query dto.MovementsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	movements, total, err := h.adminService.Movements(c.Request.Context(), productID, query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": movements, "total": total})
}

// Reclaim 回收过期预留
// 惰性过期的补充清扫,幂等,可由外部调度器定时调用
// @Summary      回收过期预留
// @Tags         库存
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/reservations/reclaim [post]
func (h *StockHandler) Reclaim(c *gin.Context) {
	n, err := h.adminService.ReclaimExpired(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"reclaimed": n})
}
