package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/gomall/internal/application/lifecycle"
	"github.com/xiebiao/gomall/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
	"github.com/xiebiao/gomall/pkg/response"
)

// ReservationHandler 预留HTTP处理器
type ReservationHandler struct {
	coord *lifecycle.Coordinator
}

// NewReservationHandler 创建预留处理器
func NewReservationHandler(coord *lifecycle.Coordinator) *ReservationHandler {
	return &ReservationHandler{coord: coord}
}

// Extend 续期持有
// @Summary      续期持有(刷新过期时间)
// @Tags         预留
// @Security     BearerAuth
// @Param        id path string true "预留ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/reservations/{id}/extend [post]
func (h *ReservationHandler) Extend(c *gin.Context) {
	reservationID := c.Param("id")
	if reservationID == "" {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "缺少预留ID")
		return
	}

	userID := middleware.MustGetUserID(c)
	res, err := h.coord.ExtendHold(c.Request.Context(), userID, reservationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
