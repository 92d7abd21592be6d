package stock

import (
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// 库存领域错误定义
var (
	// ErrStockNotFound 库存台账不存在
	ErrStockNotFound = apperrors.New(apperrors.ErrCodeStockNotFound, "库存台账不存在")

	// ErrStockDuplicate 同一商品重复建账
	ErrStockDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "该商品已有库存台账")

	// ErrInsufficientStock 可售库存不足
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "可售库存不足")

	// ErrInvalidQuantity 数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量不合法")

	// ErrInvalidThreshold 告警阈值不合法
	ErrInvalidThreshold = apperrors.New(apperrors.ErrCodeInvalidParams, "告警阈值不能为负数")

	// ErrQuantityBelowReserved 调整后在库数低于占用数
	ErrQuantityBelowReserved = apperrors.New(apperrors.ErrCodeBusinessError, "调整后在库数不能低于已占用数量")

	// ErrReservedExceedsQuantity 占用数超过在库数
	ErrReservedExceedsQuantity = apperrors.New(apperrors.ErrCodeBusinessError, "占用数量不能超过在库数量")
)
