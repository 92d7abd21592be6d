package product

import (
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// 商品领域错误定义
var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")

	// ErrSKUDuplicate SKU已存在
	ErrSKUDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "商品编码已存在")

	// ErrInvalidSKU SKU不合法
	ErrInvalidSKU = apperrors.New(apperrors.ErrCodeInvalidParams, "商品编码不能为空")

	// ErrInvalidPrice 无效的价格
	ErrInvalidPrice = apperrors.New(apperrors.ErrCodeInvalidParams, "价格必须大于0")

	// ErrInvalidDiscount 无效的折扣设置
	ErrInvalidDiscount = apperrors.New(apperrors.ErrCodeInvalidParams, "折扣价必须大于0且低于标价,窗口起止时间必须有序")

	// ErrProductInactive 商品已下架
	ErrProductInactive = apperrors.New(apperrors.ErrCodeBusinessError, "商品已下架")
)
