package cart

import (
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// 购物车领域错误定义
var (
	// ErrItemNotFound 购物车行不存在
	ErrItemNotFound = apperrors.New(apperrors.ErrCodeCartItemNotFound, "购物车中没有该商品")

	// ErrItemDuplicate 同一商品重复加车(数据库唯一约束兜底)
	ErrItemDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "该商品已在购物车中")
)
