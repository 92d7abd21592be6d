package reservation

import (
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// 预留领域错误定义
var (
	// ErrReservationNotFound 预留不存在
	ErrReservationNotFound = apperrors.New(apperrors.ErrCodeReservationNotFound, "预留不存在")

	// ErrInvalidStatusTransition 非法的状态转换
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidTransition, "预留状态不允许此操作")

	// ErrReservationExpired 预留已过期
	ErrReservationExpired = apperrors.New(apperrors.ErrCodeReservationExpired, "预留已过期")

	// ErrAlreadyCancelled 预留已取消
	ErrAlreadyCancelled = apperrors.New(apperrors.ErrCodeAlreadyCancelled, "预留已取消")

	// ErrTerminalState 预留已消费,不可再变更
	ErrTerminalState = apperrors.New(apperrors.ErrCodeTerminalState, "预留已出库,不可再变更")

	// ErrInvalidQuantity 数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "预留数量必须大于0")
)
