package mysql

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// isDuplicateError 判断是否为唯一索引冲突错误
// MySQL错误码1062: Duplicate entry 'xxx' for key 'yyy'
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 兼容检查:sqlite报UNIQUE constraint failed
	return strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isConflictError 判断是否为锁冲突错误
// MySQL错误码:
// - 1213: Deadlock found when trying to get lock
// - 1205: Lock wait timeout exceeded
// 这类错误意味着整个业务动作需要重新发起,不能只重试当前SQL
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout") ||
		strings.Contains(msg, "database is locked") // sqlite
}

// translateError 数据库错误转业务错误
// 冲突类错误统一转ErrTxConflict,其余包一层AppError
func translateError(err error, message string) error {
	if isConflictError(err) {
		return apperrors.ErrTxConflict
	}
	return apperrors.Wrap(err, message)
}

// withRowLock 给查询加SELECT FOR UPDATE
// sqlite(测试用)不支持该语法,靠单连接串行化保证正确性
func withRowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "mysql" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
