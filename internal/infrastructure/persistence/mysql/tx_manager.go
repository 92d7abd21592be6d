package mysql

import (
	"context"

	"gorm.io/gorm"
)

// txKey context中事务DB的键
// 使用私有类型防止外部包伪造或覆盖
type txKey struct{}

// TxManager 事务管理器
// 设计说明:
// 1. 封装GORM的Transaction方法,fn返回error时自动ROLLBACK
// 2. 事务DB通过context传递,Repository的getDB从context提取
// 3. 嵌套调用时复用外层事务(GORM在同一*gorm.DB上会降级为Savepoint),
//    购物车服务包事务调用生命周期协调器不会开出第二个物理事务
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    s, err := stockRepo.LockByProduct(ctx, productID) // 行锁
//	    if err != nil {
//	        return err
//	    }
//	    if err := reservationRepo.Create(ctx, res); err != nil {
//	        return err // 自动回滚
//	    }
//	    return stockRepo.Save(ctx, s) // nil则提交
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// 已在事务中时直接在当前事务上执行,保证一个业务动作一个物理事务
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.Transaction(func(inner *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, inner))
		})
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// getDB 从context获取事务DB,没有事务时退回普通连接
func getDB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
