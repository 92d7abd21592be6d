package cart

import (
	"time"
)

// Item 购物车行实体
// DDD设计说明:
// 1. 购物车行不持有数量,数量在其引用的预留(ReservationID)上
// 2. PriceAtAdd是加车时的生效价快照,校验购物车时与当前价对比,
//    价格变动要提示用户而不是悄悄按新价结算
// 3. 行的生命周期跟随预留:预留被取消/过期,行就是死行,
//    校验时上报,结算时清理
type Item struct {
	ID            uint
	UserID        uint
	ProductID     uint
	ReservationID string // 当前背后的预留UUID
	PriceAtAdd    int64  // 加车时的生效价(分)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewItem 创建购物车行(工厂方法)
func NewItem(userID, productID uint, reservationID string, priceAtAdd int64) *Item {
	now := time.Now()
	return &Item{
		UserID:        userID,
		ProductID:     productID,
		ReservationID: reservationID,
		PriceAtAdd:    priceAtAdd,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Rebind 行换绑到新预留
// 改数量走"取消旧预留+新建预留",行要指向新预留并刷新价格快照
func (i *Item) Rebind(reservationID string, priceAtAdd int64) {
	i.ReservationID = reservationID
	i.PriceAtAdd = priceAtAdd
	i.UpdatedAt = time.Now()
}
