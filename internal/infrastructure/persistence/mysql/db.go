package mysql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/gomall/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明:
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数(MaxOpenConns、MaxIdleConns、ConnMaxLifetime)
// 3. 开发环境开启SQL日志,生产环境关闭
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	// 生产环境应使用版本化迁移脚本,这里依赖AutoMigrate简化部署
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
// 导出供测试用(sqlite内存库同样走这套模型)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&ProductModel{},
		&StockModel{},
		&StockMovementModel{},
		&ReservationModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderItemModel{},
	)
}

// UserModel GORM用户模型
// infrastructure层的数据模型,domain实体不带GORM tag,Repository负责转换
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string         `gorm:"size:255;not null;comment:密码(bcrypt加密)"`
	Nickname  string         `gorm:"size:50;not null;comment:昵称"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (UserModel) TableName() string {
	return "users"
}

// ProductModel GORM商品模型
// 价格使用int64存储"分"为单位;折扣三字段可空,为空表示无折扣
type ProductModel struct {
	ID            uint           `gorm:"primaryKey"`
	SKU           string         `gorm:"uniqueIndex;size:64;not null;comment:商品编码"`
	Name          string         `gorm:"index:idx_search;size:200;not null;comment:商品名称"`
	Description   string         `gorm:"type:text;comment:商品描述"`
	Unit          string         `gorm:"size:20;comment:计量单位"`
	Price         int64          `gorm:"not null;comment:标价(分)"`
	DiscountPrice *int64         `gorm:"comment:折扣价(分)"`
	DiscountFrom  *time.Time     `gorm:"comment:折扣开始时间"`
	DiscountUntil *time.Time     `gorm:"comment:折扣结束时间"`
	Active        bool           `gorm:"default:true;comment:是否上架"`
	CreatedAt     time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt     time.Time      `gorm:"comment:更新时间"`
	DeletedAt     gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (ProductModel) TableName() string {
	return "products"
}

// StockModel GORM库存台账模型
// 每个商品一行;Reserved是预留汇总缓存,只在事务内与预留变更一起回写
type StockModel struct {
	ID                uint      `gorm:"primaryKey"`
	ProductID         uint      `gorm:"uniqueIndex;not null;comment:商品ID"`
	Quantity          int       `gorm:"not null;default:0;comment:在库数量"`
	Reserved          int       `gorm:"not null;default:0;comment:占用数量(汇总缓存)"`
	LowStockThreshold int       `gorm:"not null;default:0;comment:低库存告警阈值"`
	CreatedAt         time.Time `gorm:"comment:创建时间"`
	UpdatedAt         time.Time `gorm:"comment:更新时间"`
}

func (StockModel) TableName() string {
	return "stocks"
}

// StockMovementModel GORM库存变动流水模型
// 只追加不修改,审计用
type StockMovementModel struct {
	ID        uint      `gorm:"primaryKey"`
	ProductID uint      `gorm:"index:idx_movement_product,priority:1;not null;comment:商品ID"`
	Type      string    `gorm:"size:20;not null;comment:变动类型"`
	Reason    string    `gorm:"size:20;comment:调整事由(仅ADJUST)"`
	Delta     int       `gorm:"not null;comment:变动量"`
	After     int       `gorm:"not null;comment:变动后在库数"`
	Reference string    `gorm:"size:64;comment:业务单据号"`
	Operator  string    `gorm:"size:64;comment:操作来源"`
	CreatedAt time.Time `gorm:"index:idx_movement_product,priority:2;comment:创建时间"`
}

func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ReservationModel GORM预留模型
// 索引设计:
// 1. (product_id, status, expires_at):占用汇总和过期回收都按这个组合过滤
// 2. (user_id, status):购物车视图按用户取活跃持有
type ReservationModel struct {
	ID         string     `gorm:"primaryKey;size:36;comment:预留UUID"`
	UserID     uint       `gorm:"index:idx_res_user,priority:1;not null;comment:用户ID"`
	ProductID  uint       `gorm:"index:idx_res_product,priority:1;not null;comment:商品ID"`
	Quantity   int        `gorm:"not null;comment:预留数量"`
	Status     string     `gorm:"index:idx_res_product,priority:2;index:idx_res_user,priority:2;size:16;not null;comment:状态"`
	ExpiresAt  *time.Time `gorm:"index:idx_res_product,priority:3;comment:持有截止时间"`
	ConsumedAt *time.Time `gorm:"comment:出库消费时间"`
	CreatedAt  time.Time  `gorm:"comment:创建时间"`
	UpdatedAt  time.Time  `gorm:"comment:更新时间"`
}

func (ReservationModel) TableName() string {
	return "reservations"
}

// CartItemModel GORM购物车行模型
// (user_id, product_id)唯一
type CartItemModel struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"uniqueIndex:idx_cart_user_product,priority:1;not null;comment:用户ID"`
	ProductID     uint      `gorm:"uniqueIndex:idx_cart_user_product,priority:2;not null;comment:商品ID"`
	ReservationID string    `gorm:"size:36;not null;comment:当前预留UUID"`
	PriceAtAdd    int64     `gorm:"not null;comment:加车时生效价(分)"`
	CreatedAt     time.Time `gorm:"comment:创建时间"`
	UpdatedAt     time.Time `gorm:"comment:更新时间"`
}

func (CartItemModel) TableName() string {
	return "cart_items"
}

// OrderModel GORM订单模型
type OrderModel struct {
	ID              uint             `gorm:"primaryKey"`
	OrderNo         string           `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID          uint             `gorm:"index;not null;comment:买家用户ID"`
	Total           int64            `gorm:"not null;comment:订单总金额(分)"`
	Status          string           `gorm:"index;size:20;not null;comment:订单状态"`
	ShippingAddress string           `gorm:"size:255;comment:收货地址"`
	Items           []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time        `gorm:"index;comment:创建时间"`
	UpdatedAt       time.Time        `gorm:"comment:更新时间"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
// 记录下单时的价格快照和绑定的预留
type OrderItemModel struct {
	ID            uint   `gorm:"primaryKey"`
	OrderID       uint   `gorm:"index;not null;comment:订单ID"`
	ProductID     uint   `gorm:"index;not null;comment:商品ID"`
	ReservationID string `gorm:"size:36;not null;comment:预留UUID"`
	Quantity      int    `gorm:"not null;comment:购买数量"`
	Price         int64  `gorm:"not null;comment:下单时单价(分)"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
