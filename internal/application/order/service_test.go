package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	cartapp "github.com/xiebiao/gomall/internal/application/cart"
	checkoutapp "github.com/xiebiao/gomall/internal/application/checkout"
	"github.com/xiebiao/gomall/internal/application/lifecycle"
	cartdomain "github.com/xiebiao/gomall/internal/domain/cart"
	orderdomain "github.com/xiebiao/gomall/internal/domain/order"
	"github.com/xiebiao/gomall/internal/domain/product"
	"github.com/xiebiao/gomall/internal/domain/reservation"
	"github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/infrastructure/config"
	"github.com/xiebiao/gomall/internal/infrastructure/gateway"
	"github.com/xiebiao/gomall/internal/infrastructure/notify"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memoryGuard 内存版回调幂等标记
type memoryGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]bool{}}
}

func (g *memoryGuard) MarkProcessed(ctx context.Context, orderNo, result string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := orderNo + ":" + result
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *memoryGuard) Release(ctx context.Context, orderNo, result string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, orderNo+":"+result)
	return nil
}

// stubPayment 记录发起的支付请求
type stubPayment struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (p *stubPayment) InitiatePayment(ctx context.Context, orderNo string, amount int64) (*gateway.PaymentTicket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, orderNo)
	if p.fail {
		return nil, apperrors.New(apperrors.ErrCodeGatewayError, "网关不可用")
	}
	return &gateway.PaymentTicket{PaymentID: "PAY-" + orderNo, PayURL: "https://pay.test/" + orderNo}, nil
}

type testEnv struct {
	svc         *Service
	cartSvc     *cartapp.Service
	checkoutSvc *checkoutapp.Service
	orderRepo   orderdomain.Repository
	productRepo product.Repository
	stockRepo   stock.Repository
	resRepo     reservation.Repository
	cartRepo    cartdomain.Repository
	payment     *stubPayment
	guard       *memoryGuard
	clock       *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, mysql.AutoMigrate(db))

	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}

	txManager := mysql.NewTxManager(db)
	stockRepo := mysql.NewStockRepository(db)
	resRepo := mysql.NewReservationRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)

	coord := lifecycle.NewCoordinator(
		txManager,
		stockRepo,
		resRepo,
		notify.NopNotifier{},
		config.ReservationConfig{
			CartTTL:     30 * time.Minute,
			CheckoutTTL: 10 * time.Minute,
		},
		zap.NewNop(),
	).WithClock(clock.Now)

	payment := &stubPayment{}
	guard := newMemoryGuard()

	cartSvc := cartapp.NewService(txManager, coord, cartRepo, productRepo, resRepo, zap.NewNop()).WithClock(clock.Now)
	checkoutSvc := checkoutapp.NewService(coord, cartRepo, resRepo, zap.NewNop()).WithClock(clock.Now)
	svc := NewService(txManager, coord, orderRepo, resRepo, productRepo, cartRepo, payment, guard, zap.NewNop()).WithClock(clock.Now)

	return &testEnv{
		svc:         svc,
		cartSvc:     cartSvc,
		checkoutSvc: checkoutSvc,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stockRepo:   stockRepo,
		resRepo:     resRepo,
		cartRepo:    cartRepo,
		payment:     payment,
		guard:       guard,
		clock:       clock,
	}
}

func (e *testEnv) seed(t *testing.T, sku string, price int64, quantity int) *product.Product {
	t.Helper()
	ctx := context.Background()

	p, err := product.NewProduct(sku, "商品"+sku, "", "件", price)
	require.NoError(t, err)
	require.NoError(t, e.productRepo.Create(ctx, p))

	s, err := stock.NewStock(p.ID, quantity, 0)
	require.NoError(t, err)
	require.NoError(t, e.stockRepo.Create(ctx, s))
	return p
}

// checkoutLines 加车并结算,返回CHECKOUT预留ID列表
func (e *testEnv) checkoutLines(t *testing.T, userID uint, wants map[uint]int) []string {
	t.Helper()
	ctx := context.Background()

	for productID, qty := range wants {
		_, err := e.cartSvc.AddItem(ctx, userID, productID, qty)
		require.NoError(t, err)
	}
	lines, err := e.checkoutSvc.Start(ctx, userID)
	require.NoError(t, err)

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ReservationID)
	}
	return ids
}

func (e *testEnv) stockOf(t *testing.T, productID uint) *stock.Stock {
	t.Helper()
	s, err := e.stockRepo.FindByProduct(context.Background(), productID)
	require.NoError(t, err)
	return s
}

func TestCreate_ConfirmsHoldsAndSnapshotsPrice(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 2})

	result, err := env.svc.Create(ctx, 1, ids, "上海市浦东新区1号")
	require.NoError(t, err)
	o := result.Order

	assert.Equal(t, orderdomain.StatusCreated, o.Status)
	assert.Equal(t, int64(2*9900), o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, ids[0], o.Items[0].ReservationID)

	// 预留已确认,不再有过期时间
	res, err := env.resRepo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, res.Status)
	assert.Nil(t, res.ExpiresAt)

	// 确认持有仍占用预留额度
	assert.Equal(t, 2, env.stockOf(t, p.ID).Reserved)

	// 购物车行已清除
	_, err = env.cartRepo.FindByUserAndProduct(ctx, 1, p.ID)
	assert.ErrorIs(t, err, cartdomain.ErrItemNotFound)

	// 已向网关发起支付
	require.NotNil(t, result.Ticket)
	assert.Equal(t, []string{o.OrderNo}, env.payment.calls)
}

func TestCreate_RejectsCartHold(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	item, err := env.cartSvc.AddItem(ctx, 1, p.ID, 2)
	require.NoError(t, err)

	// 未经结算的CART持有不能直接下单
	_, err = env.svc.Create(ctx, 1, []string{item.ReservationID}, "地址")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))

	// 预留原样保留
	res, err := env.resRepo.FindByID(ctx, item.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCart, res.Status)
}

func TestCreate_RejectsForeignHold(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 2})

	_, err := env.svc.Create(ctx, 2, ids, "地址")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreate_UsesOpenDiscountWindow(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 10000, 10)
	ctx := context.Background()

	from := env.clock.Now().Add(-time.Hour)
	until := env.clock.Now().Add(time.Hour)
	require.NoError(t, p.SetDiscount(7500, from, until))
	require.NoError(t, env.productRepo.Update(ctx, p))

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 2})

	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), result.Order.Items[0].Price)
	assert.Equal(t, int64(2*7500), result.Order.Total)
}

func TestCreate_GatewayDownStillCreatesOrder(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	env.payment.fail = true
	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 1})

	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)
	assert.Nil(t, result.Ticket)
	assert.Equal(t, orderdomain.StatusCreated, result.Order.Status)
}

func TestHandlePaymentResult_SuccessCommitsSale(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 3})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)
	orderNo := result.Order.OrderNo

	require.NoError(t, env.svc.HandlePaymentResult(ctx, orderNo, ResultSuccess))

	o, err := env.orderRepo.FindByOrderNo(ctx, orderNo)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusPaymentCompleted, o.Status)

	// 实际库存扣减,预留额度释放
	s := env.stockOf(t, p.ID)
	assert.Equal(t, 7, s.Quantity)
	assert.Equal(t, 0, s.Reserved)

	// 预留保持CONFIRMED且已消费
	res, err := env.resRepo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, res.Status)
	assert.NotNil(t, res.ConsumedAt)
}

func TestHandlePaymentResult_FailureRevertsToCart(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 3})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)

	require.NoError(t, env.svc.HandlePaymentResult(ctx, result.Order.OrderNo, ResultFailed))

	o, err := env.orderRepo.FindByOrderNo(ctx, result.Order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusFailed, o.Status)

	// 持有退回CART并刷新TTL,库存未扣减
	res, err := env.resRepo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCart, res.Status)
	require.NotNil(t, res.ExpiresAt)
	assert.True(t, res.ExpiresAt.Equal(env.clock.Now().Add(30*time.Minute)))

	s := env.stockOf(t, p.ID)
	assert.Equal(t, 10, s.Quantity)
	assert.Equal(t, 3, s.Reserved)
}

func TestHandlePaymentResult_ReplayIgnored(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 2})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)
	orderNo := result.Order.OrderNo

	require.NoError(t, env.svc.HandlePaymentResult(ctx, orderNo, ResultSuccess))
	// 重放:redis标记短路,库存不会二次扣减
	require.NoError(t, env.svc.HandlePaymentResult(ctx, orderNo, ResultSuccess))

	s := env.stockOf(t, p.ID)
	assert.Equal(t, 8, s.Quantity)
	assert.Equal(t, 0, s.Reserved)
}

func TestHandlePaymentResult_StateMachineGuardsWhenRedisLost(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 2})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)
	orderNo := result.Order.OrderNo

	require.NoError(t, env.svc.HandlePaymentResult(ctx, orderNo, ResultSuccess))

	// redis标记丢失(如过期),状态机兜底吞下重放
	env.guard.Release(ctx, orderNo, ResultSuccess)
	require.NoError(t, env.svc.HandlePaymentResult(ctx, orderNo, ResultSuccess))

	assert.Equal(t, 8, env.stockOf(t, p.ID).Quantity)
}

func TestCancel_BeforePaymentReleasesHolds(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 4})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)

	require.NoError(t, env.svc.Cancel(ctx, 1, result.Order.ID))

	o, err := env.orderRepo.FindByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCancelled, o.Status)

	res, err := env.resRepo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, res.Status)

	s := env.stockOf(t, p.ID)
	assert.Equal(t, 10, s.Quantity)
	assert.Equal(t, 0, s.Reserved)
}

func TestCancel_AfterPaymentCompensatesStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 4})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)
	require.NoError(t, env.svc.HandlePaymentResult(ctx, result.Order.OrderNo, ResultSuccess))
	assert.Equal(t, 6, env.stockOf(t, p.ID).Quantity)

	require.NoError(t, env.svc.Cancel(ctx, 1, result.Order.ID))

	o, err := env.orderRepo.FindByID(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCancelled, o.Status)

	// 退货补偿入库
	s := env.stockOf(t, p.ID)
	assert.Equal(t, 10, s.Quantity)
	assert.Equal(t, 0, s.Reserved)
}

func TestCancel_ForeignOrderRejected(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 10)
	ctx := context.Background()

	ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 1})
	result, err := env.svc.Create(ctx, 1, ids, "地址")
	require.NoError(t, err)

	err = env.svc.Cancel(ctx, 2, result.Order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestList_PagesUserOrders(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "SKU-1", 9900, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ids := env.checkoutLines(t, 1, map[uint]int{p.ID: 1})
		_, err := env.svc.Create(ctx, 1, ids, "地址")
		require.NoError(t, err)
	}

	orders, total, err := env.svc.List(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)

	// 他人看不到
	_, total, err = env.svc.List(ctx, 2, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
