package lifecycle

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

	"github.com/xiebiao/gomall/internal/domain/reservation"
	"github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/infrastructure/config"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/gomall/pkg/errors"
)

// fakeClock 可拨动的测试时钟
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

// captureNotifier 记录收到的低库存告警
type captureNotifier struct {
	mu     sync.Mutex
	events []uint
}

func (n *captureNotifier) NotifyLowStock(ctx context.Context, productID uint, available, threshold int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, productID)
	return nil
}

type testEnv struct {
	coord     *Coordinator
	stockRepo stock.Repository
	resRepo   reservation.Repository
	clock     *fakeClock
	notifier  *captureNotifier
}

// newTestEnv 搭建sqlite内存库环境
// 单连接串行化代替MySQL行锁,事务语义足够覆盖这里的用例
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
	notifier := &captureNotifier{}

	stockRepo := mysql.NewStockRepository(db)
	resRepo := mysql.NewReservationRepository(db)

	coord := NewCoordinator(
		mysql.NewTxManager(db),
		stockRepo,
		resRepo,
		notifier,
		config.ReservationConfig{
			CartTTL:     30 * time.Minute,
			CheckoutTTL: 10 * time.Minute,
		},
		zap.NewNop(),
	).WithClock(clock.Now)

	return &testEnv{
		coord:     coord,
		stockRepo: stockRepo,
		resRepo:   resRepo,
		clock:     clock,
		notifier:  notifier,
	}
}

// provision 建账
func (e *testEnv) provision(t *testing.T, productID uint, quantity, threshold int) {
	t.Helper()
	s, err := stock.NewStock(productID, quantity, threshold)
	require.NoError(t, err)
	require.NoError(t, e.stockRepo.Create(context.Background(), s))
}

func (e *testEnv) stockOf(t *testing.T, productID uint) *stock.Stock {
	t.Helper()
	s, err := e.stockRepo.FindByProduct(context.Background(), productID)
	require.NoError(t, err)
	return s
}

func TestCreateHold_ReducesAvailability(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	res, err := env.coord.CreateHold(ctx, 1, 100, 6, reservation.StatusCart)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCart, res.Status)

	s := env.stockOf(t, 100)
	assert.Equal(t, 10, s.Quantity)
	assert.Equal(t, 6, s.Reserved)
	assert.Equal(t, 4, s.Available())
}

func TestCreateHold_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	_, err := env.coord.CreateHold(ctx, 1, 100, 6, reservation.StatusCart)
	require.NoError(t, err)

	// 剩余可售4,申请5被拒,且不留任何痕迹
	_, err = env.coord.CreateHold(ctx, 2, 100, 5, reservation.StatusCart)
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	s := env.stockOf(t, 100)
	assert.Equal(t, 6, s.Reserved)

	// 正好4件可以
	_, err = env.coord.CreateHold(ctx, 2, 100, 4, reservation.StatusCart)
	require.NoError(t, err)
	assert.Equal(t, 0, env.stockOf(t, 100).Available())
}

// TestCreateHold_NoOversellUnderConcurrency 并发抢占不超卖
func TestCreateHold_NoOversellUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 5, 0)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := env.coord.CreateHold(context.Background(), userID, 100, 1, reservation.StatusCart)
			results <- err
		}(uint(i + 1))
	}
	wg.Wait()
	close(results)

	success, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case apperrors.IsCode(err, apperrors.ErrCodeInsufficientStock):
			rejected++
		default:
			t.Fatalf("意外错误: %v", err)
		}
	}

	assert.Equal(t, 5, success)
	assert.Equal(t, 5, rejected)
	assert.Equal(t, 5, env.stockOf(t, 100).Reserved)
}

func TestExpiredHold_FreesAvailabilityWithoutReclaim(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	_, err := env.coord.CreateHold(ctx, 1, 100, 6, reservation.StatusCart)
	require.NoError(t, err)

	// 过期后不需要任何回收动作,占用即消失
	env.clock.Advance(31 * time.Minute)

	res, err := env.coord.CreateHold(ctx, 2, 100, 10, reservation.StatusCart)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Quantity)

	// 汇总只数新持有
	assert.Equal(t, 10, env.stockOf(t, 100).Reserved)
}

func TestExtendHold(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	res, err := env.coord.CreateHold(ctx, 1, 100, 2, reservation.StatusCart)
	require.NoError(t, err)

	env.clock.Advance(20 * time.Minute)
	extended, err := env.coord.ExtendHold(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, env.clock.Now().Add(30*time.Minute), extended.ExpiresAt.UTC())

	// 别人的持有不能续期
	_, err = env.coord.ExtendHold(ctx, 2, res.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// 过期后续期被拒
	env.clock.Advance(31 * time.Minute)
	_, err = env.coord.ExtendHold(ctx, 1, res.ID)
	assert.ErrorIs(t, err, reservation.ErrReservationExpired)
}

func TestConvertAndConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	res, err := env.coord.CreateHold(ctx, 1, 100, 3, reservation.StatusCart)
	require.NoError(t, err)

	// CART不能直接确认
	_, err = env.coord.Confirm(ctx, 1, res.ID)
	assert.ErrorIs(t, err, reservation.ErrInvalidStatusTransition)

	co, err := env.coord.ConvertToCheckout(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCheckout, co.Status)
	assert.Equal(t, env.clock.Now().Add(10*time.Minute), co.ExpiresAt.UTC())

	// 转换不改变占用
	assert.Equal(t, 3, env.stockOf(t, 100).Reserved)

	confirmed, err := env.coord.Confirm(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.ExpiresAt)

	// 确认后的持有不随时间过期
	env.clock.Advance(24 * time.Hour)
	_, err = env.coord.CreateHold(ctx, 2, 100, 8, reservation.StatusCart)
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	s := env.stockOf(t, 100)
	assert.Equal(t, 3, s.Reserved)
	assert.Equal(t, 10, s.Quantity)

	// 重复确认幂等
	_, err = env.coord.Confirm(ctx, 1, res.ID)
	assert.NoError(t, err)
}

func TestCancel_FreesHold(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	res, err := env.coord.CreateHold(ctx, 1, 100, 4, reservation.StatusCart)
	require.NoError(t, err)
	require.NoError(t, env.coord.Cancel(ctx, 1, res.ID))

	assert.Equal(t, 0, env.stockOf(t, 100).Reserved)

	// 重复取消
	err = env.coord.Cancel(ctx, 1, res.ID)
	assert.ErrorIs(t, err, reservation.ErrAlreadyCancelled)
}

func TestCommitSale(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 3)
	ctx := context.Background()

	res, err := env.coord.CreateHold(ctx, 1, 100, 8, reservation.StatusCheckout)
	require.NoError(t, err)
	_, err = env.coord.Confirm(ctx, 1, res.ID)
	require.NoError(t, err)

	// 未确认的预留不能出库
	other, err := env.coord.CreateHold(ctx, 2, 100, 1, reservation.StatusCart)
	require.NoError(t, err)
	err = env.coord.CommitSale(ctx, other.ID, "ORD1")
	assert.ErrorIs(t, err, reservation.ErrInvalidStatusTransition)

	require.NoError(t, env.coord.CommitSale(ctx, res.ID, "ORD1"))

	s := env.stockOf(t, 100)
	assert.Equal(t, 2, s.Quantity)  // 10 - 8
	assert.Equal(t, 1, s.Reserved)  // 只剩other的持有
	assert.Equal(t, 1, s.Available())

	// SALE流水已落
	movements, total, err := env.stockRepo.ListMovements(ctx, 100, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, stock.ChangeTypeSale, movements[0].Type)
	assert.Equal(t, -8, movements[0].Delta)
	assert.Equal(t, "ORD1", movements[0].Reference)

	// 可售1 < 阈值3,触发低库存告警
	assert.Equal(t, []uint{100}, env.notifier.events)

	// 重复出库被拒
	err = env.coord.CommitSale(ctx, res.ID, "ORD1")
	assert.ErrorIs(t, err, reservation.ErrTerminalState)
}

func TestCompensateSale(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	res, err := env.coord.CreateHold(ctx, 1, 100, 4, reservation.StatusCheckout)
	require.NoError(t, err)
	_, err = env.coord.Confirm(ctx, 1, res.ID)
	require.NoError(t, err)
	require.NoError(t, env.coord.CommitSale(ctx, res.ID, "ORD2"))
	assert.Equal(t, 6, env.stockOf(t, 100).Quantity)

	// 冲正回补在库数
	require.NoError(t, env.coord.CompensateSale(ctx, res.ID, "ORD2"))

	s := env.stockOf(t, 100)
	assert.Equal(t, 10, s.Quantity)
	assert.Equal(t, 0, s.Reserved)

	// 未出库的预留不能冲正
	pending, err := env.coord.CreateHold(ctx, 2, 100, 1, reservation.StatusCart)
	require.NoError(t, err)
	err = env.coord.CompensateSale(ctx, pending.ID, "ORD3")
	assert.ErrorIs(t, err, reservation.ErrInvalidStatusTransition)
}

func TestReclaimExpired(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	env.provision(t, 200, 5, 0)
	ctx := context.Background()

	r1, err := env.coord.CreateHold(ctx, 1, 100, 3, reservation.StatusCart)
	require.NoError(t, err)
	_, err = env.coord.CreateHold(ctx, 1, 200, 2, reservation.StatusCheckout)
	require.NoError(t, err)

	// 活跃持有不被回收
	n, err := env.coord.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// CART(30m)和CHECKOUT(10m)都过期
	env.clock.Advance(31 * time.Minute)

	n, err = env.coord.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// 行已落成CANCELLED,台账缓存已修复
	got, err := env.resRepo.FindByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, got.Status)
	assert.Equal(t, 0, env.stockOf(t, 100).Reserved)
	assert.Equal(t, 0, env.stockOf(t, 200).Reserved)

	// 幂等:再跑一遍没有新的回收
	n, err = env.coord.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// TestEndToEndHoldLifecycle 完整走一遍持有生命周期
// 在库10:A购物车持有6,B申请5被拒、改申请4成功,
// A转结算、确认、出库后在库4,B的持有原样保留
func TestEndToEndHoldLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, 100, 10, 0)
	ctx := context.Background()

	resA, err := env.coord.CreateHold(ctx, 1, 100, 6, reservation.StatusCart)
	require.NoError(t, err)

	_, err = env.coord.CreateHold(ctx, 2, 100, 5, reservation.StatusCart)
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	resB, err := env.coord.CreateHold(ctx, 2, 100, 4, reservation.StatusCart)
	require.NoError(t, err)
	assert.Equal(t, 0, env.stockOf(t, 100).Available())

	_, err = env.coord.ConvertToCheckout(ctx, 1, resA.ID)
	require.NoError(t, err)
	_, err = env.coord.Confirm(ctx, 1, resA.ID)
	require.NoError(t, err)
	require.NoError(t, env.coord.CommitSale(ctx, resA.ID, "ORD100"))

	s := env.stockOf(t, 100)
	assert.Equal(t, 4, s.Quantity)
	assert.Equal(t, 4, s.Reserved)
	assert.Equal(t, 0, s.Available())

	// B的持有不受影响
	got, err := env.resRepo.FindByID(ctx, resB.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCart, got.Status)
	assert.True(t, got.IsHolding(env.clock.Now()))
}
