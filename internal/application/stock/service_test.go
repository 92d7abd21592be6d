package stock

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

	"github.com/xiebiao/gomall/internal/application/lifecycle"
	"github.com/xiebiao/gomall/internal/domain/product"
	"github.com/xiebiao/gomall/internal/domain/reservation"
	stockdomain "github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/infrastructure/config"
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
	svc         *AdminService
	coord       *lifecycle.Coordinator
	stockRepo   stockdomain.Repository
	productRepo product.Repository
	clock       *fakeClock
	notifier    *captureNotifier
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
	productRepo := mysql.NewProductRepository(db)

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

	notifier := &captureNotifier{}
	svc := NewAdminService(txManager, stockRepo, productRepo, resRepo, coord, notifier, zap.NewNop()).WithClock(clock.Now)

	return &testEnv{
		svc:         svc,
		coord:       coord,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		clock:       clock,
		notifier:    notifier,
	}
}

func (e *testEnv) seedProduct(t *testing.T, sku string) *product.Product {
	t.Helper()
	p, err := product.NewProduct(sku, "商品"+sku, "", "件", 9900)
	require.NoError(t, err)
	require.NoError(t, e.productRepo.Create(context.Background(), p))
	return p
}

func TestProvision_CreatesLedgerWithMovement(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	s, err := env.svc.Provision(ctx, p.ID, 50, 5, "admin@test")
	require.NoError(t, err)
	assert.Equal(t, 50, s.Quantity)
	assert.Equal(t, 0, s.Reserved)

	movements, total, err := env.svc.Movements(ctx, p.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, stockdomain.ChangeTypeProvision, movements[0].Type)
	assert.Equal(t, 50, movements[0].Delta)
}

func TestProvision_DuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 50, 0, "admin@test")
	require.NoError(t, err)

	_, err = env.svc.Provision(ctx, p.ID, 10, 0, "admin@test")
	assert.ErrorIs(t, err, stockdomain.ErrStockDuplicate)
}

func TestProvision_UnknownProductRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Provision(context.Background(), 999, 10, 0, "admin@test")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestAdjust_WritesMovement(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 50, 0, "admin@test")
	require.NoError(t, err)

	s, err := env.svc.Adjust(ctx, p.ID, -8, stockdomain.ReasonDamage, "盘点单PD-1", "admin@test")
	require.NoError(t, err)
	assert.Equal(t, 42, s.Quantity)

	movements, total, err := env.svc.Movements(ctx, p.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	var adjust *stockdomain.Movement
	for _, m := range movements {
		if m.Type == stockdomain.ChangeTypeAdjust {
			adjust = m
		}
	}
	require.NotNil(t, adjust)
	assert.Equal(t, stockdomain.ReasonDamage, adjust.Reason)
	assert.Equal(t, -8, adjust.Delta)
	assert.Equal(t, 42, adjust.After)
	assert.Equal(t, "盘点单PD-1", adjust.Reference)
}

func TestAdjust_InvalidReasonRejected(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 50, 0, "admin@test")
	require.NoError(t, err)

	_, err = env.svc.Adjust(ctx, p.ID, -8, "SHRINKAGE", "盘点单PD-1", "admin@test")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidParams))
}

func TestAdjust_NotifiesWhenCrossingThreshold(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 10, 4, "admin@test")
	require.NoError(t, err)

	// 报损后可用量4恰好等于阈值4,应当告警
	_, err = env.svc.Adjust(ctx, p.ID, -6, stockdomain.ReasonDamage, "盘点单PD-4", "admin@test")
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, env.notifier.events)

	// 进货回到阈值之上,不再告警
	_, err = env.svc.Adjust(ctx, p.ID, 6, stockdomain.ReasonPurchase, "采购单CG-1", "admin@test")
	require.NoError(t, err)
	assert.Len(t, env.notifier.events, 1)
}

func TestAdjust_CannotGoBelowActiveHolds(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 10, 0, "admin@test")
	require.NoError(t, err)
	_, err = env.coord.CreateHold(ctx, 1, p.ID, 6, reservation.StatusCart)
	require.NoError(t, err)

	// 调整后在库数4低于占用数6
	_, err = env.svc.Adjust(ctx, p.ID, -6, stockdomain.ReasonDamage, "盘点单PD-2", "admin@test")
	assert.ErrorIs(t, err, stockdomain.ErrQuantityBelowReserved)
}

func TestAdjust_StaleReservedRefreshedBeforeCheck(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 10, 0, "admin@test")
	require.NoError(t, err)
	_, err = env.coord.CreateHold(ctx, 1, p.ID, 6, reservation.StatusCart)
	require.NoError(t, err)

	// 持有过期但缓存的占用数还没被任何操作刷新,
	// 调整前按真实汇总刷新后应当放行
	env.clock.Advance(31 * time.Minute)
	s, err := env.svc.Adjust(ctx, p.ID, -6, stockdomain.ReasonCorrection, "盘点单PD-3", "admin@test")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Quantity)
	assert.Equal(t, 0, s.Reserved)
}

func TestReclaimExpired_DelegatesToCoordinator(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "SKU-1")
	ctx := context.Background()

	_, err := env.svc.Provision(ctx, p.ID, 10, 0, "admin@test")
	require.NoError(t, err)
	_, err = env.coord.CreateHold(ctx, 1, p.ID, 3, reservation.StatusCart)
	require.NoError(t, err)

	env.clock.Advance(31 * time.Minute)
	n, err := env.svc.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
