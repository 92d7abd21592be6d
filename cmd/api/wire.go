//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 运行 `wire gen ./cmd/api` 生成wire_gen.go;
// main.go当前使用手动注入,两者组装的依赖链一致
package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcart "github.com/xiebiao/gomall/internal/application/cart"
	appcheckout "github.com/xiebiao/gomall/internal/application/checkout"
	"github.com/xiebiao/gomall/internal/application/lifecycle"
	apporder "github.com/xiebiao/gomall/internal/application/order"
	appproduct "github.com/xiebiao/gomall/internal/application/product"
	appstock "github.com/xiebiao/gomall/internal/application/stock"
	appuser "github.com/xiebiao/gomall/internal/application/user"
	"github.com/xiebiao/gomall/internal/domain/stock"
	"github.com/xiebiao/gomall/internal/domain/user"
	"github.com/xiebiao/gomall/internal/infrastructure/config"
	"github.com/xiebiao/gomall/internal/infrastructure/gateway"
	"github.com/xiebiao/gomall/internal/infrastructure/notify"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/gomall/internal/infrastructure/persistence/redis"
	httpiface "github.com/xiebiao/gomall/internal/interface/http"
	"github.com/xiebiao/gomall/internal/interface/http/handler"
	"github.com/xiebiao/gomall/internal/interface/http/middleware"
	"github.com/xiebiao/gomall/pkg/jwt"
	"github.com/xiebiao/gomall/pkg/logger"
)

// infrastructureSet 配置、数据库、Redis连接
var infrastructureSet = wire.NewSet(
	config.Load,
	mysql.NewDB,
	redis.NewClient,
)

// repositorySet 仓储层
var repositorySet = wire.NewSet(
	mysql.NewTxManager,
	mysql.NewUserRepository,
	mysql.NewProductRepository,
	mysql.NewStockRepository,
	mysql.NewReservationRepository,
	mysql.NewCartRepository,
	mysql.NewOrderRepository,
)

// applicationSet 领域与应用服务
var applicationSet = wire.NewSet(
	user.NewService,
	lifecycle.NewCoordinator,
	appuser.NewService,
	appproduct.NewService,
	appstock.NewAdminService,
	appcart.NewService,
	appcheckout.NewService,
	apporder.NewService,
)

// handlerSet 接口层
var handlerSet = wire.NewSet(
	handler.NewUserHandler,
	handler.NewProductHandler,
	handler.NewCartHandler,
	handler.NewOrderHandler,
	handler.NewStockHandler,
	handler.NewReservationHandler,
	middleware.NewAuthMiddleware,
)

func provideLogger(cfg *config.Config) *zap.Logger {
	return logger.New("gomall-api", cfg.Log.Level)
}

// provideJWTManager 从配置提取JWT参数
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}

func provideSessionStore(client *goredis.Client) *redis.SessionStore {
	return redis.NewSessionStore(client)
}

func provideReservationConfig(cfg *config.Config) config.ReservationConfig {
	return cfg.Reservation
}

// provideNotifier 低库存告警通知器
// RabbitMQ不可用时降级为空实现
func provideNotifier(cfg *config.Config, log *zap.Logger) stock.Notifier {
	mq, err := notify.NewRabbitMQNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		log.Warn("连接RabbitMQ失败,低库存告警降级为空实现", zap.Error(err))
		return notify.NopNotifier{}
	}
	return mq
}

func providePaymentClient(cfg *config.Config, log *zap.Logger) gateway.PaymentClient {
	return gateway.NewHTTPPaymentClient(cfg.Gateway, log)
}

func provideCallbackGuard(client *goredis.Client) apporder.CallbackGuard {
	return redis.NewIdempotencyStore(client)
}

func provideGinEngine(
	cfg *config.Config,
	userHandler *handler.UserHandler,
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	orderHandler *handler.OrderHandler,
	stockHandler *handler.StockHandler,
	reservationHandler *handler.ReservationHandler,
	auth *middleware.AuthMiddleware,
) *gin.Engine {
	return httpiface.NewRouter(cfg, httpiface.Handlers{
		User:        userHandler,
		Product:     productHandler,
		Cart:        cartHandler,
		Order:       orderHandler,
		Stock:       stockHandler,
		Reservation: reservationHandler,
	}, auth)
}

// InitializeApp 组装整个应用,返回配置好的Gin引擎
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		applicationSet,
		handlerSet,
		provideLogger,
		provideJWTManager,
		provideSessionStore,
		provideReservationConfig,
		provideNotifier,
		providePaymentClient,
		provideCallbackGuard,
		provideGinEngine,
	)
	return nil, nil
}
