package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	"github.com/xiebiao/gomall/pkg/metrics"
	"github.com/xiebiao/gomall/pkg/response"
	"github.com/xiebiao/gomall/pkg/tracing"
)

// main 程序入口,手动依赖注入
// 组装顺序:配置→日志→可观测→存储→仓储→领域/应用服务→接口层
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog := logger.New("gomall-api", cfg.Log.Level)
	defer zlog.Sync()
	response.Init(zlog)
	metrics.InitMetrics()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer("gomall-api", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			zlog.Warn("初始化链路追踪失败", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	db, err := mysql.NewDB(cfg)
	if err != nil {
		zlog.Fatal("初始化数据库失败", zap.Error(err))
	}

	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		zlog.Fatal("初始化Redis失败", zap.Error(err))
	}

	// 低库存告警走RabbitMQ,连不上时降级为空实现,不挡主流程
	var notifier stock.Notifier
	if mq, err := notify.NewRabbitMQNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, zlog); err != nil {
		zlog.Warn("连接RabbitMQ失败,低库存告警降级为空实现", zap.Error(err))
		notifier = notify.NopNotifier{}
	} else {
		defer mq.Close()
		notifier = mq
	}

	// 仓储
	txManager := mysql.NewTxManager(db)
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	stockRepo := mysql.NewStockRepository(db)
	resRepo := mysql.NewReservationRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	sessionStore := redis.NewSessionStore(redisClient)
	idempotency := redis.NewIdempotencyStore(redisClient)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
	paymentClient := gateway.NewHTTPPaymentClient(cfg.Gateway, zlog)

	// 领域与应用服务
	userService := user.NewService(userRepo)
	coord := lifecycle.NewCoordinator(txManager, stockRepo, resRepo, notifier, cfg.Reservation, zlog)

	userApp := appuser.NewService(userService, jwtManager, sessionStore, zlog)
	productApp := appproduct.NewService(productRepo, zlog)
	stockApp := appstock.NewAdminService(txManager, stockRepo, productRepo, resRepo, coord, notifier, zlog)
	cartApp := appcart.NewService(txManager, coord, cartRepo, productRepo, resRepo, zlog)
	checkoutApp := appcheckout.NewService(coord, cartRepo, resRepo, zlog)
	orderApp := apporder.NewService(txManager, coord, orderRepo, resRepo, productRepo, cartRepo, paymentClient, idempotency, zlog)

	// 接口层
	handlers := httpiface.Handlers{
		User:        handler.NewUserHandler(userApp),
		Product:     handler.NewProductHandler(productApp),
		Cart:        handler.NewCartHandler(cartApp, checkoutApp),
		Order:       handler.NewOrderHandler(orderApp),
		Stock:       handler.NewStockHandler(stockApp),
		Reservation: handler.NewReservationHandler(coord),
	}
	auth := middleware.NewAuthMiddleware(jwtManager, sessionStore)
	router := httpiface.NewRouter(cfg, handlers, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zlog.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	// 优雅退出:收到信号后给在途请求一个收尾窗口
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("收到退出信号,开始关闭")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("关闭服务失败", zap.Error(err))
	}
	zlog.Info("服务已退出")
}
