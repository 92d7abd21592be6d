// Package http HTTP接口层组装
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/gomall/internal/infrastructure/config"
	"github.com/xiebiao/gomall/internal/interface/http/handler"
	"github.com/xiebiao/gomall/internal/interface/http/middleware"
	"github.com/xiebiao/gomall/pkg/metrics"
	"github.com/xiebiao/gomall/pkg/response"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	User        *handler.UserHandler
	Product     *handler.ProductHandler
	Cart        *handler.CartHandler
	Order       *handler.OrderHandler
	Stock       *handler.StockHandler
	Reservation *handler.ReservationHandler
}

// NewRouter 组装Gin引擎并注册全部路由
func NewRouter(cfg *config.Config, h Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())

	// 健康检查与运维端点
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// 用户(公开)
		users := v1.Group("/users")
		{
			users.POST("/register", h.User.Register)
			users.POST("/login", h.User.Login)
			users.POST("/logout", auth.RequireAuth(), h.User.Logout)
		}

		// 商品:查询公开,管理需要登录
		products := v1.Group("/products")
		{
			products.GET("", h.Product.List)
			products.GET("/:id", h.Product.Get)

			managed := products.Group("", auth.RequireAuth())
			{
				managed.POST("", h.Product.Create)
				managed.PUT("/:id/price", h.Product.UpdatePrice)
				managed.PUT("/:id/discount", h.Product.SetDiscount)
				managed.DELETE("/:id/discount", h.Product.ClearDiscount)
				managed.POST("/:id/activate", h.Product.Activate)
				managed.POST("/:id/deactivate", h.Product.Deactivate)
			}
		}

		// 购物车与结算(需要登录)
		authed := v1.Group("", auth.RequireAuth())
		{
			authed.GET("/cart", h.Cart.Validate)
			authed.POST("/cart/items", h.Cart.AddItem)
			authed.PUT("/cart/items/:product_id", h.Cart.UpdateItem)
			authed.DELETE("/cart/items/:product_id", h.Cart.RemoveItem)
			authed.POST("/checkout", h.Cart.Checkout)

			authed.POST("/reservations/:id/extend", h.Reservation.Extend)

			authed.POST("/orders", h.Order.Create)
			authed.GET("/orders", h.Order.List)
			authed.GET("/orders/:id", h.Order.Get)
			authed.POST("/orders/:id/cancel", h.Order.Cancel)
		}

		// 支付回调(网关侧调用,无用户态)
		v1.POST("/payments/callback", h.Order.PaymentCallback)

		// 运营后台(需要登录)
		admin := v1.Group("/admin", auth.RequireAuth())
		{
			admin.POST("/stocks", h.Stock.Provision)
			admin.GET("/stocks/:product_id", h.Stock.Get)
			admin.POST("/stocks/:product_id/adjust", h.Stock.Adjust)
			admin.GET("/stocks/:product_id/movements", h.Stock.Movements)
			admin.POST("/reservations/reclaim", h.Stock.Reclaim)
		}
	}

	return r
}
