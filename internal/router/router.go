package router

import (
	"time"

	"github.com/CodeWithProBrian/Mpesa/config"
	"github.com/CodeWithProBrian/Mpesa/internal/handler"
	"github.com/CodeWithProBrian/Mpesa/internal/lock"
	"github.com/CodeWithProBrian/Mpesa/internal/middleware"
	"github.com/CodeWithProBrian/Mpesa/internal/repository"
	"github.com/CodeWithProBrian/Mpesa/internal/service"
	"github.com/CodeWithProBrian/Mpesa/internal/session"
	"github.com/CodeWithProBrian/Mpesa/internal/web"
	"github.com/CodeWithProBrian/Mpesa/internal/ws"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	callbackLockTTL = 15 * time.Second
	// STK prompts expire on the handset well before this.
	outcomeWait = 3 * time.Minute
)

// Deps are the process-wide collaborators built in main.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client // optional
	Gateway payment.Gateway
	Logger  *zerolog.Logger
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type", middleware.RequestIDHeader},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.SetHTMLTemplate(web.Templates())

	var limiter middleware.Limiter
	var locker lock.Locker
	if d.Redis != nil {
		limiter = middleware.NewRedisRateLimiter(d.Redis, cfg.RateLimit.PerMinute, time.Minute)
		locker = lock.NewRedisLocker(d.Redis, callbackLockTTL)
	} else {
		limiter = middleware.NewInMemoryRateLimiter(cfg.RateLimit.PerMinute, time.Minute)
		locker = lock.NewLocalLocker()
	}
	rateLimit := middleware.RateLimit(limiter)

	// Repositories
	txRepo := repository.NewTransactionRepository(d.DB)

	hub := ws.NewHub()

	// Services
	notifSvc := service.NewNotificationService(hub)
	checkoutSvc := service.NewCheckoutService(d.Gateway, d.Logger, !cfg.Server.IsProduction())
	reconcileSvc := service.NewReconcileService(txRepo, locker, notifSvc, d.Logger)

	// Handlers
	sessions := session.NewCookieStore(cfg.Session.Secret, cfg.Session.TTL, cfg.Server.IsProduction())
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, sessions, d.Logger)
	webhookHandler := handler.NewMpesaWebhookHandler(reconcileSvc, d.Logger)
	txHandler := handler.NewTransactionHandler(reconcileSvc, d.Logger)

	var pinger handler.Pinger
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			pinger = sqlDB
		}
	}
	r.GET("/healthz", handler.Health(pinger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/", checkoutHandler.PaymentForm)
	r.GET("/pay", checkoutHandler.PaymentForm)
	r.POST("/pay", rateLimit, checkoutHandler.Submit)
	r.Any("/stk/status", rateLimit, checkoutHandler.Status)
	r.GET("/transactions/:checkout_id", rateLimit, txHandler.Get)
	r.GET("/ws/checkouts/:checkout_id", handler.UpgradeCheckoutWS(hub, reconcileSvc, outcomeWait, d.Logger))

	// Safaricom calls this; no session and no rate limit.
	r.Any("/mpesa/callback", webhookHandler.Handle)

	return r
}
