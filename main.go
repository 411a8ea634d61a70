package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"storefront/cache"
	"storefront/config"
	"storefront/consumers"
	"storefront/controllers"
	"storefront/database"
	"storefront/middlewares"
	"storefront/payment"
	"storefront/rabbitmq"
	"storefront/services"
)

func main() {
	cfg := config.LoadConfig()
	setupLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	orderStore := database.NewOrderStore(db)
	adminStore := database.NewAdminStore(db)

	var cartCache cache.CartCache = cache.NopCartCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, cart reads go to the database", slog.String("error", err.Error()))
		}
		cartCache = cache.NewRedisCartCache(rdb, cfg.CartCacheTTL)
	}

	var provider payment.Provider
	if cfg.StripeSecretKey != "" {
		provider = payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeTimeout)
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set, payment intents are disabled")
	}

	var events services.EventPublisher = services.NopPublisher{}
	if cfg.OrderEventsEnabled {
		// 初始化RabbitMQ
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			log.Fatalf("RabbitMQ initialization failed: %v", err)
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
		}

		var canceler consumers.IntentCanceler
		if provider != nil {
			canceler = provider
		}
		consumerCh, err := rmq.ConsumerChannel()
		if err != nil {
			log.Fatalf("RabbitMQ initialization failed: %v", err)
		}
		if err := consumers.NewOrderConsumer(orderStore, canceler).Start(ctx, consumerCh, cfg); err != nil {
			log.Fatalf("Failed to start order consumer: %v", err)
		}
		events = rmq
	}

	ctl := &controllers.Controller{
		Carts:    services.NewCartService(database.NewCartStore(db), cartCache),
		Payments: services.NewPaymentIntentService(provider, orderStore, events, cfg.PaymentCheckDelay),
		Webhooks: services.NewWebhookService(orderStore, events, cfg.StripeWebhookSecret),
		Admins:   services.NewAdminService(adminStore, cfg.AdminMasterKey, cfg.JWTSecret, cfg.AdminTokenTTL),
		Orders:   services.NewOrderService(orderStore, events),
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(middlewares.MethodNotAllowed)
	r.Use(gin.Recovery(), middlewares.TraceMiddleware(), middlewares.PrometheusMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", "apikey", "x-client-info", middlewares.RequestIDHeader},
		ExposeHeaders: []string{middlewares.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	// 暴露Prometheus指标端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ctl.RegisterRoutes(r, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("storefront starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.String("error", err.Error()))
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
