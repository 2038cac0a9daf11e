package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital-chat/internal/api"
	"hospital-chat/internal/automation"
	"hospital-chat/internal/catalog"
	"hospital-chat/internal/config"
	"hospital-chat/internal/database"
	"hospital-chat/internal/dedup"
	"hospital-chat/internal/metrics"
	"hospital-chat/internal/store"
	"hospital-chat/internal/webhook"
	"hospital-chat/internal/whatsapp"
	"hospital-chat/internal/ws"
	"hospital-chat/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const janitorInterval = 10 * time.Minute

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	database.SyncConfig(db, cfg, logger)
	st := store.New(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(reg)

	hub := ws.NewHub(logger.With("component", "ws"))
	go hub.Run()

	cat := catalog.NewSeeded(cfg.CatalogTTL)
	client := whatsapp.NewClient(cfg)
	dispatcher := whatsapp.NewDispatcher(client, st, hub, chatMetrics, logger.With("component", "dispatcher"))
	engine := automation.NewEngine(st, cat, dispatcher, automation.Options{
		RegistrationFlowID: cfg.RegistrationFlowID,
		CheckinWindow:      cfg.CheckinWindow,
		PaymentLinkBase:    cfg.PaymentLinkBase,
		Events:             hub,
		Metrics:            chatMetrics,
		Logger:             logger.With("component", "engine"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go engine.RunJanitor(ctx, janitorInterval)

	webhookHandler := webhook.NewHandler(cfg, engine, st, newDeduper(ctx, cfg, logger), logger.With("component", "webhook"))
	webhookHandler.Notifier = hub
	webhookHandler.Metrics = chatMetrics

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	webhookHandler.RegisterRoutes(r, apiGroup)
	api.NewPatientHandler(st, logger).Register(apiGroup)
	api.NewDoctorHandler(st, logger).Register(apiGroup)
	api.NewFlowHandler(st, engine, logger).Register(apiGroup)
	api.NewBookingHandler(st, engine, logger).Register(apiGroup)
	api.NewPrescriptionHandler(dispatcher, logger).Register(apiGroup)
	api.NewCatalogHandler(cat, logger).Register(apiGroup)
	api.NewDashboardHandler(st, dispatcher, client, logger).Register(apiGroup)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// let in-flight conversations finish their replies
	webhookHandler.Wait()
	logger.Info("server stopped")
}

// newDeduper uses redis when REDIS_ADDR is set and reachable, otherwise
// process memory.
func newDeduper(ctx context.Context, cfg *config.Config, logger *logging.Logger) dedup.Deduper {
	if cfg.RedisAddr == "" {
		return dedup.NewMemory(cfg.DedupTTL)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, de-duplicating in memory", "addr", cfg.RedisAddr, "error", err)
		rdb.Close()
		return dedup.NewMemory(cfg.DedupTTL)
	}
	logger.Info("webhook de-duplication backed by redis", "addr", cfg.RedisAddr)
	return dedup.NewRedis(rdb, cfg.DedupTTL)
}
