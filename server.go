package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/middlewares"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/utils"
	"github.com/stitchline/store_backend/workflow"
	"gorm.io/gorm"
)

const defaultPort = "8080"

// correlationIdMiddleware propagates x-correlation-id, minting one when absent.
func correlationIdMiddleware(c *gin.Context) {
	cid := c.GetHeader("x-correlation-id")
	if cid == "" {
		cid = uuid.NewString()
	}
	c.Header("x-correlation-id", cid)
	c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
	c.Next()
}

// readinessGate answers /healthz itself and 503s everything else until the
// database handle is installed. Redis is optional.
func readinessGate(c *gin.Context) {
	if c.Request.URL.Path == "/healthz" {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	if config.GetDB() == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service not ready"})
		return
	}
	c.Next()
}

// corsMiddleware allows any origin outside production; production only
// allows CORS_ALLOWED_ORIGINS.
func corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if config.IsProduction() {
		corsConfig.AllowOrigins = config.CORSAllowedOrigins()
		corsConfig.AllowCredentials = true
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Disposition", "x-correlation-id")
	return cors.New(corsConfig)
}

// setupRouter builds the full route table.
func setupRouter(logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(correlationIdMiddleware, readinessGate, corsMiddleware())
	if config.RateLimitEnabled() {
		limit, window := config.RateLimitPolicy()
		r.Use(NewRateLimiter(config.GetRedisDB, limit, window).RateLimitMiddleware)
	}
	r.Use(middlewares.AuthMiddleware(), middlewares.SessionMiddleware(), customErrorLogger(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/services/:id/availability", availabilityHandler())

	internal := r.Group("/internal", middlewares.RequireAdmin(config.GetDB))
	internal.POST("/orders/:id/complete", completeOrderHandler(logger))
	internal.GET("/orders/:id/distributions", orderDistributionsHandler())
	internal.GET("/orders/:id/distributions/export", exportDistributionsHandler())
	internal.POST("/orders/:id/distributions/archive", archiveDistributionsHandler())
	internal.POST("/ops/reconcile", reconcileHandler(logger))
	internal.POST("/ops/outbox/replay", outboxReplayHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

// listenPort prefers API_PORT, then the PORT variable Cloud Run injects.
func listenPort() string {
	for _, key := range []string{"API_PORT", "PORT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return defaultPort
}

// startWorkers runs the outbox dispatcher and the reconciliation cron until
// the returned stop func is called.
func startWorkers(db *gorm.DB, logger *logrus.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	if config.OutboxDispatcherEnabled() {
		go workflow.NewOutboxDispatcher(db, logger).Run(ctx)
	} else {
		logger.WithFields(logrus.Fields{"field": "outbox"}).Warn("OUTBOX_DISPATCHER_ENABLED=false; settlement events stay queued")
	}

	scheduler := workflow.NewScheduler(ctx, logger)
	spec := config.ReconciliationSchedule()
	if err := scheduler.ScheduleAllocationReconciliation(spec, db); err != nil {
		config.LogError(logger, "server.go", "startWorkers", "schedule reconciliation", spec, err)
	}
	scheduler.Start()

	return func() {
		cancel()
		scheduler.Stop()
	}
}

func main() {
	port := listenPort()
	logger := config.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Listen first; routes answer 503 until the database is connected.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           setupRouter(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"field": "http"}).Info("listening on port ", port)

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()

	if config.SkipMigrations() {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	} else {
		models.MigrateTable()
	}
	stopWorkers := startWorkers(db, logger)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Workers stop before the drain so no new settlement events are claimed.
	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	config.ClosePubSub()
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// customErrorLogger logs c.Errors once the handler chain finishes.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
