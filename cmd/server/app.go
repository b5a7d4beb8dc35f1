package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/campus-pulse/docs"
	"github.com/ZanzyTHEbar/campus-pulse/internal/auth"
	"github.com/ZanzyTHEbar/campus-pulse/internal/config"
	"github.com/ZanzyTHEbar/campus-pulse/internal/database"
	"github.com/ZanzyTHEbar/campus-pulse/internal/errors"
	"github.com/ZanzyTHEbar/campus-pulse/internal/insights"
	"github.com/ZanzyTHEbar/campus-pulse/internal/middleware"
	"github.com/ZanzyTHEbar/campus-pulse/internal/monitoring"
	"github.com/ZanzyTHEbar/campus-pulse/internal/ratelimit"
	"github.com/ZanzyTHEbar/campus-pulse/internal/resilience"
	"github.com/ZanzyTHEbar/campus-pulse/internal/security"
)

const version = "1.0.0"

// app owns every long-lived dependency of the HTTP server
type app struct {
	cfg     *config.Config
	db      *database.DB
	repo    *database.Repository
	service *insights.Service
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
	redis   *ratelimit.RedisClient
	limiter *ratelimit.RateLimiter
	health  *resilience.HealthChecker
	gzip    *middleware.CompressionMiddleware
}

func newApp(ctx context.Context, cfg *config.Config, logger *monitoring.Logger) (*app, error) {
	var db *database.DB
	err := resilience.Retry(ctx, func() error {
		var err error
		db, err = database.Open(ctx, database.Options{
			Driver:  cfg.DBDriver,
			DataDir: cfg.DataDir,
			URL:     cfg.DatabaseURL,
		})
		// a postgres server may still be starting; a local sqlite file will not recover
		if err != nil && cfg.DBDriver == database.DriverPostgres {
			return errors.NewUnavailableError("Database not reachable", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := database.NewRepository(db)
	if cfg.SeedDemoData {
		if err := database.Seed(ctx, repo, cfg.SeedValue); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	redisClient, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting uses in-memory buckets", "addr", cfg.RedisAddr, "error", err)
	}

	metrics := monitoring.NewMetrics()

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.IPLimitPerMin = cfg.IPRateLimitPerMin
	limitCfg.AdminLimitPerMin = cfg.AdminRateLimitPerMin

	opts := insights.DefaultOptions()
	opts.Workers = cfg.AnalyticsWorkers
	opts.FitTimeout = cfg.FitTimeout
	opts.PredictCacheTTL = cfg.PredictCacheTTL

	health := resilience.NewHealthChecker(2 * time.Second)
	health.Register("database", true, db.HealthCheck)
	if redisClient.IsEnabled() {
		health.Register("redis", false, redisClient.HealthCheck)
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		repo:    repo,
		service: insights.NewService(repo, opts, metrics, logger),
		metrics: metrics,
		logger:  logger,
		redis:   redisClient,
		limiter: ratelimit.NewRateLimiter(redisClient, limitCfg, metrics),
		health:  health,
		gzip:    middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
	}

	logger.SystemLogger("app_initialized", fmt.Sprintf("driver=%s workers=%d redis=%t", db.Driver(), a.service.PoolSize(), redisClient.IsEnabled()))
	return a, nil
}

func (a *app) Close() {
	a.service.Close()
	a.limiter.Close()
	errors.SafeClose(a.redis, "redis")
	errors.SafeClose(a.db, "database")
}

func (a *app) router() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(a.logger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", monitoring.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{monitoring.RequestIDHeader, "Retry-After"}
	if len(a.cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = a.cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	secCfg := security.DefaultSecurityConfig()
	secCfg.EnableHSTS = a.cfg.IsRelease()
	sm := security.NewSecurityMiddleware(secCfg)
	r.Use(sm.SecurityHeaders, sm.LimitBody, sm.ValidateContentType, sm.RequestTimeout)
	r.Use(a.gzip.Handler())
	r.Use(a.limiter.IPRateLimitMiddleware())

	r.GET("/health", a.handleHealth)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))

	h := &handlers{service: a.service}
	admin := a.limiter.EndpointRateLimitMiddleware

	api := r.Group("/api", auth.Middleware([]byte(a.cfg.JWTSecret), a.repo))
	{
		api.GET("/recommend_students", h.recommendStudents)
		api.GET("/trust_score/:user_id", h.trustScore)
		api.POST("/skill_gap", h.skillGap)
		api.GET("/projects", h.listProjects)
		api.POST("/mark_attendance", h.markAttendance)

		api.GET("/predict_attendance_risk/:user_id", auth.RequireSelfOrAdmin("user_id"), h.predictAttendanceRisk)
		api.GET("/attendance_summary/:user_id", auth.RequireSelfOrAdmin("user_id"), h.attendanceSummary)

		api.POST("/train_attendance_model", auth.RequireAdmin(), admin("train_attendance_model", a.cfg.AdminRateLimitPerMin), h.trainAttendanceModel)

		adminGroup := api.Group("/admin", auth.RequireAdmin())
		adminGroup.POST("/run_fake_detection", admin("run_fake_detection", a.cfg.AdminRateLimitPerMin), h.runFakeDetection)
		adminGroup.GET("/attendance_model", h.attendanceModel)
	}

	return r
}

// handleHealth godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Failure 503 {object} types.HealthResponse
// @Router /health [get]
func (a *app) handleHealth(c *gin.Context) {
	status, deps := a.health.Check(c.Request.Context())

	resp := gin.H{
		"status":       status,
		"timestamp":    time.Now().Format(time.RFC3339),
		"version":      version,
		"dependencies": deps,
		"pools": gin.H{
			"database":    a.db.GetPoolStats(),
			"redis":       a.redis.GetPoolStats(),
			"rate_limit":  a.limiter.GetStats(),
			"compression": a.gzip.GetStats(),
		},
		"metrics": a.metrics.GetStats(),
	}

	code := http.StatusOK
	if status == resilience.HealthUnavailable {
		code = http.StatusServiceUnavailable
		slog.Warn("Health check failed", "dependencies", deps)
	}
	c.JSON(code, resp)
}
