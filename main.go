package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"feetfit/internal/cache"
	"feetfit/internal/config"
	"feetfit/internal/db"
	"feetfit/internal/gait"
	"feetfit/internal/http/handlers"
	appmw "feetfit/internal/http/middleware"
	"feetfit/internal/logging"
	"feetfit/internal/metrics"
	"feetfit/internal/stream"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "feetfit")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		logger.Fatal("failed to ensure bootstrap admin", zap.Error(err))
	}
	if cfg.InternalAPIKey != "" {
		if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
			logger.Warn("failed to ensure bootstrap API key", zap.Error(err))
		} else {
			logger.Info("internal API key configured and associated with admin user")
		}
	}

	metrics.Register(prometheus.DefaultRegisterer)

	gaitCfg := gait.DefaultConfig()
	if cfg.GaitConfigPath != "" {
		gaitCfg, err = gait.LoadConfig(cfg.GaitConfigPath)
		if err != nil {
			logger.Fatal("failed to load gait config", zap.String("path", cfg.GaitConfigPath), zap.Error(err))
		}
	}
	analyzer, err := gait.NewAnalyzer(gaitCfg, gait.RoleMap{Left: cfg.LeftFootDevice, Right: cfg.RightFootDevice})
	if err != nil {
		logger.Fatal("invalid gait config", zap.Error(err))
	}

	var reports *cache.ReportCache
	redisClient, err := cache.Connect(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn("report cache disabled", zap.Error(err))
	case redisClient != nil:
		defer redisClient.Close()
		reports = cache.NewReportCache(cache.NewRedisKVStore(redisClient), cfg.ReportCacheTTL, logger)
		logger.Info("report cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	db.StartRetentionWorker(ctx, sqlDB, logger)

	worker := &db.AnalysisWorker{
		DB:       sqlDB,
		Analyzer: analyzer,
		Interval: cfg.AnalysisInterval,
		Logger:   logger,
		OnReport: func(r *db.GaitReport, res gait.Result) {
			metrics.SetLastMetrics(res.Metrics)
			_ = reports.Put(ctx, cache.FromReport(r))
		},
		OnOutcome: func(outcome string, took time.Duration) {
			metrics.ObserveAnalysis(db.TriggerWorker, outcome, took)
		},
	}
	worker.Start(ctx)

	if cfg.MQTTBroker != "" {
		client, err := stream.NewClient(cfg, logger)
		if err != nil {
			logger.Error("MQTT stream disabled", zap.String("broker", cfg.MQTTBroker), zap.Error(err))
		} else {
			store := func(ctx context.Context, rows []db.SensorSample) error {
				return db.InsertSamples(ctx, sqlDB, rows)
			}
			retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
			consumer := stream.NewConsumer(client, cfg.MQTTTopic, store, retention, logger)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					logger.Error("MQTT consumer failed", zap.Error(err))
				}
			}()
			defer consumer.Stop()
		}
	}

	r := router.New()

	// Global middleware chain: request logger, CORS, request metrics, then router
	handler := handlers.RequestLogger(logger)(appmw.CORS(cfg.CORSOrigins)(appmw.RequestMetrics(r.Handler)))

	bearer := appmw.BearerAuth(sqlDB)
	session := appmw.AdminAuth(sqlDB, cfg)
	admin := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return session(appmw.RequireAdmin(h))
	}

	r.GET("/healthz", handlers.Healthz(sqlDB))
	r.GET("/", handlers.Banner())

	r.POST("/login", handlers.LoginSubmit(sqlDB))
	r.POST("/logout", handlers.Logout())
	r.POST("/account/password", session(handlers.ChangePasswordSelf(sqlDB, cfg)))

	r.POST("/v1/samples", bearer(handlers.IngestSamples(sqlDB, cfg)))

	r.POST("/v1/analysis/gait", bearer(handlers.AnalyzeGait(sqlDB, analyzer, reports, logger)))
	r.GET("/v1/analysis/history", bearer(handlers.AnalysisHistory(sqlDB)))
	r.GET("/v1/analysis/latest", bearer(handlers.LatestAnalysis(sqlDB, reports)))
	r.GET("/v1/analysis/{id}", bearer(handlers.GetAnalysis(sqlDB, reports)))
	r.GET("/v1/analysis/{id}/export", bearer(handlers.ExportAnalysis(sqlDB)))

	r.GET("/v1/devices", bearer(handlers.Devices(sqlDB)))
	r.GET("/v1/data/stats", bearer(handlers.DataStats(sqlDB)))
	r.GET("/v1/metrics/realtime", bearer(handlers.RealtimeMetrics(sqlDB)))
	r.GET("/v1/pressure/frames", bearer(handlers.PressureFrames(sqlDB)))
	r.GET("/v1/pressure/stats", bearer(handlers.PressureStats(sqlDB)))

	r.GET("/metrics", admin(handlers.MetricsHandler(prometheus.DefaultGatherer)))

	r.GET("/admin/users", admin(handlers.ListUsers(sqlDB)))
	r.POST("/admin/users/create", admin(handlers.CreateUser(sqlDB)))
	r.POST("/admin/users/{id}/reset-password", admin(handlers.ResetPassword(sqlDB, cfg)))
	r.POST("/admin/users/{id}/delete", admin(handlers.DeleteUser(sqlDB, cfg)))

	r.GET("/admin/apikeys", session(handlers.ListAPIKeys(sqlDB)))
	r.POST("/admin/apikeys/create", session(handlers.CreateAPIKey(sqlDB, cfg)))
	r.POST("/admin/apikeys/delete", session(handlers.DeleteAPIKey(sqlDB, cfg)))
	r.POST("/admin/apikeys/set-active", session(handlers.SetActiveAPIKey(sqlDB)))

	server := &fasthttp.Server{
		Handler:            handler,
		Name:               "feetfit",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       60 * time.Second,
		MaxRequestBodySize: 32 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("feetfit listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}
