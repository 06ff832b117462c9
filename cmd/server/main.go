package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecp-air/airquality-backend/internal/aqi"
	"github.com/ecp-air/airquality-backend/internal/auth"
	"github.com/ecp-air/airquality-backend/internal/config"
	"github.com/ecp-air/airquality-backend/internal/httpapi"
	"github.com/ecp-air/airquality-backend/internal/mailer"
	"github.com/ecp-air/airquality-backend/internal/middleware"
	"github.com/ecp-air/airquality-backend/internal/nodesvc"
	"github.com/ecp-air/airquality-backend/internal/notifysvc"
	"github.com/ecp-air/airquality-backend/internal/store"
	"github.com/ecp-air/airquality-backend/internal/tsdb"
	"github.com/ecp-air/airquality-backend/internal/usersvc"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	defer logger.Sync()

	logger.Info("starting air quality backend",
		zap.String("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
	)

	// Relational store
	db, err := store.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close(db)

	// Time-series store
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tsClient, err := tsdb.NewClient(ctx, cfg.Influx, logger)
	if err != nil {
		logger.Fatal("time-series store connection failed", zap.Error(err))
	}
	defer tsClient.Close()

	// Stores
	nodes := store.NewNodes(db)
	users := store.NewUsers(db)
	subs := store.NewSubscriptions(db)

	// Email worker
	mail := mailer.New(cfg.SMTP, logger)
	queue := mailer.NewWorker(256, logger)
	go queue.Run(ctx)

	// Services
	jwtManager := auth.NewJWTManager(&cfg.JWT)
	guard := aqi.NewGuard(nodes)
	aqiService := aqi.NewService(tsClient, guard, logger)
	nodeService := nodesvc.New(nodes, tsClient, logger)
	userService := usersvc.New(users, jwtManager, mail, queue, logger)
	notifyService := notifysvc.New(subs, nodes, aqiService, mail, queue, aqi.DisplayZone(), logger)

	// Middleware
	authMiddleware := auth.NewMiddleware(jwtManager, logger)
	loggingMiddleware := middleware.NewLoggingMiddleware(logger)
	corsMiddleware := middleware.NewCORSMiddleware([]string{
		"http://localhost:5173",
		"http://localhost:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:3000",
		cfg.SMTP.BaseURL,
	}, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.Ingest.RatePerSecond, cfg.Ingest.Burst, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsMiddleware := middleware.NewMetricsMiddleware(registry)

	// Router
	router := mux.NewRouter()
	router.Use(corsMiddleware.EnableCORS)
	router.Use(loggingMiddleware.LogRequest)
	router.Use(metricsMiddleware.CollectMetrics)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// Open routes: node-token ingestion, public queries and subscriptions.
	// A presented Bearer token is still validated and attached.
	open := apiV1.NewRoute().Subrouter()
	open.Use(authMiddleware.Optional)
	httpapi.NewAQIHandler(aqiService, rateLimiter, logger).RegisterRoutes(open)

	userHandler := httpapi.NewUserHandler(userService, logger)
	userHandler.RegisterRoutes(open)

	notificationHandler := httpapi.NewNotificationHandler(notifyService, logger)
	notificationHandler.RegisterRoutes(open)

	// Protected routes require a valid session.
	protected := apiV1.NewRoute().Subrouter()
	protected.Use(authMiddleware.Require)
	httpapi.NewNodeHandler(nodeService, logger).RegisterRoutes(protected)
	userHandler.RegisterProtectedRoutes(protected)
	notificationHandler.RegisterAdminRoutes(protected)

	// Daily digest scheduler
	go runDigestSchedule(ctx, notifyService, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("server exited properly")
}

// digestSendHour is the local hour the digest batch is dispatched.
const digestSendHour = 8

// runDigestSchedule fires the daily digest once a day at the send hour in
// the platform timezone.
func runDigestSchedule(ctx context.Context, svc *notifysvc.Service, logger *zap.Logger) {
	zone := aqi.DisplayZone()
	for {
		now := time.Now().In(zone)
		next := time.Date(now.Year(), now.Month(), now.Day(), digestSendHour, 0, 0, 0, zone)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := svc.RunDailyDigest(ctx); err != nil {
			logger.Error("daily digest run failed", zap.Error(err))
		}
	}
}

// initLogger builds the logger from configuration.
func initLogger(cfg config.LoggingConfig) *zap.Logger {
	level := zap.InfoLevel
	_ = level.Set(cfg.Level)

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Printf("failed to create logger: %v, using default\n", err)
		return zap.NewExample()
	}
	return logger
}
