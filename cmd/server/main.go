package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripaudit/internal/audit/config"
	"tripaudit/internal/audit/handler"
	"tripaudit/internal/audit/model"
	"tripaudit/internal/audit/policy"
	"tripaudit/internal/audit/repository"
	"tripaudit/internal/audit/router"
	"tripaudit/internal/audit/service"
	"tripaudit/internal/audit/util"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		util.InitLogger("info")
		util.GetLogger().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel)
	logger := util.GetLogger()

	matrix, err := policy.Default()
	if err != nil {
		logger.Error("Failed to load permission matrix", "error", err)
		os.Exit(1)
	}

	// 2. Init MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	db := client.Database(cfg.DBName)

	// 3. Init Layers
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := util.NewMetrics(registry)

	auditRepo := repository.NewMongoAuditLogRepository(db, cfg.AuditLogsCollection, cfg.AuditRetention())
	versionRepo := repository.NewMongoVersionRepository(db, cfg.VersionsCollection)
	propertyStore := repository.NewMongoDocumentStore[model.Property, *model.Property](db, cfg.PropertiesCollection,
		mongo.IndexModel{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "status", Value: 1}}},
	)
	bookingStore := repository.NewMongoDocumentStore[model.Booking, *model.Booking](db, cfg.BookingsCollection,
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "check_in", Value: 1}}},
	)

	// Ensure Indexes
	for name, ensure := range map[string]func(context.Context) error{
		"audit_logs": auditRepo.EnsureIndexes,
		"versions":   versionRepo.EnsureIndexes,
		"properties": propertyStore.EnsureIndexes,
		"bookings":   bookingStore.EnsureIndexes,
	} {
		if err := ensure(context.Background()); err != nil {
			logger.Warn("Failed to ensure indexes", "collection", name, "error", err)
		}
	}

	auditLog := service.NewAuditLogService(auditRepo, metrics)
	versions := service.NewVersionService(versionRepo, cfg.VersionRetention(), cfg.VersionMaxRetries, metrics)

	properties := service.AttachAudit[model.Property, *model.Property](model.EntityProperty, propertyStore, auditLog, versions, service.AuditOptions{
		FieldsToTrack:    model.PropertyTrackedFields,
		EnableVersioning: true,
	})
	bookings := service.AttachAudit[model.Booking, *model.Booking](model.EntityBooking, bookingStore, auditLog, versions, service.AuditOptions{
		FieldsToTrack:    model.BookingTrackedFields,
		EnableVersioning: true,
	})

	sweeper, err := service.NewRetentionSweeper(versions, cfg.RetentionSchedule, metrics)
	if err != nil {
		logger.Error("Failed to schedule retention sweep", "error", err)
		os.Exit(1)
	}
	sweeper.Start()

	guard := handler.NewGuard(matrix, metrics)
	h := handler.NewHandler(auditLog, versions, properties, bookings, guard)

	// 4. Init Echo & Routes
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
				"latency", v.Latency,
			)
			return nil
		},
	}))

	router.RegisterRoutes(e, h, registry)

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "matrix_version", matrix.Version())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("shutting down the server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server Shutdown Failed", "error", err)
	}

	// Let a running sweep finish before the client goes away
	select {
	case <-sweeper.Stop().Done():
	case <-ctx.Done():
		logger.Warn("Retention sweep still running at shutdown")
	}

	if err := client.Disconnect(ctx); err != nil {
		logger.Error("Failed to disconnect DB", "error", err)
	}

	logger.Info("Server exited properly")
}
