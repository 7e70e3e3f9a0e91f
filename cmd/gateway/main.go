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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tesseract-hub/dashboard-gateway/internal/batch"
	"github.com/tesseract-hub/dashboard-gateway/internal/config"
	"github.com/tesseract-hub/dashboard-gateway/internal/device"
	"github.com/tesseract-hub/dashboard-gateway/internal/email"
	"github.com/tesseract-hub/dashboard-gateway/internal/handlers"
	"github.com/tesseract-hub/dashboard-gateway/internal/identity"
	"github.com/tesseract-hub/dashboard-gateway/internal/metrics"
	"github.com/tesseract-hub/dashboard-gateway/internal/middleware"
	"github.com/tesseract-hub/dashboard-gateway/internal/ratelimit"
	"github.com/tesseract-hub/dashboard-gateway/internal/registry"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantdir"
	"github.com/tesseract-hub/dashboard-gateway/internal/tenantpool"
)

func main() {
	cfg := config.New()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := registry.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	metricsCollector := metrics.New()

	repo := registry.New(db)
	directory := tenantdir.New(repo)
	pool := tenantpool.New(cfg.TenantPool.DefaultPort, cfg.TenantPool.MaxConns)
	defer pool.Close()

	resolver := identity.NewResolver(cfg.Supabase.JWTSecret)
	adminClient := identity.NewAdminClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)

	deviceStore := device.New(repo)
	composer := email.NewComposer()
	sender := email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)

	limiter := ratelimit.New()

	executor := batch.New(repo, pool, metricsCollector)

	healthHandler := handlers.NewHealthHandler(db)
	batchHandler := handlers.NewBatchHandler(directory, executor)
	deviceHandler := handlers.NewDeviceHandler(deviceStore, composer, sender, adminClient, confirmBaseURL(cfg))
	adminHandler := handlers.NewAdminHandler(repo, adminClient)
	customerHandler := handlers.NewCustomerHandler(directory, pool)

	router := setupRouter(routerDeps{
		cfg:       cfg,
		resolver:  resolver,
		limiter:   limiter,
		metrics:   metricsCollector,
		device:    deviceStore,
		health:    healthHandler,
		batch:     batchHandler,
		deviceH:   deviceHandler,
		admin:     adminHandler,
		customer:  customerHandler,
	})

	port := cfg.Server.Port
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting dashboard-gateway on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func confirmBaseURL(cfg *config.Config) string {
	if cfg.Email.DeviceConfirmURL != "" {
		return cfg.Email.DeviceConfirmURL
	}
	return cfg.Email.AppBaseURL + "/confirmDevice"
}

type routerDeps struct {
	cfg      *config.Config
	resolver *identity.Resolver
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
	device   *device.Store
	health   *handlers.HealthHandler
	batch    *handlers.BatchHandler
	deviceH  *handlers.DeviceHandler
	admin    *handlers.AdminHandler
	customer *handlers.CustomerHandler
}

func setupRouter(d routerDeps) *gin.Engine {
	if getEnv("GIN_MODE", "debug") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.CORS(d.cfg.CORS.AllowedOrigin))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger())
	router.Use(d.metrics.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", d.health.Health)
	router.GET("/ready", d.health.Ready)

	auth := middleware.Auth(d.resolver)
	requireAdmin := middleware.RequireRole("admin")
	requireApproved := middleware.RequireDeviceApproved(d.device)
	defaultWindow := time.Duration(d.cfg.RateLimit.DefaultWindowSeconds) * time.Second
	defaultMax := d.cfg.RateLimit.DefaultMax

	rateLimit := func(endpoint string, max int, window time.Duration) gin.HandlerFunc {
		return middleware.RateLimit(d.limiter, d.metrics, endpoint, max, window)
	}

	router.POST("/fetchUserData",
		rateLimit("fetchUserData", defaultMax, defaultWindow),
		auth,
		d.batch.FetchUserData,
	)

	router.POST("/registerLoginEvent",
		rateLimit("registerLoginEvent", 20, 60*time.Second),
		auth,
		d.deviceH.RegisterLoginEvent,
	)

	router.POST("/checkDeviceStatus",
		rateLimit("checkDeviceStatus", 30, 60*time.Second),
		auth,
		d.deviceH.CheckDeviceStatus,
	)

	router.GET("/confirmDevice", d.deviceH.ConfirmDeviceGET)
	router.POST("/confirmDevice", d.deviceH.ConfirmDevicePOST)

	router.POST("/manageTable",
		rateLimit("manageTable", defaultMax, defaultWindow),
		auth, requireAdmin, requireApproved,
		d.admin.ManageTable,
	)
	router.POST("/manageGraph",
		rateLimit("manageGraph", defaultMax, defaultWindow),
		auth, requireAdmin, requireApproved,
		d.admin.ManageGraph,
	)

	router.POST("/registerUser",
		rateLimit("registerUser", 10, 60*time.Second),
		auth, requireAdmin, requireApproved,
		d.admin.RegisterUser,
	)

	router.POST("/listCompanies",
		rateLimit("listCompanies", 30, 60*time.Second),
		auth, requireAdmin, requireApproved,
		d.admin.ListCompanies,
	)

	router.POST("/toggleCustomerPaused",
		rateLimit("toggleCustomerPaused", 10, 60*time.Second),
		auth, requireApproved,
		d.customer.ToggleCustomerPaused,
	)

	return router
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.CentralDB.Host, cfg.CentralDB.Port, cfg.CentralDB.User,
		cfg.CentralDB.Password, cfg.CentralDB.Name, cfg.CentralDB.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	logrus.Info("Connected to central registry database")
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
