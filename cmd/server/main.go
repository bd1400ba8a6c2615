package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"restoran-kasa/internal/admin"
	"restoran-kasa/internal/api"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/auth"
	"restoran-kasa/internal/cache"
	"restoran-kasa/internal/cashflow"
	"restoran-kasa/internal/config"
	"restoran-kasa/internal/dashboard"
	"restoran-kasa/internal/database"
	"restoran-kasa/internal/logger"
	"restoran-kasa/internal/metrics"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store/gormstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Konfigürasyon yüklenemedi")
	}

	log := logger.New("restoran-kasa", cfg.LogLevel)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	db, err := database.Init(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Veritabanı başlatılamadı")
	}

	// Redis opsiyonel: yoksa cache kapalı çalışır
	var kasaCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Redis bağlantısı kurulamadı, cache devre dışı")
		} else {
			defer client.Close()
			kasaCache = cache.NewRedisCache(client, cfg.CacheTTL)
			log.WithField("addr", cfg.RedisAddr).Info("Redis cache aktif")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := cashflow.NewService(
		gormstore.New(db),
		cashflow.WithLogger(log),
		cashflow.WithCache(kasaCache),
		cashflow.WithMetrics(m),
		cashflow.WithLocation(cfg.Timezone),
	)
	if n, err := svc.SyncActiveSessions(context.Background()); err != nil {
		log.WithError(err).Warn("active_sessions başlangıç değeri okunamadı")
	} else {
		log.WithField("active_sessions", n).Info("Aktif oturum sayısı yüklendi")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler(log),
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logger.RequestLogger(log, auth.CtxUserIDKey))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r := app.Group("/api")

	// Public auth
	r.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	r.Post("/auth/login", auth.LoginHandler(db, cfg.JWTSecret))

	// Protected
	protected := r.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Kasa, hazine ve raporlar
	cashflow.RegisterRoutes(protected, svc)
	protected.Get("/dashboard/cash-chart",
		auth.RequireRole(models.RoleSupervisor, models.RoleTreasurer, models.RoleAdmin),
		dashboard.CashChartHandler(svc),
	)

	// Admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/cash-registers", admin.CreateCashRegisterHandler(db, log))
	adminRoutes.Get("/cash-registers", admin.ListCashRegistersHandler(db))
	adminRoutes.Get("/cash-registers/:id", admin.GetCashRegisterHandler(db))
	adminRoutes.Put("/cash-registers/:id", admin.UpdateCashRegisterHandler(db, log))

	adminRoutes.Post("/users", admin.CreateUserHandler(db, log))
	adminRoutes.Get("/users", admin.ListUsersHandler(db))

	// Audit logs
	protected.Get("/audit-logs",
		auth.RequireRole(models.RoleAdmin, models.RoleSupervisor),
		audit.ListAuditLogsHandler(db),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Kapatılıyor...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Shutdown hatası")
		}
	}()

	log.WithField("port", cfg.HTTPPort).Info("Server çalışıyor")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Fatal("Server durdu")
	}
}
