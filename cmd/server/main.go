package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/vylarc/backend/docs"
	"github.com/vylarc/backend/internal/audit"
	"github.com/vylarc/backend/internal/config"
	"github.com/vylarc/backend/internal/database"
	"github.com/vylarc/backend/internal/handlers"
	"github.com/vylarc/backend/internal/logger"
	mW "github.com/vylarc/backend/internal/middleware"
	"github.com/vylarc/backend/internal/services"
)

// @title Vylarc Credits API
// @version 1.0
// @description Atomic credit ledger: balances, metered charges, grants and purchase webhooks
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfgErr := loadConfig()

	log, err := logger.Initialize(logger.Config{
		Debug: viper.GetBool("log.debug"),
		Level: viper.GetString("log.level"),
	})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfgErr != nil {
		log.Info("config file not found, using environment", zap.Error(cfgErr))
	}

	creditsCfg, err := config.LoadCreditsConfig(viper.GetViper())
	if err != nil {
		log.Fatal("invalid credits configuration", zap.Error(err))
	}

	jwtKey, err := jwtSecretKey(viper.GetViper())
	if err != nil {
		log.Fatal("invalid jwt configuration", zap.Error(err))
	}

	docs.SwaggerInfo.Host = viper.GetString("server.public_host")

	ctx := context.Background()

	db, err := database.InitDB(ctx, database.GetConfig(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient := database.InitRedis(ctx, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditLogger := audit.NewLogger(log, redisClient)
	policy := services.NewEmailBypassPolicy(db, creditsCfg.AdminEmail)
	creditService := services.NewCreditService(db, creditsCfg, policy, auditLogger, log)
	gateway := services.NewWebhookGateway(db, creditService, services.NewSKUResolver(creditsCfg.SKUCatalog),
		creditsCfg.WebhookSecret, creditsCfg.LockRetries, auditLogger, log)

	r := newRouter(routerDeps{
		webhookHeader: creditsCfg.WebhookSecretHeader,
		auth:          mW.NewAuth(jwtKey),
		credits:       handlers.NewCreditsHandler(creditService, creditsCfg.LockRetries, log),
		admin:         handlers.NewAdminHandler(creditService, creditsCfg.LockRetries, log),
		webhook:       handlers.NewWebhookHandler(gateway, creditService, creditsCfg.WebhookSecretHeader, log),
	})

	port := viper.GetString("server.port")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func loadConfig() error {
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	viper.BindEnv("credits.webhook_secret", "CREDITS_WEBHOOK_SECRET")
	viper.BindEnv("credits.webhook_secret_header", "CREDITS_WEBHOOK_SECRET_HEADER")
	viper.BindEnv("credits.admin_email", "ADMIN_EMAIL")
	viper.BindEnv("credits.sku_catalog", "CREDITS_SKU_CATALOG")
	viper.BindEnv("credits.action_costs", "CREDITS_ACTION_COSTS")
	viper.BindEnv("credits.lock_timeout", "CREDITS_LOCK_TIMEOUT")
	viper.BindEnv("credits.lock_retries", "CREDITS_LOCK_RETRIES")

	viper.BindEnv("log.debug", "LOG_DEBUG")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.public_host", "PUBLIC_HOST")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.public_host", "localhost:8080")

	return viper.ReadInConfig()
}

func jwtSecretKey(v *viper.Viper) (string, error) {
	key := v.GetString("jwt.secret_key")
	if strings.TrimSpace(key) == "" {
		return "", errors.New("jwt.secret_key (JWT_SECRET_KEY) must be set")
	}
	return key, nil
}

type routerDeps struct {
	webhookHeader string
	auth          *mW.Auth
	credits       *handlers.CreditsHandler
	admin         *handlers.AdminHandler
	webhook       *handlers.WebhookHandler
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", d.webhookHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		// Authenticated by shared secret, not by session
		r.Post("/webhooks/purchase", d.webhook.Purchase)

		r.Group(func(r chi.Router) {
			r.Use(d.auth.Middleware)

			r.Get("/credits/balance", d.credits.GetBalance)
			r.Get("/credits/history", d.credits.GetHistory)
			r.Post("/credits/charge", d.credits.Charge)

			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)
				r.Post("/admin/credits/grant", d.admin.GrantCredits)
				r.Post("/admin/credits/accounts/{userID}", d.admin.EnsureAccount)
			})
		})
	})

	return r
}
