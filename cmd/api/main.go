package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/martly/martly-api/internal/config"
	"github.com/martly/martly-api/internal/domain/auth"
	"github.com/martly/martly-api/internal/domain/cart"
	"github.com/martly/martly-api/internal/domain/catalog"
	"github.com/martly/martly-api/internal/domain/checkout"
	"github.com/martly/martly-api/internal/domain/notification"
	"github.com/martly/martly-api/internal/domain/order"
	"github.com/martly/martly-api/internal/domain/payment"
	"github.com/martly/martly-api/internal/domain/user"
	"github.com/martly/martly-api/internal/domain/wallet"
	"github.com/martly/martly-api/internal/middleware"
	"github.com/martly/martly-api/internal/pkg/database"
	"github.com/martly/martly-api/internal/pkg/jwt"
	"github.com/martly/martly-api/internal/pkg/logger"
	"github.com/martly/martly-api/internal/pkg/paystack"
	pkgresponse "github.com/martly/martly-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Martly API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	paystackClient := paystack.NewClient(paystack.Config{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
	})

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	cartRepo := cart.NewRepository(db)
	orderRepo := order.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// ---------- Services ----------
	notificationService := notification.NewService(notificationRepo, redis)
	authService := auth.NewService(userRepo, jwtService)
	walletService := wallet.NewService(db, walletRepo)
	orderService := order.NewService(db, orderRepo, walletRepo, notificationService, cfg.LockTimeout)
	checkoutService := checkout.NewService(db, cartRepo, catalogRepo, walletRepo, orderRepo, paymentRepo, notificationService, cfg.QRCodeTTL, cfg.LockTimeout)
	paymentService := payment.NewService(db, paymentRepo, userRepo, walletRepo, paystackClient, notificationService, cfg.LockTimeout)

	// ---------- Background workers ----------
	var sweepWorker *order.Worker
	if cfg.EscrowSweepEnabled {
		sweepWorker = order.NewWorker(orderService, cfg.EscrowSweepEvery)
		sweepWorker.Start()
		defer sweepWorker.Stop()
	}

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	walletHandler := wallet.NewHandler(walletService)
	catalogHandler := catalog.NewHandler(catalogRepo)
	cartHandler := cart.NewHandler(cartRepo)
	orderHandler := order.NewHandler(orderService)
	checkoutHandler := checkout.NewHandler(checkoutService)
	paymentHandler := payment.NewHandler(paymentService)
	notificationHandler := notification.NewHandler(notificationService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/products", catalogHandler.Routes(authMiddleware))
		r.Mount("/cart", cartHandler.Routes(authMiddleware))
		r.Mount("/checkout", checkoutHandler.Routes(authMiddleware))
		r.Mount("/orders", orderHandler.Routes(authMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
