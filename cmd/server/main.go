package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"ukepenger/internal/api"
	"ukepenger/internal/api/handlers"
	"ukepenger/internal/api/middleware"
	"ukepenger/internal/engine/access"
	"ukepenger/internal/engine/catalog"
	"ukepenger/internal/engine/claims"
	"ukepenger/internal/engine/pairing"
	"ukepenger/internal/engine/payments"
	"ukepenger/internal/pkg/logger"
	"ukepenger/internal/platform/audit"
	"ukepenger/internal/platform/auth"
	"ukepenger/internal/platform/config"
	"ukepenger/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Services
	tokenSvc := auth.NewTokenService(cfg.Auth)
	pairingSvc := pairing.NewService(db, cfg.Session.SigningKey, cfg.Session.PairingKey, cfg.Server.PublicBaseURL)
	catalogSvc := catalog.NewService(db)
	claimsSvc := claims.NewService(db, cfg.Claims.Cooldown)
	paymentsSvc := payments.NewService(db)
	auditLogger := audit.NewLogger(db)
	resolver := access.NewResolver(db, tokenSvc, pairingSvc, cfg.Session.KioskCookieName)

	cookies := handlers.NewCookies(cfg.Session)

	// Middleware
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	deps := &api.Dependencies{
		PairingHandler:   handlers.NewPairingHandler(pairingSvc, auditLogger, cookies),
		KidsHandler:      handlers.NewKidsHandler(catalogSvc, claimsSvc, cookies),
		ClaimHandler:     handlers.NewClaimHandler(claimsSvc, auditLogger),
		PaymentHandler:   handlers.NewPaymentHandler(paymentsSvc, auditLogger),
		CatalogHandler:   handlers.NewCatalogHandler(catalogSvc, auditLogger),
		AuditHandler:     handlers.NewAuditHandler(auditLogger),
		HealthHandler:    handlers.NewHealthHandler(db),
		AuthMiddleware:   middleware.NewAuthMiddleware(resolver),
		TenantMiddleware: middleware.NewTenantMiddleware(db),
		RateLimiter:      rateLimiter,
		PairingPerMinute: cfg.RateLimit.PairingPerMinute,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      middleware.Recover(middleware.Logging(router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	auditLogger.Wait()
}
