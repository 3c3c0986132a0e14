// Package main is the entry point for the Stockroom API server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/app"
	"stockroom/internal/core/config"
	appctx "stockroom/internal/core/context"
	"stockroom/internal/domain/auth"
	v1 "stockroom/internal/infrastructure/http/v1"
	"stockroom/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting stockroom server", "env", cfg.App.Env, "storage", cfg.Storage.Driver)

	// --- Storage ---
	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer storage.Close()

	services := app.NewServices(storage, cfg.Ledger.ReceivingLocationCode)

	// --- JWT Service ---
	jwtService, err := newJWTService(cfg, log)
	if err != nil {
		log.Fatalw("failed to configure jwt", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Services:      services,
		Ping:          storage.Ping,
		StorageDriver: cfg.Storage.Driver,
		Version:       version,
		Logger:        log,
		JWTValidator:  jwtService,
		Debug:         cfg.IsDevelopment(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// newJWTService builds the token validator. In development without a
// secret, an ephemeral one is generated and an admin token is logged.
func newJWTService(cfg *config.Config, log *logger.Logger) (*auth.JWTService, error) {
	secret := cfg.JWT.Secret
	devBootstrap := secret == "" && cfg.IsDevelopment()
	if devBootstrap {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate dev secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
	}

	jwtConfig := auth.DefaultJWTConfig(secret, cfg.JWT.Issuer)
	if devBootstrap {
		jwtConfig.AccessTokenTTL = 12 * time.Hour
	}
	svc, err := auth.NewJWTService(jwtConfig)
	if err != nil {
		return nil, err
	}

	if devBootstrap {
		token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{UserID: "dev-admin", IsAdmin: true})
		if err != nil {
			return nil, err
		}
		log.Warnw("jwt.secret not set; using an ephemeral development secret",
			"admin_token", token,
			"expires_at", expiresAt,
		)
	}
	return svc, nil
}
