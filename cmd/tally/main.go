package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tallyloyalty/tally/internal/backup"
	"github.com/tallyloyalty/tally/internal/config"
	"github.com/tallyloyalty/tally/internal/database"
	"github.com/tallyloyalty/tally/internal/logging"
	"github.com/tallyloyalty/tally/internal/push"
	"github.com/tallyloyalty/tally/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			slog.Error("failed to generate jwt secret", "error", err)
			os.Exit(1)
		}
		jwtSecret = hex.EncodeToString(buf)
		logger.Warn("TALLY_JWT_SECRET not set; generated an ephemeral secret, sessions will not survive restarts")
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.PushSubscriber,
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			slog.Error("failed to generate VAPID keys", "error", err)
			os.Exit(1)
		}
		pushCfg.VAPIDPublicKey = pub
		pushCfg.VAPIDPrivateKey = priv
		logger.Info("generated VAPID keys; set TALLY_VAPID_PUBLIC_KEY and TALLY_VAPID_PRIVATE_KEY to keep subscriptions across restarts",
			"public_key", pub)
	}

	srv := server.New(db, server.Config{
		JWTSecret:     []byte(jwtSecret),
		SecureCookies: cfg.SecureCookies,
		Push:          pushCfg,
	}, logger)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		DBPath:       cfg.DBPath,
		Passphrase:   cfg.BackupPassphrase,
		ScheduleHour: cfg.BackupHour,
	}, db, logger.With("component", "backup"))

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	backupMgr.Start(rootCtx)
	defer backupMgr.Stop()

	// Periodic rate limiter cleanup
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
