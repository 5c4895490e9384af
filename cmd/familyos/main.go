package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prime3679/family-os-sub001/internal/archive"
	"github.com/prime3679/family-os-sub001/internal/database"
	"github.com/prime3679/family-os-sub001/internal/logging"
	"github.com/prime3679/family-os-sub001/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("FAMILYOS_LOG_LEVEL"))

	port := os.Getenv("FAMILYOS_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("FAMILYOS_DB_PATH")
	if dbPath == "" {
		dbPath = "familyos.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	archiveCfg := archive.Config{
		S3: archive.S3Config{
			Endpoint:  os.Getenv("FAMILYOS_ARCHIVE_ENDPOINT"),
			Bucket:    os.Getenv("FAMILYOS_ARCHIVE_BUCKET"),
			Region:    os.Getenv("FAMILYOS_ARCHIVE_REGION"),
			AccessKey: os.Getenv("FAMILYOS_ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("FAMILYOS_ARCHIVE_SECRET_KEY"),
		},
		Passphrase: os.Getenv("FAMILYOS_ARCHIVE_PASSPHRASE"),
	}

	srv := server.New(db, archiveCfg, logger)
	slog.Info("week archiving", "enabled", srv.ArchiveManager().Enabled())

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup(1 * time.Hour)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("familyos starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
