package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"palmpay/observability/logging"
	"palmpay/services/ledgerd"
	"palmpay/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := ledgerd.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("ledgerd", os.Getenv("LEDGERD_ENV"), logging.Options{})

	db, err := storage.NewLevelDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	server := ledgerd.NewServer(ledgerd.NewStore(db), cfg.JWTSecret,
		ledgerd.WithTokenTTL(cfg.TokenTTL),
		ledgerd.WithTopupBounds(cfg.TopupMin, cfg.TopupMax),
		ledgerd.WithLogger(slog.Default()),
	)
	srv := &http.Server{Addr: cfg.ListenAddress, Handler: server.Router()}

	go func() {
		slog.Info("ledger service listening", slog.String("address", cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down ledger service")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
