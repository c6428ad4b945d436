package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian-dms/internal/app"
	"github.com/meridian-dms/meridian-dms/internal/catalog"
	"github.com/meridian-dms/meridian-dms/internal/shared"
	"github.com/meridian-dms/meridian-dms/internal/users"
	"github.com/meridian-dms/meridian-dms/internal/vanstock"
	"github.com/meridian-dms/meridian-dms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	idempotency := shared.NewIdempotencyStore(pool)
	vanstockSvc := vanstock.NewService(
		vanstock.NewRepository(pool),
		catalog.NewService(catalog.NewRepository(pool)),
		users.NewService(users.NewRepository(pool)),
		shared.NewAuditLogger(pool),
		idempotency,
		nil,
		vanstock.ServiceConfig{Window: cfg.AdjustmentWindow},
	)

	server := jobs.NewServer(jobs.ServerParams{
		Logger:    logger,
		RedisAddr: cfg.RedisAddr,
		Sweeper:   jobs.NewVanstockSweeper(logger, vanstockSvc, idempotency, cfg.AdjustmentRetention),
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(ctx); err != nil {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
