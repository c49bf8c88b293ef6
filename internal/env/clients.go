package environment

import (
	"context"
	"log/slog"

	"intogame-backend/internal/config"
	"intogame-backend/internal/infra/postgres"
	"intogame-backend/internal/infra/yookassa"
)

type Clients struct {
	PostgresDB *postgres.DB
	// YooKassa is nil when shop credentials are not configured; payment
	// endpoints then answer with an error instead of the process crashing.
	YooKassa *yookassa.Client
}

func newClients(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Clients, error) {
	postgresDB, err := providePostgresDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Clients{
		PostgresDB: postgresDB,
		YooKassa:   provideYooKassaClient(cfg, logger),
	}, nil
}

func providePostgresDB(ctx context.Context, cfg config.Config) (*postgres.DB, error) {
	opts := []postgres.Option{
		postgres.WithDSN(cfg.DB.DSN),
		postgres.WithMaxOpenConns(cfg.DB.MaxOpenConns),
		postgres.WithMaxIdleConns(cfg.DB.MaxIdleConns),
		postgres.WithConnMaxLifetime(cfg.DB.MaxLifetime),
	}

	return postgres.New(ctx, opts...)
}

func provideYooKassaClient(cfg config.Config, logger *slog.Logger) *yookassa.Client {
	if !cfg.YooKassa.Configured() {
		logger.Warn("YooKassa credentials are not configured, payment endpoints are degraded")
		return nil
	}

	return yookassa.NewClient(
		cfg.YooKassa.ShopID,
		cfg.YooKassa.SecretKey,
		logger.WithGroup("yookassa"),
		yookassa.WithBaseURL(cfg.YooKassa.APIURL),
		yookassa.WithTimeout(cfg.YooKassa.Timeout),
		yookassa.WithRateLimit(cfg.YooKassa.RateLimit.RPS, cfg.YooKassa.RateLimit.Burst),
	)
}
