package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/upstac/upstac/internal/config"
	"github.com/upstac/upstac/internal/domain/testrequest"
	"github.com/upstac/upstac/internal/platform/db"
)

// store bundles the repository with what the server needs around it.
type store struct {
	driver   string
	requests testrequest.Repository
	tx       testrequest.TxRunner // nil for sqlite
	health   echo.HandlerFunc
	close    func()
}

func (s *store) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("connected to postgres")
		return &store{
			driver:   config.StoragePostgres,
			requests: testrequest.NewRequestRepoPG(pool),
			tx:       db.NewTxRunner(pool),
			health:   db.PoolHealthHandler(pool),
			close:    pool.Close,
		}, nil

	case config.StorageSQLite:
		repo, err := testrequest.NewSQLiteRepo(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &store{
			driver:   config.StorageSQLite,
			requests: repo,
			health:   db.HealthHandler(config.StorageSQLite, repo, nil),
			close: func() {
				if err := repo.Close(); err != nil {
					logger.Warn().Err(err).Msg("closing sqlite store")
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// newWorkflow wires the service and query side over a store.
func newWorkflow(s *store, logger zerolog.Logger, metrics *testrequest.Metrics) (*testrequest.Service, *testrequest.QueryService) {
	svc := testrequest.NewService(s.requests)
	svc.SetLogger(logger)
	if s.tx != nil {
		svc.SetTxRunner(s.tx)
	}
	if metrics != nil {
		svc.SetMetrics(metrics)
	}
	return svc, testrequest.NewQueryService(s.requests)
}
