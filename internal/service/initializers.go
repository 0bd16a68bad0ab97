// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/internal/config"
	"github.com/xkilldash9x/formrl/internal/learning"
	"github.com/xkilldash9x/formrl/internal/reward"
	"github.com/xkilldash9x/formrl/internal/store"
	"github.com/xkilldash9x/formrl/internal/trainer"
)

// InitializeStore opens the configured knowledge backend. The returned pool
// is nil for the file backend; otherwise the caller must close it.
func InitializeStore(ctx context.Context, cfg config.Interface, logger *zap.Logger) (store.KnowledgeStore, *pgxpool.Pool, error) {
	p := cfg.Persistence()
	switch p.Backend {
	case "", "file":
		fs, err := store.NewFileStore(p.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("File knowledge store initialized.", zap.String("path", fs.Path()))
		return fs, nil, nil

	case "postgres":
		if cfg.Database().URL == "" {
			return nil, nil, fmt.Errorf("database URL is not configured (hint: check FORMRL_DATABASE_URL)")
		}
		pool, err := connectPool(ctx, cfg.Database().URL)
		if err != nil {
			return nil, nil, err
		}
		ps, err := store.NewPostgresStore(ctx, pool, p.Name, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize database store: %w", err)
		}
		logger.Debug("Postgres knowledge store initialized.", zap.String("name", p.Name))
		return ps, pool, nil
	}
	return nil, nil, fmt.Errorf("unsupported persistence backend: %s", p.Backend)
}

func connectPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	// One agent writes one row; a small pool is plenty.
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// InitializeAgent builds an empty agent from the learning configuration.
func InitializeAgent(cfg config.LearningConfig, logger *zap.Logger) (*learning.Agent, error) {
	params := learning.Params{
		LearningRate:   cfg.LearningRate,
		DiscountFactor: cfg.DiscountFactor,
		Epsilon:        cfg.Epsilon,
		EpsilonDecay:   cfg.EpsilonDecay,
		EpsilonMin:     cfg.EpsilonMin,
	}
	return learning.NewAgent(params,
		learning.WithSeed(cfg.Seed),
		learning.WithLogger(logger),
		learning.WithHistorySize(cfg.HistorySize),
	)
}

// TrainerConfig translates the application config into run bounds and
// reward shaping.
func TrainerConfig(cfg config.Interface) trainer.Config {
	t := cfg.Training()
	r := cfg.Reward()
	return trainer.Config{
		MaxEpisodes: t.MaxEpisodes,
		MaxSteps:    t.MaxSteps,
		Mastery: learning.MasteryRule{
			MinEpisodes: t.Mastery.MinEpisodes,
			Streak:      t.Mastery.Streak,
			Window:      t.Mastery.Window,
			Rate:        t.Mastery.Rate,
		},
		Shaper: reward.NewShaper(r.TerminalBonus, r.RegressionPenalty, r.ProgressScale),
		Table:  reward.DefaultTable(),
	}
}
