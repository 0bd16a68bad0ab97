package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/internal/learning"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlCreateSnapshots = `
        CREATE TABLE IF NOT EXISTS knowledge_snapshots (
            name       TEXT PRIMARY KEY,
            run_id     TEXT NOT NULL,
            payload    JSONB NOT NULL,
            epsilon    DOUBLE PRECISION NOT NULL,
            episodes   INTEGER NOT NULL,
            steps      INTEGER NOT NULL,
            saved_at   TIMESTAMPTZ NOT NULL
        );`
	sqlCreateEpisodes = `
        CREATE TABLE IF NOT EXISTS knowledge_episodes (
            name           TEXT NOT NULL REFERENCES knowledge_snapshots(name) ON DELETE CASCADE,
            episode        INTEGER NOT NULL,
            total_reward   DOUBLE PRECISION NOT NULL,
            steps          INTEGER NOT NULL,
            success        BOOLEAN NOT NULL,
            final_progress DOUBLE PRECISION NOT NULL,
            termination    TEXT NOT NULL,
            epsilon        DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (name, episode)
        );`
	sqlUpsertSnapshot = `
        INSERT INTO knowledge_snapshots (name, run_id, payload, epsilon, episodes, steps, saved_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (name) DO UPDATE SET
            run_id = EXCLUDED.run_id,
            payload = EXCLUDED.payload,
            epsilon = EXCLUDED.epsilon,
            episodes = EXCLUDED.episodes,
            steps = EXCLUDED.steps,
            saved_at = EXCLUDED.saved_at;`
	sqlDeleteEpisodes = `DELETE FROM knowledge_episodes WHERE name = $1;`
	sqlSelectSnapshot = `SELECT payload FROM knowledge_snapshots WHERE name = $1;`
)

var episodeColumns = []string{"name", "episode", "total_reward", "steps", "success", "final_progress", "termination", "epsilon"}

// PostgresStore keeps one snapshot per name, plus a flat episode table that
// can be queried for learning curves.
type PostgresStore struct {
	pool DBPool
	name string
	log  *zap.Logger
}

var _ KnowledgeStore = (*PostgresStore)(nil)

// NewPostgresStore verifies the connection and creates the tables if needed.
func NewPostgresStore(ctx context.Context, pool DBPool, name string, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &PostgresStore{pool: pool, name: name, log: logger.Named("store")}
	for _, stmt := range []string{sqlCreateSnapshots, sqlCreateEpisodes} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate knowledge schema: %w", err)
		}
	}
	return s, nil
}

// Save replaces the named snapshot and its episode rows in one transaction.
func (s *PostgresStore) Save(ctx context.Context, k learning.Knowledge) error {
	payload, err := encode(k)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlUpsertSnapshot,
		s.name, k.RunID, payload, k.Params.Epsilon, k.Stats.Episodes, k.Stats.Steps, k.SavedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert knowledge snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx, sqlDeleteEpisodes, s.name); err != nil {
		return fmt.Errorf("failed to clear episode rows: %w", err)
	}

	if n := len(k.Stats.Records); n > 0 {
		rows := make([][]any, n)
		for i, r := range k.Stats.Records {
			rows[i] = []any{s.name, r.Episode, r.TotalReward, r.Steps, r.Success, r.FinalProgress, string(r.Termination), r.Epsilon}
		}
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"knowledge_episodes"}, episodeColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy episode rows: %w", err)
		}
		if int(copied) != n {
			return fmt.Errorf("mismatch in copied episode count: expected %d, got %d", n, copied)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Knowledge saved.", zap.String("name", s.name), zap.Int("episodes", k.Stats.Episodes))
	return nil
}

// Load reads the named snapshot.
func (s *PostgresStore) Load(ctx context.Context) (learning.Knowledge, error) {
	var payload []byte
	if err := s.pool.QueryRow(ctx, sqlSelectSnapshot, s.name).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return learning.Knowledge{}, fmt.Errorf("%w: snapshot %q", ErrNotFound, s.name)
		}
		return learning.Knowledge{}, fmt.Errorf("failed to query knowledge snapshot: %w", err)
	}
	return decode(payload)
}
