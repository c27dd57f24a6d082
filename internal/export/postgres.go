package export

import (
	"context"
	"fmt"
	"time"

	"tftrivals/internal/flatten"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink bulk-copies rows into a Postgres match_rows table
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a connection pool for dbURL and ensures the table exists
func NewPostgresSink(ctx context.Context, dbURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS match_rows (
			id BIGSERIAL PRIMARY KEY,
			match_id TEXT NOT NULL,
			puuid TEXT NOT NULL,
			name TEXT NOT NULL,
			placement INTEGER NOT NULL DEFAULT 0,
			total_damage_to_players INTEGER NOT NULL DEFAULT 0,
			players_eliminated INTEGER NOT NULL DEFAULT 0,
			traits TEXT NOT NULL DEFAULT '',
			units TEXT NOT NULL DEFAULT '',
			exported_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create match_rows: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, rows []flatten.FlatRow) error {
	exportedAt := time.Now().UTC()

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"match_rows"},
		[]string{"match_id", "puuid", "name", "placement", "total_damage_to_players", "players_eliminated", "traits", "units", "exported_at"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.MatchID, r.PUUID, r.Name, int32(r.Placement), int32(r.TotalDamageToPlayers),
				int32(r.PlayersEliminated), r.Traits, r.Units, exportedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy into match_rows: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
