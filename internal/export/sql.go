package export

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"tftrivals/internal/flatten"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const sqlBatchSize = 100

// SQLSink writes rows into a match_rows table over database/sql. It serves
// both a local SQLite file and a remote Turso database, which share a dialect.
type SQLSink struct {
	db   *sql.DB
	name string
}

// NewSQLiteSink opens (creating if needed) a local SQLite database file
func NewSQLiteSink(path string) (*SQLSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// Single writer; avoids SQLITE_BUSY from the pool
	db.SetMaxOpenConns(1)
	return newSQLSink(db, "sqlite:"+path)
}

// NewTursoSink connects to a Turso (libSQL) database
func NewTursoSink(dbURL, authToken string) (*SQLSink, error) {
	connStr, err := tursoConnString(dbURL, authToken)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}
	return newSQLSink(db, "turso:"+dbURL)
}

// tursoConnString adds authToken to the query of dbURL, keeping any existing parameters
func tursoConnString(dbURL, authToken string) (string, error) {
	if authToken == "" {
		return dbURL, nil
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("invalid Turso URL: %w", err)
	}
	q := u.Query()
	q.Set("authToken", authToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newSQLSink(db *sql.DB, name string) (*SQLSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", name, err)
	}

	s := &SQLSink{db: db, name: name}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLSink) Name() string { return s.name }

func (s *SQLSink) createTable(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS match_rows (
			match_id TEXT NOT NULL,
			puuid TEXT NOT NULL,
			name TEXT NOT NULL,
			placement INTEGER NOT NULL DEFAULT 0,
			total_damage_to_players INTEGER NOT NULL DEFAULT 0,
			players_eliminated INTEGER NOT NULL DEFAULT 0,
			traits TEXT NOT NULL DEFAULT '',
			units TEXT NOT NULL DEFAULT '',
			exported_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_rows_match ON match_rows(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_match_rows_puuid ON match_rows(puuid)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Write appends rows in batches. Repeated visits to a match produce repeated rows.
func (s *SQLSink) Write(ctx context.Context, rows []flatten.FlatRow) error {
	exportedAt := time.Now().UTC().Format(time.RFC3339)

	for i := 0; i < len(rows); i += sqlBatchSize {
		end := i + sqlBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO match_rows (match_id, puuid, name, placement, total_damage_to_players, players_eliminated, traits, units, exported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, r := range batch {
			if _, err := stmt.ExecContext(ctx, r.MatchID, r.PUUID, r.Name, r.Placement,
				r.TotalDamageToPlayers, r.PlayersEliminated, r.Traits, r.Units, exportedAt); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// CountRows returns how many rows the table holds
func (s *SQLSink) CountRows(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_rows`).Scan(&n)
	return n, err
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}
