package registry

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/anditomara/chatpulse/internal/model"
)

// Postgres reads sources from the `sources` table and appends one row per
// attempted source to `run_logs` after each run.
type Postgres struct {
	db *sql.DB
}

var _ Registry = (*Postgres)(nil)

// OpenPostgres connects and verifies the database is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wires an existing sql.DB (used by tests).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Sources returns every registered source.
func (p *Postgres) Sources(ctx context.Context) ([]Source, error) {
	query, args, err := sq.Select("channel_id", "platform").
		From("sources").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ChannelID, &s.Platform); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// SaveRunStats inserts one log row per attempted source.
func (p *Postgres) SaveRunStats(ctx context.Context, stats []model.ScrapeStats) error {
	if len(stats) == 0 {
		return nil
	}

	builder := sq.Insert("run_logs").
		Columns("channel_id", "platform", "pulled", "kept", "success", "error").
		PlaceholderFormat(sq.Dollar)
	for _, s := range stats {
		builder = builder.Values(s.ChannelID, s.Platform, s.Pulled, s.Kept, s.Success, nullable(s.Error))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run logs: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
