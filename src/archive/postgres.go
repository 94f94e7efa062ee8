package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createOutputsTable = `
CREATE TABLE IF NOT EXISTS research_outputs (
    id         BIGSERIAL PRIMARY KEY,
    content    TEXT        NOT NULL,
    record     TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const insertOutput = `INSERT INTO research_outputs (content, record, created_at) VALUES ($1, $2, $3)`

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink stores each record as a row of research_outputs.
type PostgresSink struct {
	db    pgExecer
	pool  *pgxpool.Pool
	now   func() time.Time
	label string
}

// NewPostgresSink connects and makes sure the table exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresSink{db: pool, pool: pool, now: time.Now, label: "postgres:" + pool.Config().ConnConfig.Database}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createOutputsTable); err != nil {
		return fmt.Errorf("create research_outputs: %w", err)
	}
	return nil
}

func (s *PostgresSink) Save(ctx context.Context, text string) error {
	ts := s.now()
	if _, err := s.db.Exec(ctx, insertOutput, text, FormatRecord(ts, text), ts.UTC()); err != nil {
		return fmt.Errorf("insert research output: %w", err)
	}
	return nil
}

func (s *PostgresSink) Target() string { return s.label }

func (s *PostgresSink) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
