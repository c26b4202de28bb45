package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/serroba/admit/internal/analytics"
)

// Execer is the subset of pgxpool.Pool the store needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const createAdmissionEvents = `
	CREATE TABLE IF NOT EXISTS admission_events (
		id          UUID PRIMARY KEY,
		key         TEXT        NOT NULL,
		strategy    TEXT        NOT NULL,
		allowed     BOOLEAN     NOT NULL,
		method      TEXT,
		path        TEXT,
		occurred_at TIMESTAMPTZ NOT NULL
	)
`

const insertAdmissionEvent = `
	INSERT INTO admission_events (id, key, strategy, allowed, method, path, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// Postgres is a PostgreSQL implementation of analytics.Store. Redelivered
// events are absorbed by the primary key on id.
type Postgres struct {
	db Execer
}

// NewPostgres creates a new PostgreSQL-backed analytics store.
func NewPostgres(db Execer) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the admission_events table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createAdmissionEvents); err != nil {
		return fmt.Errorf("create admission_events: %w", err)
	}

	return nil
}

func (p *Postgres) SaveAdmission(ctx context.Context, event *analytics.AdmissionEvent) error {
	_, err := p.db.Exec(ctx, insertAdmissionEvent,
		event.ID,
		event.Key,
		event.Strategy,
		event.Allowed,
		nullableString(event.Method),
		nullableString(event.Path),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert admission event: %w", err)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
