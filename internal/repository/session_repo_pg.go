package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createSessionsTable = `CREATE TABLE IF NOT EXISTS booking_sessions (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PGSessionRepository stores serialized booking states in PostgreSQL. It is a
// storage.Backend and storage.Sweeper.
type PGSessionRepository struct {
	db  PgxPool
	now func() time.Time
}

func NewSessionRepository(db PgxPool) *PGSessionRepository {
	return &PGSessionRepository{db: db, now: time.Now}
}

func (r *PGSessionRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, createSessionsTable)
	return err
}

func (r *PGSessionRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `SELECT payload FROM booking_sessions WHERE key=$1 AND expires_at > $2`, key, r.now()).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

func (r *PGSessionRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.db.Exec(ctx, `INSERT INTO booking_sessions (key, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		key, value, r.now().Add(ttl))
	return err
}

func (r *PGSessionRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM booking_sessions WHERE key=$1`, key)
	return err
}

func (r *PGSessionRepository) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM booking_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
