package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps one row per client in quota_records. The upsert only
// touches the row when the stored day differs or the count is under the
// limit, so a rejected request returns no row.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

const admitSQL = `
	INSERT INTO quota_records (client_key, day, count, updated_at)
	VALUES ($1, $2, 1, NOW())
	ON CONFLICT (client_key) DO UPDATE
	SET count = CASE WHEN quota_records.day = EXCLUDED.day
	                 THEN quota_records.count + 1
	                 ELSE 1 END,
	    day = EXCLUDED.day,
	    updated_at = NOW()
	WHERE quota_records.day <> EXCLUDED.day
	   OR quota_records.count < $3
	RETURNING count
`

func (s *PostgresStore) Admit(ctx context.Context, key, day string, limit int64, _ time.Time) (int64, bool, error) {
	var count int64
	err := s.db.QueryRow(ctx, admitSQL, key, day, limit).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return limit, false, nil
		}
		return 0, false, fmt.Errorf("upsert quota_records: %w", err)
	}
	return count, true, nil
}

func (s *PostgresStore) Sweep(ctx context.Context, day string) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM quota_records WHERE day < $1`, day)
	if err != nil {
		return 0, fmt.Errorf("sweep quota_records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
