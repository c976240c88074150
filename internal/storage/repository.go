package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS rate_samples (
        observed_at TIMESTAMPTZ PRIMARY KEY,
        rate        NUMERIC NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS treasury_attempts (
        id         UUID PRIMARY KEY,
        pool_id    BIGINT NOT NULL,
        action     TEXT NOT NULL,
        amount     NUMERIC NOT NULL,
        rate       NUMERIC NOT NULL,
        executed   BOOLEAN NOT NULL,
        status     TEXT NOT NULL,
        error      TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	upsertRateSampleSQL = `INSERT INTO rate_samples (
        observed_at,
        rate
    ) VALUES (
        $1,$2
    )
    ON CONFLICT (observed_at) DO UPDATE
    SET rate = EXCLUDED.rate;`

	listSamplesBetweenSQL = `SELECT
        observed_at,
        rate,
        created_at
    FROM rate_samples
    WHERE observed_at >= $1
      AND observed_at < $2
    ORDER BY observed_at;`

	listRecentSamplesSQL = `SELECT
        observed_at,
        rate,
        created_at
    FROM rate_samples
    ORDER BY observed_at DESC
    LIMIT $1;`

	countSamplesSQL = `SELECT COUNT(*) FROM rate_samples;`

	insertAttemptSQL = `INSERT INTO treasury_attempts (
        id,
        pool_id,
        action,
        amount,
        rate,
        executed,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listRecentAttemptsSQL = `SELECT
        id,
        pool_id,
        action,
        amount,
        rate,
        executed,
        status,
        error,
        created_at
    FROM treasury_attempts
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RateSampleStore defines operations for warmup sample persistence.
type RateSampleStore interface {
	UpsertRateSample(ctx context.Context, sample RateSampleRecord) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]RateSampleRecord, error)
	ListRecentSamples(ctx context.Context, limit int) ([]RateSampleRecord, error)
	CountSamples(ctx context.Context) (int64, error)
}

// AttemptStore defines operations for the balancing audit trail.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, attempt AttemptRecord) error
	ListRecentAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to rate samples and attempt audit rows.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the audit tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertRateSample persists or updates a warmup sample.
func (s *Store) UpsertRateSample(ctx context.Context, sample RateSampleRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, upsertRateSampleSQL, sample.ObservedAt, sample.Rate.String()); execErr != nil {
		return fmt.Errorf("upsert rate sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]RateSampleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, 0)
}

// ListRecentSamples lists the most recent samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]RateSampleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, limit)
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// InsertAttempt persists one balancing attempt audit row.
func (s *Store) InsertAttempt(ctx context.Context, attempt AttemptRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if attempt.Error != nil {
		errMsg = *attempt.Error
	}

	if _, execErr := pool.Exec(ctx, insertAttemptSQL,
		attempt.ID.String(),
		attempt.PoolID,
		attempt.Action,
		attempt.Amount.String(),
		attempt.Rate.String(),
		attempt.Executed,
		attempt.Status,
		errMsg,
	); execErr != nil {
		return fmt.Errorf("insert attempt: %w", execErr)
	}
	return nil
}

// ListRecentAttempts lists the most recent attempt audit rows.
func (s *Store) ListRecentAttempts(ctx context.Context, limit int) ([]AttemptRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAttemptsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent attempts: %w", queryErr)
	}
	defer rows.Close()

	attempts := make([]AttemptRecord, 0, limit)
	for rows.Next() {
		var rec AttemptRecord
		var idStr, amountStr, rateStr string
		if err := rows.Scan(
			&idStr,
			&rec.PoolID,
			&rec.Action,
			&amountStr,
			&rateStr,
			&rec.Executed,
			&rec.Status,
			&rec.Error,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		id, parseErr := uuid.Parse(idStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse attempt id: %w", parseErr)
		}
		rec.ID = id

		var convErr error
		rec.Amount, convErr = decimal.NewFromString(amountStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse attempt amount: %w", convErr)
		}
		rec.Rate, convErr = decimal.NewFromString(rateStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse attempt rate: %w", convErr)
		}

		attempts = append(attempts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return attempts, nil
}

func collectSamples(rows pgx.Rows, capacity int) ([]RateSampleRecord, error) {
	samples := make([]RateSampleRecord, 0, capacity)
	for rows.Next() {
		var rec RateSampleRecord
		var rateStr string
		if err := rows.Scan(&rec.ObservedAt, &rateStr, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return nil, fmt.Errorf("parse sample rate: %w", err)
		}
		rec.Rate = rate
		samples = append(samples, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}
