package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateSampleRecord is one persisted warmup observation. The in-memory ring
// only keeps the decision window; the table keeps the full history for
// charts and audits.
type RateSampleRecord struct {
	ObservedAt time.Time
	Rate       decimal.Decimal
	CreatedAt  time.Time
}

// AttemptRecord is the audit row of one balancing attempt.
type AttemptRecord struct {
	ID        uuid.UUID
	PoolID    int64
	Action    string
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	Executed  bool
	Status    string
	Error     *string
	CreatedAt time.Time
}
