package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcel-krsh/usn/internal/storage"
)

// Warmup fetches a single fresh oracle sample and persists it. Running it on
// a schedule (or via the daemon) fills the decision window.
func (a *App) Warmup(ctx context.Context) error {
	set, err := a.newChainSet()
	if err != nil {
		return err
	}
	tre := a.newTreasury(set)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	sample, err := tre.Warmup(ctx)
	if err != nil {
		return err
	}

	if store != nil {
		record := storage.RateSampleRecord{
			ObservedAt: sample.At,
			Rate:       decimal.NewFromFloat(sample.Rate),
			CreatedAt:  time.Now().UTC(),
		}
		if err := store.UpsertRateSample(ctx, record); err != nil {
			return err
		}
		count, err := store.CountSamples(ctx)
		if err == nil {
			a.Logger.Info().Int64("stored_samples", count).Msg("warmup sample persisted")
		}
	}

	return nil
}
