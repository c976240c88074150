package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/marcel-krsh/usn/internal/storage"
	"github.com/marcel-krsh/usn/internal/treasury"
)

// Balance runs one balancing attempt against the configured pool. The rate
// cache is seeded from the persisted sample history, so the command needs a
// database with at least a full decision window of warmup samples.
func (a *App) Balance(ctx context.Context, opts BalanceOptions) error {
	if (opts.LimitMin == nil) != (opts.LimitMax == nil) {
		return errors.New("--limit-min and --limit-max must be provided together")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot seed the rate cache")
	}
	if closeStore != nil {
		defer closeStore()
	}

	set, err := a.newChainSet()
	if err != nil {
		return err
	}
	tre := a.newTreasury(set)

	if err := a.seedCache(ctx, store, tre.Cache()); err != nil {
		return err
	}
	if !tre.Cache().Warm() {
		return fmt.Errorf("only %d of %d warmup samples available: %w",
			tre.Cache().Len(), treasury.WarmupSamples, treasury.ErrNotWarmedUp)
	}

	req := treasury.BalanceRequest{
		PoolID:  opts.PoolID,
		Execute: opts.Execute,
	}
	if opts.LimitMin != nil {
		req.Limits = &treasury.LimitRange{Min: *opts.LimitMin, Max: *opts.LimitMax}
	}

	attempt, balanceErr := tre.Balance(ctx, req)
	a.persistAttempt(ctx, store, attempt, balanceErr)
	if balanceErr != nil {
		return balanceErr
	}

	fmt.Fprintf(os.Stdout, "attempt %s: %s (state %s, executed %t)\n",
		attempt.ID, attempt.Action.String(), attempt.State, attempt.Executed)
	return nil
}

func (a *App) persistAttempt(ctx context.Context, store storage.AttemptStore, attempt *treasury.Attempt, balanceErr error) {
	if store == nil || attempt == nil {
		return
	}

	record := storage.AttemptRecord{
		ID:       attempt.ID,
		PoolID:   int64(attempt.PoolID),
		Action:   attempt.Action.Verb(),
		Amount:   decimal.NewFromFloat(attempt.Action.Amount),
		Rate:     decimal.NewFromFloat(attempt.Rate),
		Executed: attempt.Executed,
		Status:   attempt.State.String(),
	}
	if balanceErr != nil {
		msg := balanceErr.Error()
		record.Error = &msg
	}

	if err := store.InsertAttempt(ctx, record); err != nil {
		a.Logger.Error().Err(err).Str("attempt", attempt.ID.String()).Msg("failed to persist attempt record")
	}
}
