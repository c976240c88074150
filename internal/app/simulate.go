package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/marcel-krsh/usn/internal/treasury"
)

// Simulate runs the decision model on caller-supplied reserves without
// touching the chain. The rate series comes from the flags when given,
// otherwise from the persisted sample history.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	rates := opts.Rates
	if len(rates) == 0 {
		loaded, err := a.loadRecentRates(ctx)
		if err != nil {
			return err
		}
		rates = loaded
	}
	if len(rates) != treasury.WarmupSamples {
		return fmt.Errorf("need exactly %d rates, got %d", treasury.WarmupSamples, len(rates))
	}

	// Hour offsets matching the warmup cadence, newest at zero.
	times := make([]float64, len(rates))
	for i := range times {
		times[i] = float64(i - (len(rates) - 1))
	}

	action, err := treasury.Decide(rates, times, opts.NativeReserve, opts.CirculatingStable, opts.SecondaryReserve, nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, action.String())
	return nil
}

func (a *App) loadRecentRates(ctx context.Context) ([]float64, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("no --rates given and database not configured")
	}
	if closeStore != nil {
		defer closeStore()
	}

	samples, err := store.ListRecentSamples(ctx, treasury.WarmupSamples)
	if err != nil {
		return nil, err
	}

	// Newest first in storage order; the model wants oldest first.
	rates := make([]float64, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		rates = append(rates, samples[i].Rate.InexactFloat64())
	}
	return rates, nil
}
