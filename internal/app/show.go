package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcel-krsh/usn/internal/storage"
)

// Show prints recent warmup samples or balancing attempts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Attempts {
		return showAttempts(ctx, store, opts.Limit)
	}
	return showSamples(ctx, store, opts.Limit)
}

func showSamples(ctx context.Context, store storage.RateSampleStore, limit int) error {
	samples, err := store.ListRecentSamples(ctx, limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRate")

	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\n",
			sample.ObservedAt.UTC().Format(time.RFC3339),
			formatDecimal(sample.Rate, 6),
		)
	}

	writer.Flush()
	return nil
}

func showAttempts(ctx context.Context, store storage.AttemptStore, limit int) error {
	attempts, err := store.ListRecentAttempts(ctx, limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(os.Stdout, "no attempts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tID\tPool\tAction\tAmount\tRate\tExecuted\tStatus\tError")

	for _, attempt := range attempts {
		errMsg := ""
		if attempt.Error != nil {
			errMsg = sanitizeInline(*attempt.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\t%s\t%t\t%s\t%s\n",
			attempt.CreatedAt.UTC().Format(time.RFC3339),
			attempt.ID,
			attempt.PoolID,
			attempt.Action,
			formatDecimal(attempt.Amount, 2),
			formatDecimal(attempt.Rate, 4),
			attempt.Executed,
			attempt.Status,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
