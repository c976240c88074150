package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/marcel-krsh/usn/internal/alerting"
	"github.com/marcel-krsh/usn/internal/chain"
	"github.com/marcel-krsh/usn/internal/config"
	"github.com/marcel-krsh/usn/internal/scheduler"
	"github.com/marcel-krsh/usn/internal/service"
	"github.com/marcel-krsh/usn/internal/storage"
	"github.com/marcel-krsh/usn/internal/treasury"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// chainSet bundles the contract bindings built over one shared RPC client.
type chainSet struct {
	client  *chain.Client
	pool    *chain.Pool
	wrapped *chain.Wrapped
	oracle  *chain.Oracle
	token   *chain.Token
}

func (a *App) newChainSet() (*chainSet, error) {
	cfg := a.Config.Chain
	client, err := chain.NewClient(chain.Options{
		RPCURL:     cfg.RPCURL,
		ChainID:    cfg.ChainID,
		PrivateKey: cfg.PrivateKey,
		Timeout:    cfg.RequestTimeout,
	}, a.Logger)
	if err != nil {
		return nil, err
	}

	return &chainSet{
		client:  client,
		pool:    chain.NewPool(client, common.HexToAddress(cfg.AMMAddress), a.Logger),
		wrapped: chain.NewWrapped(client, common.HexToAddress(cfg.WrappedAddress), a.Logger),
		oracle:  chain.NewOracle(client, common.HexToAddress(cfg.OracleAddress), a.Logger),
		token:   chain.NewToken(client, common.HexToAddress(cfg.StablecoinAddr), a.Logger),
	}, nil
}

func (a *App) newTreasury(set *chainSet) *treasury.Treasury {
	cache := treasury.NewRateCache()
	collector := treasury.NewCollector(set.pool, set.token, set.client, set.client.Account(), a.Config.Chain.NativeDecimals, a.Logger)
	executor := treasury.NewExecutor(set.pool, set.wrapped, set.token, treasury.ExecutorConfig{
		SwapPoolID:     a.Config.Treasury.SwapPoolID,
		Slippage:       a.Config.Treasury.Slippage,
		NativeDecimals: a.Config.Chain.NativeDecimals,
	}, a.Logger)
	return treasury.New(cache, collector, executor, set.oracle, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, storage.Options{
		DSN:             a.Config.Database.DSN,
		MaxOpenConns:    a.Config.Database.MaxOpenConns,
		MaxIdleConns:    a.Config.Database.MaxIdleConns,
		ConnMaxLifetime: a.Config.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running treasury daemon.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	set, err := a.newChainSet()
	if err != nil {
		return err
	}
	tre := a.newTreasury(set)

	if store != nil {
		if err := a.seedCache(ctx, store, tre.Cache()); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to seed rate cache from storage")
		}
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Warmup.Interval,
		AlignToStart: a.Config.Warmup.AlignToStart,
		StartupDelay: a.Config.Warmup.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()

	var sampleStore storage.RateSampleStore
	var attemptStore storage.AttemptStore
	if store != nil {
		sampleStore = store
		attemptStore = store
	}

	svc := service.New(a.Config, sched, tre, sampleStore, attemptStore, notifier, a.Logger)

	a.Logger.Info().Msg("starting treasury service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("treasury service stopped")
	return nil
}

// seedCache refills the in-memory ring from the most recent persisted
// samples so a restarted daemon does not have to warm up from scratch.
func (a *App) seedCache(ctx context.Context, store storage.RateSampleStore, cache *treasury.RateCache) error {
	samples, err := store.ListRecentSamples(ctx, treasury.WarmupSamples)
	if err != nil {
		return err
	}

	// Newest first in storage order; the ring wants oldest first.
	for i := len(samples) - 1; i >= 0; i-- {
		cache.Append(samples[i].ObservedAt, samples[i].Rate.InexactFloat64())
	}

	a.Logger.Info().Int("samples", cache.Len()).Msg("rate cache seeded from storage")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit    int
	Attempts bool
}

// BalanceOptions configure a one-shot balancing run.
type BalanceOptions struct {
	PoolID   uint64
	Execute  bool
	LimitMin *float64
	LimitMax *float64
}

// SimulateOptions feed a decision dry run with caller-supplied reserves.
type SimulateOptions struct {
	NativeReserve     float64
	CirculatingStable float64
	SecondaryReserve  float64
	Rates             []float64
}
