package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/marcel-krsh/usn/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Warmup    WarmupConfig    `mapstructure:"warmup"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Treasury  TreasuryConfig  `mapstructure:"treasury"`
	Balancing BalancingConfig `mapstructure:"balancing"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables
// the audit store entirely.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WarmupConfig governs rate sampling cadence.
type WarmupConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToStart    bool          `mapstructure:"align_to_start"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// ChainConfig covers on-chain access and contract addresses.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	ChainID        int64         `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"`
	AMMAddress     string        `mapstructure:"amm_address"`
	WrappedAddress string        `mapstructure:"wrapped_address"`
	OracleAddress  string        `mapstructure:"oracle_address"`
	StablecoinAddr string        `mapstructure:"stablecoin_address"`
	NativeDecimals uint8         `mapstructure:"native_decimals"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TreasuryConfig tunes execution behaviour.
type TreasuryConfig struct {
	SwapPoolID uint64  `mapstructure:"swap_pool_id"`
	Slippage   float64 `mapstructure:"slippage"`
}

// BalancingConfig drives the automatic balancing pass of the daemon loop.
type BalancingConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	PoolID   uint64   `mapstructure:"pool_id"`
	Execute  bool     `mapstructure:"execute"`
	LimitMin *float64 `mapstructure:"limit_min"`
	LimitMax *float64 `mapstructure:"limit_max"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("USNTREASURY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "usn-treasury")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("warmup.interval", "1h")
	v.SetDefault("warmup.align_to_start", true)
	v.SetDefault("warmup.advisory_lock_key", int64(0x75736e74))
	v.SetDefault("warmup.startup_delay", "0s")

	v.SetDefault("chain.chain_id", int64(1))
	v.SetDefault("chain.native_decimals", uint8(24))
	v.SetDefault("chain.request_timeout", "30s")

	v.SetDefault("treasury.swap_pool_id", uint64(0))
	v.SetDefault("treasury.slippage", 0.5)

	v.SetDefault("balancing.enabled", false)
	v.SetDefault("balancing.pool_id", uint64(0))
	v.SetDefault("balancing.execute", false)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Warmup.Interval <= 0 {
		return fmt.Errorf("warmup.interval must be greater than zero")
	}
	if c.Treasury.Slippage <= 0 || c.Treasury.Slippage > 1 {
		return fmt.Errorf("treasury.slippage must be in (0, 1]")
	}
	if c.Balancing.LimitMin != nil && c.Balancing.LimitMax == nil ||
		c.Balancing.LimitMin == nil && c.Balancing.LimitMax != nil {
		return fmt.Errorf("balancing.limit_min and balancing.limit_max must be set together")
	}
	if c.Balancing.LimitMin != nil && *c.Balancing.LimitMin > *c.Balancing.LimitMax {
		return fmt.Errorf("balancing.limit_min cannot exceed balancing.limit_max")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
