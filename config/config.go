package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger    `mapstructure:"logger"`
	API       API       `mapstructure:"api"`
	Provider  Provider  `mapstructure:"provider"`
	Cache     Cache     `mapstructure:"cache"`
	Backtest  Backtest  `mapstructure:"backtest"`
	Grid      Grid      `mapstructure:"grid"`
	Scheduler Scheduler `mapstructure:"scheduler"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// API.RateLimit is requests per second per client IP on /api; 0 disables it.
type API struct {
	Port      int     `mapstructure:"port" validate:"gte=0,lte=65535"`
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

// Provider selects where bars come from. Daily bars may use a different source than intraday bars.
type Provider struct {
	Intraday string       `mapstructure:"intraday" validate:"oneof=alpaca yahoo"`
	Daily    string       `mapstructure:"daily" validate:"oneof=alpaca yahoo"`
	Alpaca   Alpaca       `mapstructure:"alpaca"`
	Yahoo    YahooFinance `mapstructure:"yahoo"`
}

type Alpaca struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	SecretKey           string        `mapstructure:"secret_key"`
	Feed                string        `mapstructure:"feed"`
	Adjustment          string        `mapstructure:"adjustment"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gt=0"`
	ChunkDays           int           `mapstructure:"chunk_days" validate:"gt=0"`
	PageLimit           int           `mapstructure:"page_limit" validate:"gt=0"`
}

type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gt=0"`
}

type Cache struct {
	Dir               string        `mapstructure:"dir"`
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// Backtest is the parameter surface of one simulation run.
type Backtest struct {
	SignalSymbol     string  `mapstructure:"signal_symbol" validate:"required"`
	TradeSymbol      string  `mapstructure:"trade_symbol" validate:"required"`
	Capital          float64 `mapstructure:"capital" validate:"gt=0"`
	SMAWindow        int     `mapstructure:"sma_window" validate:"gte=1"`
	FixedStopPct     float64 `mapstructure:"fixed_stop_pct" validate:"gte=0,lt=1"`
	TrailingStopPct  float64 `mapstructure:"trailing_stop_pct" validate:"gte=0,lt=1"`
	Slippage         float64 `mapstructure:"slippage" validate:"gte=0,lt=1"`
	Commission       float64 `mapstructure:"commission" validate:"gte=0"`
	StartDate        string  `mapstructure:"start_date"`
	EndDate          string  `mapstructure:"end_date"`
	DataStartDate    string  `mapstructure:"data_start_date" validate:"required"`
	Timing           string  `mapstructure:"timing" validate:"oneof=intraday end_of_day hybrid"`
	Cooldown         string  `mapstructure:"cooldown" validate:"oneof=all_exits stop_exits none"`
	SignalMemory     bool    `mapstructure:"signal_memory"`
	IntradayInterval string  `mapstructure:"intraday_interval" validate:"required"`
	Timezone         string  `mapstructure:"timezone" validate:"required"`
	SessionOpen      string  `mapstructure:"session_open" validate:"required"`
	SessionClose     string  `mapstructure:"session_close" validate:"required"`
	ReferenceTrades  string  `mapstructure:"reference_trades"`
}

type Grid struct {
	SMAWindows       []int     `mapstructure:"sma_windows"`
	FixedStopPcts    []float64 `mapstructure:"fixed_stop_pcts"`
	TrailingStopPcts []float64 `mapstructure:"trailing_stop_pcts"`
	Timings          []string  `mapstructure:"timings"`
	MaxConcurrency   int       `mapstructure:"max_concurrency" validate:"gte=1"`
	TopN             int       `mapstructure:"top_n" validate:"gte=1"`
	// Pairs are SIGNAL:TRADE symbol pairs for the pair sweep.
	Pairs []string `mapstructure:"pairs"`
}

type Scheduler struct {
	RefreshCron    string        `mapstructure:"refresh_cron"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit", 2.0)
	v.SetDefault("api.rate_burst", 5)

	v.SetDefault("provider.intraday", "alpaca")
	v.SetDefault("provider.daily", "alpaca")
	v.SetDefault("provider.alpaca.base_url", "https://data.alpaca.markets")
	v.SetDefault("provider.alpaca.feed", "iex")
	v.SetDefault("provider.alpaca.adjustment", "all")
	v.SetDefault("provider.alpaca.timeout", 30*time.Second)
	v.SetDefault("provider.alpaca.max_request_per_minute", 180)
	v.SetDefault("provider.alpaca.chunk_days", 60)
	v.SetDefault("provider.alpaca.page_limit", 10000)
	v.SetDefault("provider.yahoo.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("provider.yahoo.timeout", 30*time.Second)
	v.SetDefault("provider.yahoo.max_request_per_minute", 30)

	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.default_expiration", 6*time.Hour)
	v.SetDefault("cache.cleanup_interval", 30*time.Minute)

	v.SetDefault("backtest.signal_symbol", "QQQ")
	v.SetDefault("backtest.trade_symbol", "TQQQ")
	v.SetDefault("backtest.capital", 10000.0)
	v.SetDefault("backtest.sma_window", 50)
	v.SetDefault("backtest.fixed_stop_pct", 0.075)
	v.SetDefault("backtest.trailing_stop_pct", 0.15)
	v.SetDefault("backtest.slippage", 0.0)
	v.SetDefault("backtest.commission", 0.0)
	v.SetDefault("backtest.data_start_date", "2020-10-01")
	v.SetDefault("backtest.timing", "hybrid")
	v.SetDefault("backtest.cooldown", "all_exits")
	v.SetDefault("backtest.signal_memory", false)
	v.SetDefault("backtest.intraday_interval", "15Min")
	v.SetDefault("backtest.timezone", "America/New_York")
	v.SetDefault("backtest.session_open", "09:30")
	v.SetDefault("backtest.session_close", "16:00")

	v.SetDefault("grid.sma_windows", []int{20, 50, 100, 200})
	v.SetDefault("grid.fixed_stop_pcts", []float64{0.05, 0.075, 0.10})
	v.SetDefault("grid.trailing_stop_pcts", []float64{0.10, 0.15, 0.20})
	v.SetDefault("grid.timings", []string{"hybrid"})
	v.SetDefault("grid.max_concurrency", 4)
	v.SetDefault("grid.top_n", 10)
	v.SetDefault("grid.pairs", []string{"QQQ:TQQQ", "SPY:UPRO", "IWM:TNA", "SOXX:SOXL", "DIA:UDOW"})

	v.SetDefault("scheduler.refresh_cron", "30 17 * * 1-5")
	v.SetDefault("scheduler.refresh_timeout", 10*time.Minute)
}

// Load reads the YAML config at path (or ./config.yaml when empty), overlays
// environment variables and a .env file if present, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// fall back to the variable names Alpaca's own SDKs read
	if v.GetString("provider.alpaca.api_key") == "" {
		v.Set("provider.alpaca.api_key", os.Getenv("ALPACA_API_KEY"))
	}
	if v.GetString("provider.alpaca.secret_key") == "" {
		v.Set("provider.alpaca.secret_key", os.Getenv("ALPACA_SECRET_KEY"))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := goValidator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
