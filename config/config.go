package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete agent configuration.
type Config struct {
	Trading TradingConfig `yaml:"trading"`
	News    NewsConfig    `yaml:"news"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// TradingConfig holds the bankroll, sizing and risk parameters.
type TradingConfig struct {
	Mode             string  `yaml:"mode"`               // paper | backtest
	InitialBankroll  float64 `yaml:"initial_bankroll"`   // USDC
	IntervalSeconds  int     `yaml:"interval_seconds"`   // tick cadence
	MinEdge          float64 `yaml:"min_edge"`           // EV floor per dollar staked
	MinConfidence    int     `yaml:"min_confidence"`     // extractor confidence floor, 1-10
	KellyFraction    float64 `yaml:"kelly_fraction"`     // fraction of full Kelly
	MaxBetPct        float64 `yaml:"max_bet_pct"`        // per-bet cap vs bankroll
	MaxPositions     int     `yaml:"max_positions"`      // concurrent open markets
	MaxDailyLossPct  float64 `yaml:"max_daily_loss_pct"` // stop betting past this daily loss
	MaxVolumePct     float64 `yaml:"max_volume_pct"`     // stake cap vs market 24h volume
	TakerFeeRate     float64 `yaml:"taker_fee_rate"`
	KillDrawdownPct  float64 `yaml:"kill_drawdown_pct"` // suspend new bets past this drawdown
	MaxQuoteAgeSecs  int     `yaml:"max_quote_age_seconds"`
	MaxMarketsPerLLM int     `yaml:"max_markets_per_article"` // candidates sent to the extractor
}

// NewsConfig lists the RSS feeds the agent watches.
type NewsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// APIConfig holds base URLs and credentials for external services.
type APIConfig struct {
	GammaBase     string `yaml:"gamma_base"`
	WSBase        string `yaml:"ws_base"`
	OpenAIBase    string `yaml:"openai_base"`
	OpenAIKey     string `yaml:"openai_key"` // prefer OPENAI_API_KEY in the env
	OpenAIModel   string `yaml:"openai_model"`
	UseResolution bool   `yaml:"use_resolution_stream"` // websocket instead of polling
}

// StorageConfig controls where state is persisted.
type StorageConfig struct {
	DSN        string `yaml:"dsn"`         // SQLite path, or ":memory:"
	HistoryDir string `yaml:"history_dir"` // daily snapshot tree
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controls the log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Env vars override
// YAML for the keys that map to them.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// TickInterval returns the loop cadence as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Trading.IntervalSeconds) * time.Second
}

// MaxQuoteAge returns the quote staleness bound as a time.Duration.
func (c *Config) MaxQuoteAge() time.Duration {
	return time.Duration(c.Trading.MaxQuoteAgeSecs) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.API.OpenAIKey = v
	}
	if v := os.Getenv("EDGEBOT_BANKROLL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.InitialBankroll = f
		}
	}
	if v := os.Getenv("EDGEBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "paper"
	}
	if cfg.Trading.InitialBankroll <= 0 {
		cfg.Trading.InitialBankroll = 500
	}
	if cfg.Trading.IntervalSeconds <= 0 {
		cfg.Trading.IntervalSeconds = 60
	}
	if cfg.Trading.MinEdge <= 0 {
		cfg.Trading.MinEdge = 0.05
	}
	if cfg.Trading.MinConfidence <= 0 {
		cfg.Trading.MinConfidence = 6
	}
	if cfg.Trading.KellyFraction <= 0 {
		cfg.Trading.KellyFraction = 0.5
	}
	if cfg.Trading.MaxBetPct <= 0 {
		cfg.Trading.MaxBetPct = 0.05
	}
	if cfg.Trading.MaxPositions <= 0 {
		cfg.Trading.MaxPositions = 10
	}
	if cfg.Trading.MaxDailyLossPct <= 0 {
		cfg.Trading.MaxDailyLossPct = 0.10
	}
	if cfg.Trading.MaxVolumePct <= 0 {
		cfg.Trading.MaxVolumePct = 0.10
	}
	if cfg.Trading.KillDrawdownPct <= 0 {
		cfg.Trading.KillDrawdownPct = 0.25
	}
	if cfg.Trading.MaxQuoteAgeSecs <= 0 {
		cfg.Trading.MaxQuoteAgeSecs = 300
	}
	if cfg.Trading.MaxMarketsPerLLM <= 0 {
		cfg.Trading.MaxMarketsPerLLM = 5
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.WSBase == "" {
		cfg.API.WSBase = "wss://ws-subscriptions-clob.polymarket.com/ws"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "edgebot.db"
	}
	if cfg.Storage.HistoryDir == "" {
		cfg.Storage.HistoryDir = "history"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rejects configurations that would make the risk gates
// meaningless.
func validate(cfg *Config) error {
	t := cfg.Trading
	switch t.Mode {
	case "paper", "backtest":
	default:
		return fmt.Errorf("trading.mode %q: must be paper or backtest", t.Mode)
	}
	if t.MaxBetPct >= 1 {
		return fmt.Errorf("trading.max_bet_pct %.2f: must be below 1", t.MaxBetPct)
	}
	if t.KellyFraction > 1 {
		return fmt.Errorf("trading.kelly_fraction %.2f: must not exceed 1", t.KellyFraction)
	}
	if t.MinEdge >= 1 {
		return fmt.Errorf("trading.min_edge %.2f: must be below 1", t.MinEdge)
	}
	if t.MinConfidence > 10 {
		return fmt.Errorf("trading.min_confidence %d: scale is 1-10", t.MinConfidence)
	}
	return nil
}
