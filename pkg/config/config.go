package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"GapScout/pkg/util"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the watchlist used when none is configured.
var DefaultSymbols = []string{
	"KLTO", "KZIA", "VTAK", "HSDT", "CARM", "OEGD", "KNW", "SIR", "SXTC", "IMPP",
	"INDO", "BFRI", "XELA", "MULN", "BBIG", "PROG", "ATER", "GFAI", "RDBX", "NEGG",
	"BKKT", "DWAC", "PHUN", "MARK", "IZEA", "NAKD", "SNDL", "CLOV", "WKHS", "RIDE",
	"NKLA", "GOEV", "AMC", "GME", "BBBY", "SOFI", "PLTR", "NIO", "MARA", "RIOT",
}

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval"`
			Threshold int           `yaml:"threshold"`
			Queue     string        `yaml:"queue"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Scanner struct {
		Symbols       []string      `yaml:"symbols"`
		Interval      time.Duration `yaml:"interval"`
		Workers       int           `yaml:"workers"`
		SymbolTimeout time.Duration `yaml:"symbol_timeout"`
		NewsLookback  time.Duration `yaml:"news_lookback"`
		ResultsTopic  string        `yaml:"results_topic"`
	} `yaml:"scanner"`
	Thresholds struct {
		MinGapPercent float64 `yaml:"min_gap_percent"`
		MinPrice      float64 `yaml:"min_price"`
		MaxPrice      float64 `yaml:"max_price"`
		MinVolume     int64   `yaml:"min_volume"`
	} `yaml:"thresholds"`
	Alerts struct {
		TopN        int           `yaml:"top_n"`
		Cooldown    time.Duration `yaml:"cooldown"`
		Summary     bool          `yaml:"summary"`
		Mode        string        `yaml:"mode"` // inproc or redis
		Spacing     time.Duration `yaml:"spacing"`
		BufferSize  int           `yaml:"buffer_size"`
		Queue       string        `yaml:"queue"`
		RetryLimit  int           `yaml:"retry_limit"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"alerts"`
	Session struct {
		EnablePremarket  *bool  `yaml:"enable_premarket"`
		EnableAfterhours *bool  `yaml:"enable_afterhours"`
		Timezone         string `yaml:"timezone"`
	} `yaml:"session"`
	Alpaca struct {
		APIKey       string        `yaml:"api_key"`
		SecretKey    string        `yaml:"secret_key"`
		DataURL      string        `yaml:"data_url"`
		Feed         string        `yaml:"feed"`
		Timeout      time.Duration `yaml:"timeout"`
		RatePerMin   int           `yaml:"rate_per_min"`
		RateCapacity int           `yaml:"rate_capacity"`
	} `yaml:"alpaca"`
	Finnhub struct {
		APIKey     string        `yaml:"api_key"`
		BaseURL    string        `yaml:"base_url"`
		Timeout    time.Duration `yaml:"timeout"`
		RatePerMin int           `yaml:"rate_per_min"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
		Stream     struct {
			Enabled        bool          `yaml:"enabled"`
			WebSocketURL   string        `yaml:"websocket_url"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
			MaxAge         time.Duration `yaml:"max_age"`
		} `yaml:"stream"`
	} `yaml:"finnhub"`
	Yahoo struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"yahoo"`
	Research struct {
		BaseURL         string        `yaml:"base_url"`
		Email           string        `yaml:"email"`
		Password        string        `yaml:"password"`
		Days            int           `yaml:"days"`
		MinGapPercent   float64       `yaml:"min_gap_percent"`
		Timeout         time.Duration `yaml:"timeout"`
		MinInterval     time.Duration `yaml:"min_interval"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		BreakerCoolDown time.Duration `yaml:"breaker_cooldown"`
		SimulationSeed  uint64        `yaml:"simulation_seed"`
	} `yaml:"research"`
	AI struct {
		Enabled bool          `yaml:"enabled"`
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
		Retries int           `yaml:"retries"`
	} `yaml:"ai"`
	Telegram struct {
		BotToken string        `yaml:"bot_token"`
		ChatID   string        `yaml:"chat_id"`
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		ClientID     string        `yaml:"client_id"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
}

// Default returns a config with every default applied and no file read.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file (if path is set),
// then overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var c *Config
	if path == "" {
		c = Default()
	} else {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"ALPACA_API_KEY":     &c.Alpaca.APIKey,
		"ALPACA_SECRET_KEY":  &c.Alpaca.SecretKey,
		"FINNHUB_API_KEY":    &c.Finnhub.APIKey,
		"RESEARCH_EMAIL":     &c.Research.Email,
		"RESEARCH_PASSWORD":  &c.Research.Password,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"OPENAI_API_KEY":     &c.AI.APIKey,
	}
	for k, dst := range str {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scanner.Symbols = util.NormalizeSymbols([]string{v})
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Host, c.Redis.Port, c.Redis.Enabled = host, p, true
	}

	floats := map[string]*float64{
		"MIN_GAP_PERCENT": &c.Thresholds.MinGapPercent,
		"MIN_PRICE":       &c.Thresholds.MinPrice,
		"MAX_PRICE":       &c.Thresholds.MaxPrice,
	}
	for k, dst := range floats {
		v := os.Getenv(k)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		*dst = f
	}

	if v := os.Getenv("SCANNER_INTERVAL"); v != "" {
		d, err := util.ParseInterval(v)
		if err != nil {
			return fmt.Errorf("SCANNER_INTERVAL: %w", err)
		}
		c.Scanner.Interval = d
	}
	if c.AI.APIKey != "" {
		c.AI.Enabled = true
	}
	return nil
}

// ApplyDefaults fills every zero-valued setting that has a default.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	setStr(&c.Log.Level, "info")
	setStr(&c.Log.Format, "console")
	setStr(&c.Log.Output, "stdout")
	setDur(&c.Log.Collector.Interval, 30*time.Second)
	setInt(&c.Log.Collector.Threshold, 100)
	setStr(&c.Log.Collector.Queue, "gapscout_logs")

	setInt(&c.Server.Port, 8080)
	setDur(&c.Server.ReadTimeout, 15*time.Second)
	setDur(&c.Server.WriteTimeout, 30*time.Second)
	setDur(&c.Server.ShutdownTimeout, 10*time.Second)

	c.Scanner.Symbols = util.NormalizeSymbols(c.Scanner.Symbols)
	if len(c.Scanner.Symbols) == 0 {
		c.Scanner.Symbols = append([]string(nil), DefaultSymbols...)
	}
	setDur(&c.Scanner.Interval, 60*time.Second)
	setInt(&c.Scanner.Workers, 8)
	setDur(&c.Scanner.SymbolTimeout, 20*time.Second)
	setDur(&c.Scanner.NewsLookback, 48*time.Hour)
	setStr(&c.Scanner.ResultsTopic, "gapscout.scan_results")

	setFloat(&c.Thresholds.MinGapPercent, 5)
	setFloat(&c.Thresholds.MinPrice, 0.50)
	setFloat(&c.Thresholds.MaxPrice, 20)

	setInt(&c.Alerts.TopN, 3)
	setDur(&c.Alerts.Cooldown, 30*time.Minute)
	setStr(&c.Alerts.Mode, "inproc")
	setDur(&c.Alerts.Spacing, time.Second)
	setInt(&c.Alerts.BufferSize, 64)
	setStr(&c.Alerts.Queue, "gapscout_alerts")
	setInt(&c.Alerts.RetryLimit, 3)
	setInt(&c.Alerts.Concurrency, 1)

	setStr(&c.Session.Timezone, "America/New_York")
	setBool(&c.Session.EnablePremarket, true)
	setBool(&c.Session.EnableAfterhours, false)

	setStr(&c.Alpaca.DataURL, "https://data.alpaca.markets")
	setStr(&c.Alpaca.Feed, "iex")
	setDur(&c.Alpaca.Timeout, 10*time.Second)
	setInt(&c.Alpaca.RatePerMin, 200)
	setInt(&c.Alpaca.RateCapacity, 20)

	setStr(&c.Finnhub.BaseURL, "https://finnhub.io/api/v1")
	setDur(&c.Finnhub.Timeout, 10*time.Second)
	setInt(&c.Finnhub.RatePerMin, 60)
	setDur(&c.Finnhub.CacheTTL, 12*time.Hour)
	setStr(&c.Finnhub.Stream.WebSocketURL, "wss://ws.finnhub.io")
	setDur(&c.Finnhub.Stream.ReconnectDelay, 5*time.Second)
	setDur(&c.Finnhub.Stream.PingInterval, 30*time.Second)
	setDur(&c.Finnhub.Stream.MaxAge, 2*time.Minute)

	setInt(&c.Research.Days, 90)
	setFloat(&c.Research.MinGapPercent, 5)
	setDur(&c.Research.Timeout, 15*time.Second)
	setDur(&c.Research.MinInterval, time.Second)
	setDur(&c.Research.CacheTTL, 6*time.Hour)
	if c.Research.BreakerFailures == 0 {
		c.Research.BreakerFailures = 5
	}
	setDur(&c.Research.BreakerCoolDown, 60*time.Second)

	setStr(&c.AI.BaseURL, "https://api.openai.com/v1")
	setStr(&c.AI.Model, "gpt-4o-mini")
	setDur(&c.AI.Timeout, 20*time.Second)
	setInt(&c.AI.Retries, 2)

	setStr(&c.Telegram.BaseURL, "https://api.telegram.org")
	setDur(&c.Telegram.Timeout, 10*time.Second)

	setStr(&c.Redis.Host, "localhost")
	setInt(&c.Redis.Port, 6379)
	setStr(&c.Redis.Prefix, "gapscout")

	setStr(&c.Kafka.ClientID, "gapscout")
	setInt(&c.Kafka.RequiredAcks, 1)
	setStr(&c.Kafka.Compression, "snappy")
	setInt(&c.Kafka.MaxAttempts, 3)
	setDur(&c.Kafka.WriteTimeout, 10*time.Second)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Scanner.Symbols) == 0 {
		return fmt.Errorf("scanner.symbols cannot be empty")
	}
	if c.Thresholds.MinGapPercent <= 0 {
		return fmt.Errorf("thresholds.min_gap_percent must be positive")
	}
	if c.Thresholds.MinPrice < 0 || c.Thresholds.MaxPrice <= c.Thresholds.MinPrice {
		return fmt.Errorf("thresholds: need 0 <= min_price < max_price, got %.2f..%.2f",
			c.Thresholds.MinPrice, c.Thresholds.MaxPrice)
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("scanner.workers must be positive")
	}
	if c.Alerts.TopN <= 0 {
		return fmt.Errorf("alerts.top_n must be positive")
	}
	switch c.Alerts.Mode {
	case "inproc":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("alerts.mode 'redis' requires redis.enabled")
		}
	default:
		return fmt.Errorf("alerts.mode must be 'inproc' or 'redis', got '%s'", c.Alerts.Mode)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether alerts can be sent to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// ResearchEnabled reports whether research credentials are configured.
func (c *Config) ResearchEnabled() bool {
	return c.Research.BaseURL != "" && c.Research.Email != "" && c.Research.Password != ""
}

// PremarketEnabled reports whether scans run before the open.
func (c *Config) PremarketEnabled() bool {
	return c.Session.EnablePremarket == nil || *c.Session.EnablePremarket
}

// AfterhoursEnabled reports whether scans run after the close.
func (c *Config) AfterhoursEnabled() bool {
	return c.Session.EnableAfterhours != nil && *c.Session.EnableAfterhours
}

// AlpacaEnabled reports whether live quotes can be fetched.
func (c *Config) AlpacaEnabled() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.SecretKey != ""
}

func setStr(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}

func setBool(dst **bool, v bool) {
	if *dst == nil {
		*dst = &v
	}
}

func setDur(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}
