package model

import "time"

// Config holds all runtime settings. Values come from (highest priority
// first) CLI flags, CHATPULSE_* environment variables, the YAML config
// file, then the defaults below. Components receive the slice of Config
// they need at construction; there are no package-level singletons.
type Config struct {
	Window      time.Duration     `yaml:"window"`
	Scrape      ScrapeConfig      `yaml:"scrape"`
	Classify    ClassifyConfig    `yaml:"classify"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Registry    RegistryConfig    `yaml:"registry"`
	Session     SessionConfig     `yaml:"session"`
	Channel     ChannelConfig     `yaml:"channel"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Notify      NotifyConfig      `yaml:"notify"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
}

// ScrapeConfig tunes connector HTTP behavior shared by all platforms.
type ScrapeConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
	BackoffBase time.Duration `yaml:"backoffBase"`
	PageSize    int           `yaml:"pageSize"`
	RatePerSec  float64       `yaml:"ratePerSec"`
	RateBurst   int           `yaml:"rateBurst"`
}

// ClassifyConfig describes the scoring service and batching parameters.
type ClassifyConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Timeout     time.Duration `yaml:"timeout"`
	BatchSize   int           `yaml:"batchSize"`
	MaxRetries  int           `yaml:"maxRetries"`
	BackoffBase time.Duration `yaml:"backoffBase"`
}

// ConcurrencyConfig bounds the two independent fan-out domains. Harvest
// applies across all platforms combined; Classify gates scoring batches
// and only comes into play after harvesting has fully completed.
type ConcurrencyConfig struct {
	Harvest  int `yaml:"harvest"`
	Classify int `yaml:"classify"`
}

// RegistryConfig selects where the source list and run stats live.
// When DSN is empty the file registry is used and stats are only logged.
type RegistryConfig struct {
	DSN  string `yaml:"dsn"`
	File string `yaml:"file"`
}

// SessionConfig points at the chat-group gateway that owns the persistent
// authenticated session.
type SessionConfig struct {
	BridgeURL string `yaml:"bridgeUrl"`
	Token     string `yaml:"token"`
}

// ChannelConfig holds token access for the channel REST API.
type ChannelConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Token   string `yaml:"token"`
}

// AnalyticsConfig holds access and caching for the analytics endpoints.
type AnalyticsConfig struct {
	BaseURL  string        `yaml:"baseUrl"`
	APIKey   string        `yaml:"apiKey"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// NotifyConfig wires the operator alert channel.
type NotifyConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// OutputConfig controls where the final collection is written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig sets the console log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns sensible defaults for every setting.
func DefaultConfig() Config {
	return Config{
		Window: 24 * time.Hour,
		Scrape: ScrapeConfig{
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			BackoffBase: time.Second,
			PageSize:    100,
			RatePerSec:  5,
			RateBurst:   5,
		},
		Classify: ClassifyConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Timeout:     60 * time.Second,
			BatchSize:   10,
			MaxRetries:  3,
			BackoffBase: time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Harvest:  10,
			Classify: 5,
		},
		Registry: RegistryConfig{
			File: "sources.yaml",
		},
		Channel: ChannelConfig{
			BaseURL: "https://discord.com/api/v10",
		},
		Analytics: AnalyticsConfig{
			BaseURL:  "https://api.elfa.ai/v1",
			CacheTTL: 15 * time.Minute,
		},
		Output: OutputConfig{
			Dir: "out",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
