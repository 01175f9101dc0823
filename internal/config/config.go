// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/pkg/currency"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	Cache   CacheConfig    `envPrefix:"CACHE_"`
	Redis   RedisConfig    `envPrefix:"REDIS_"`
	Queue   QueueConfig    `envPrefix:"QUEUE_"`
	Fetch   FetchConfig    `envPrefix:"FETCH_"`
	Pricing SourceConfig   `envPrefix:"PRICING_"`
	Partner SourceConfig   `envPrefix:"PARTNER_"`
	Widget  WidgetConfig   `envPrefix:"WIDGET_"`
	Content ContentConfig  `envPrefix:"CONTENT_"`
	Search  SearchSettings `envPrefix:"SEARCH_"`
}

type CacheConfig struct {
	Enabled    bool          `env:"ENABLED" envDefault:"true"`
	Namespace  string        `env:"NAMESPACE" envDefault:"faresearch"`
	StaticTTL  time.Duration `env:"STATIC_TTL" envDefault:"24h"`
	ContentTTL time.Duration `env:"CONTENT_TTL" envDefault:"6h"`
	PricingTTL time.Duration `env:"PRICING_TTL" envDefault:"15m"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type QueueConfig struct {
	// Enabled routes cache invalidation through the asynq worker instead of
	// running it inside the request.
	Enabled     bool `env:"ENABLED" envDefault:"false"`
	Concurrency int  `env:"CONCURRENCY" envDefault:"4"`
}

type FetchConfig struct {
	Budget      time.Duration   `env:"BUDGET" envDefault:"15s"`
	MaxRetries  int             `env:"MAX_RETRIES" envDefault:"1"`
	RetryDelays []time.Duration `env:"RETRY_DELAYS" envDefault:"200ms,500ms"`
}

type SourceConfig struct {
	URL       string        `env:"URL"`
	APIKey    string        `env:"API_KEY"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"8s"`
	RateLimit float64       `env:"RPS" envDefault:"10"`
	Burst     int           `env:"BURST" envDefault:"20"`
}

func (s SourceConfig) Enabled() bool {
	return s.URL != ""
}

type WidgetConfig struct {
	// FrameURL is the widget page; see providers.WidgetSource for placeholders.
	FrameURL string          `env:"FRAME_URL"`
	Schedule []time.Duration `env:"SCHEDULE" envDefault:"1s,3s,6s,10s"`
	Deadline time.Duration   `env:"DEADLINE" envDefault:"13s"`
}

func (w WidgetConfig) Enabled() bool {
	return w.FrameURL != ""
}

type ContentConfig struct {
	URL      string        `env:"URL"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
	DomainID string        `env:"DOMAIN_ID" envDefault:"1"`
	Language string        `env:"LANGUAGE" envDefault:"en"`
}

// SearchSettings are the admin-tunable search flags. Handlers copy them per
// request and apply query overrides to the copy; nothing mutates the loaded
// value.
type SearchSettings struct {
	// FallbackEnabled allows the widget scrape when structured sources return nothing.
	FallbackEnabled bool `env:"FALLBACK_ENABLED" envDefault:"true"`
	// ResultLimit caps offers requested from each upstream and returned to the page.
	ResultLimit int `env:"RESULT_LIMIT" envDefault:"50"`
	// DefaultCurrency prices queries that do not name a currency.
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"USD"`
	// DefaultSort applies when the page does not ask for an order.
	DefaultSort models.SortMode `env:"DEFAULT_SORT" envDefault:"cheapest"`
}

func DefaultSearchSettings() SearchSettings {
	return SearchSettings{
		FallbackEnabled: true,
		ResultLimit:     50,
		DefaultCurrency: "USD",
		DefaultSort:     models.SortCheapest,
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Fetch.Budget <= 0 {
		return errors.New("FETCH_BUDGET must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		return errors.Errorf("FETCH_MAX_RETRIES must be >= 0, got %d", c.Fetch.MaxRetries)
	}
	if c.Search.ResultLimit < 1 {
		return errors.Errorf("SEARCH_RESULT_LIMIT must be >= 1, got %d", c.Search.ResultLimit)
	}
	code, ok := currency.Normalize(c.Search.DefaultCurrency)
	if !ok {
		return errors.Errorf("SEARCH_DEFAULT_CURRENCY %q is not an ISO 4217 code", c.Search.DefaultCurrency)
	}
	c.Search.DefaultCurrency = code
	c.Search.DefaultSort = models.ParseSortMode(string(c.Search.DefaultSort))

	for _, d := range c.Widget.Schedule {
		if d < 0 {
			return errors.New("WIDGET_SCHEDULE entries must not be negative")
		}
	}
	return nil
}

// HasUpstreams reports whether at least one offer source is configured.
func (c *Config) HasUpstreams() bool {
	return c.Pricing.Enabled() || c.Partner.Enabled() || c.Widget.Enabled()
}
