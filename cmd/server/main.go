package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/faresearch/internal/aggregator"
	"github.com/dharmasatrya/faresearch/internal/cache"
	"github.com/dharmasatrya/faresearch/internal/config"
	"github.com/dharmasatrya/faresearch/internal/content"
	"github.com/dharmasatrya/faresearch/internal/handler"
	"github.com/dharmasatrya/faresearch/internal/jobs"
	"github.com/dharmasatrya/faresearch/internal/providers"
	"github.com/dharmasatrya/faresearch/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	facade := cache.NewFacade(newStore(cfg), cfg.Cache.Namespace, cache.TTLs{
		Static:  cfg.Cache.StaticTTL,
		Content: cfg.Cache.ContentTTL,
		Pricing: cfg.Cache.PricingTTL,
	})
	defer facade.Close()

	primary, fallback := initializeSources(cfg)
	if !cfg.HasUpstreams() {
		log.Warn().Msg("no offer sources configured, every search will be empty")
	}
	log.Info().Int("primary", len(primary)).Int("fallback", len(fallback)).Msg("offer sources initialized")

	fetcher := aggregator.NewFetcher(primary, fallback, facade, aggregator.Config{
		Budget:      cfg.Fetch.Budget,
		MaxRetries:  cfg.Fetch.MaxRetries,
		RetryDelays: cfg.Fetch.RetryDelays,
		RateLimiter: newLimiter(cfg),
	})

	contentClient := content.NewClient(content.Config{
		URL:      cfg.Content.URL,
		Timeout:  cfg.Content.Timeout,
		Language: cfg.Content.Language,
		DomainID: cfg.Content.DomainID,
	}, facade)

	var queue handler.InvalidationQueue
	if cfg.Queue.Enabled {
		enqueuer := jobs.NewEnqueuer(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer enqueuer.Close()
		queue = enqueuer
		log.Info().Str("queue", jobs.QueueCache).Msg("cache invalidation routed through worker")
	}

	handler.Register(e, handler.Handlers{
		Search:  handler.NewSearchHandler(fetcher, cfg.Search),
		Content: handler.NewContentHandler(contentClient),
		Cache:   handler.NewCacheHandler(facade, queue),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting fare search server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// newStore prefers Redis and degrades to process memory when it is down,
// so a missing cache never takes search offline.
func newStore(cfg *config.Config) cache.Store {
	if !cfg.Cache.Enabled {
		log.Info().Msg("cache disabled")
		return cache.NewNoOpStore()
	}

	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Addr = cfg.Redis.Addr
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB

	store, err := cache.NewRedisStore(redisCfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		return cache.NewMemoryStore()
	}

	log.Info().
		Str("addr", cfg.Redis.Addr).
		Dur("pricing_ttl", cfg.Cache.PricingTTL).
		Dur("content_ttl", cfg.Cache.ContentTTL).
		Dur("static_ttl", cfg.Cache.StaticTTL).
		Msg("redis cache enabled")
	return store
}

func initializeSources(cfg *config.Config) (primary, fallback []providers.Source) {
	if cfg.Pricing.Enabled() {
		primary = append(primary, providers.NewPricingSource(providers.PricingConfig{
			URL:     cfg.Pricing.URL,
			APIKey:  cfg.Pricing.APIKey,
			Timeout: cfg.Pricing.Timeout,
		}))
	}

	if cfg.Partner.Enabled() {
		primary = append(primary, providers.NewPartnerSource(providers.PartnerConfig{
			URL:     cfg.Partner.URL,
			APIKey:  cfg.Partner.APIKey,
			Timeout: cfg.Partner.Timeout,
		}))
	}

	if cfg.Widget.Enabled() {
		fallback = append(fallback, providers.NewWidgetSource(providers.WidgetConfig{
			FrameURL: cfg.Widget.FrameURL,
			Schedule: cfg.Widget.Schedule,
			Deadline: cfg.Widget.Deadline,
		}))
	}

	return primary, fallback
}

func newLimiter(cfg *config.Config) *ratelimit.SourceLimiter {
	limit := func(s config.SourceConfig) ratelimit.Limit {
		return ratelimit.Limit{RequestsPerSecond: s.RateLimit, Burst: s.Burst}
	}
	return ratelimit.NewSourceLimiter(ratelimit.DefaultLimit(), map[string]ratelimit.Limit{
		"pricing": limit(cfg.Pricing),
		"partner": limit(cfg.Partner),
	})
}
