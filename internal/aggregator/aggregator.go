package aggregator

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/faresearch/internal/cache"
	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/internal/providers"
	"github.com/dharmasatrya/faresearch/internal/ratelimit"
)

// ResourceOffers is the cache resource raw offers are stored under.
const ResourceOffers = "offers"

var errBudgetExceeded = errors.New("fetch budget exceeded")

type Config struct {
	// Budget bounds each phase (primary sources, then fallback).
	Budget      time.Duration
	MaxRetries  int
	RetryDelays []time.Duration
	RateLimiter *ratelimit.SourceLimiter
}

func DefaultConfig() Config {
	return Config{
		Budget:      15 * time.Second,
		MaxRetries:  1,
		RetryDelays: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond},
	}
}

type Options struct {
	// Limit is the result limit passed to every source.
	Limit int
	// Fallback allows the fallback sources when primaries return no offers.
	Fallback bool
}

// Fetcher queries every primary source concurrently and, only when they
// return nothing, the fallback sources. Each source call is cached on its
// own through the facade.
type Fetcher struct {
	primary  []providers.Source
	fallback []providers.Source
	cache    *cache.Facade
	config   Config
}

type Result struct {
	Offers           []models.RawOffer
	SourcesQueried   int
	SourcesSucceeded int
	SourcesFailed    int
	FailedSources    []string
	UsedFallback     bool
	CacheHits        int
}

func NewFetcher(primary, fallback []providers.Source, facade *cache.Facade, config Config) *Fetcher {
	if facade == nil {
		facade = cache.NewFacade(cache.NewNoOpStore(), "", cache.DefaultTTLs())
	}
	if config.Budget <= 0 {
		config.Budget = DefaultConfig().Budget
	}
	return &Fetcher{
		primary:  primary,
		fallback: fallback,
		cache:    facade,
		config:   config,
	}
}

// Fetch never fails: a source that errors or times out contributes no
// offers and is listed in FailedSources.
func (f *Fetcher) Fetch(ctx context.Context, q models.SearchQuery, opts Options) *Result {
	result := &Result{
		Offers: make([]models.RawOffer, 0),
	}
	if q.IsEmpty() {
		return result
	}

	req := providers.Request{Query: q, Limit: opts.Limit}
	f.runPhase(ctx, f.primary, req, result)

	if len(result.Offers) == 0 && opts.Fallback && len(f.fallback) > 0 {
		log.Info().Str("from", q.Origin).Str("to", q.Destination).Msg("primary sources empty, trying fallback")
		result.UsedFallback = true
		f.runPhase(ctx, f.fallback, req, result)
	}

	return result
}

func (f *Fetcher) runPhase(ctx context.Context, sources []providers.Source, req providers.Request, result *Result) {
	if len(sources) == 0 {
		return
	}

	phaseCtx, cancel := context.WithTimeout(ctx, f.config.Budget)
	defer cancel()

	type sourceResult struct {
		source string
		offers []models.RawOffer
		cached bool
		err    error
	}

	resultCh := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup

	for _, s := range sources {
		wg.Add(1)
		go func(source providers.Source) {
			defer wg.Done()

			offers, cached, err := f.fetchSource(phaseCtx, source, req)
			resultCh <- sourceResult{
				source: source.Name(),
				offers: offers,
				cached: cached,
				err:    err,
			}
		}(s)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result.SourcesQueried += len(sources)
	reported := make(map[string]bool, len(sources))

	record := func(sr sourceResult) {
		reported[sr.source] = true
		if sr.err != nil {
			log.Warn().Err(sr.err).Str("source", sr.source).Msg("source failed")
			result.SourcesFailed++
			result.FailedSources = append(result.FailedSources, sr.source)
			return
		}
		result.SourcesSucceeded++
		if sr.cached {
			result.CacheHits++
		}
		result.Offers = append(result.Offers, sr.offers...)
	}

	for {
		select {
		case sr, ok := <-resultCh:
			if !ok {
				return
			}
			record(sr)

		case <-phaseCtx.Done():
			// Drain whatever already finished, then give up on the rest.
			for {
				select {
				case sr, ok := <-resultCh:
					if !ok {
						return
					}
					record(sr)
					continue
				default:
				}
				break
			}
			for _, s := range sources {
				if !reported[s.Name()] {
					record(sourceResult{source: s.Name(), err: errBudgetExceeded})
				}
			}
			return
		}
	}
}

func (f *Fetcher) sourceKey(req providers.Request, source string) string {
	params := req.Params()
	params["source"] = source
	return f.cache.Key(ResourceOffers, params)
}

// fetchSource reads one source through the cache. cached reports a hit.
func (f *Fetcher) fetchSource(ctx context.Context, source providers.Source, req providers.Request) ([]models.RawOffer, bool, error) {
	key := f.sourceKey(req, source.Name())

	fetched := false
	offers, err := cache.GetOrFetch(ctx, f.cache, key, f.cache.TTL(cache.ClassPricing), func(ctx context.Context) ([]models.RawOffer, error) {
		fetched = true
		if f.config.RateLimiter != nil {
			if err := f.config.RateLimiter.Wait(ctx, source.Name()); err != nil {
				return nil, err
			}
		}
		return f.fetchWithRetry(ctx, source, req)
	})
	if err != nil {
		return nil, false, err
	}
	return offers, !fetched, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, source providers.Source, req providers.Request) ([]models.RawOffer, error) {
	var lastErr error

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if attempt > 0 && len(f.config.RetryDelays) > 0 {
			delayIdx := attempt - 1
			if delayIdx >= len(f.config.RetryDelays) {
				delayIdx = len(f.config.RetryDelays) - 1
			}

			select {
			case <-time.After(f.config.RetryDelays[delayIdx]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		offers, err := source.Fetch(ctx, req)
		if err == nil {
			return offers, nil
		}

		lastErr = err
		log.Debug().Err(err).Str("source", source.Name()).Int("attempt", attempt+1).Msg("source attempt failed")

		if !retryable(err) {
			break
		}
	}

	return nil, lastErr
}

// retryable is false for client errors an identical retry cannot fix.
func retryable(err error) bool {
	var perr *providers.ProviderError
	if errors.As(err, &perr) && perr.StatusCode >= 400 && perr.StatusCode < 500 {
		return perr.StatusCode == http.StatusTooManyRequests || perr.StatusCode == http.StatusRequestTimeout
	}
	return true
}

// Warm lists the sources whose offers for q are already cached, primaries
// first. It only peeks at the store and never calls a source.
func (f *Fetcher) Warm(ctx context.Context, q models.SearchQuery, limit int) []string {
	if q.IsEmpty() {
		return nil
	}

	req := providers.Request{Query: q, Limit: limit}
	sources := append(append([]providers.Source{}, f.primary...), f.fallback...)
	keys := make([]string, len(sources))
	for i, s := range sources {
		keys[i] = f.sourceKey(req, s.Name())
	}

	var warm []string
	for i, hit := range f.cache.Cached(ctx, keys...) {
		if hit {
			warm = append(warm, sources[i].Name())
		}
	}
	return warm
}
