package aggregator

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/faresearch/internal/cache"
	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/internal/providers"
	"github.com/dharmasatrya/faresearch/internal/ratelimit"
)

type fakeSource struct {
	name   string
	offers int
	err    error
	delay  time.Duration
	failN  int32
	calls  atomic.Int32
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(ctx context.Context, req providers.Request) ([]models.RawOffer, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= s.failN {
		return nil, errors.New("flaky")
	}
	if s.err != nil {
		return nil, s.err
	}

	out := make([]models.RawOffer, s.offers)
	for i := range out {
		out[i] = models.RawOffer{
			Source:  s.name,
			Kind:    models.RawPricing,
			Pricing: &models.PricingOffer{ID: s.name, Price: float64(100 + i)},
		}
	}
	return out, nil
}

func query() models.SearchQuery {
	return models.SearchQuery{
		Origin:        "JFK",
		Destination:   "LHR",
		DepartureDate: time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC),
		Adults:        1,
		Cabin:         models.CabinEconomy,
		Currency:      "USD",
	}
}

func testConfig() Config {
	return Config{
		Budget:      time.Second,
		MaxRetries:  1,
		RetryDelays: []time.Duration{time.Millisecond},
	}
}

func memoryFacade() *cache.Facade {
	return cache.NewFacade(cache.NewMemoryStore(), "test", cache.DefaultTTLs())
}

func TestFetchMergesPrimarySources(t *testing.T) {
	a := &fakeSource{name: "pricing", offers: 2}
	b := &fakeSource{name: "partner", offers: 3}

	f := NewFetcher([]providers.Source{a, b}, nil, nil, testConfig())
	result := f.Fetch(context.Background(), query(), Options{Limit: 10})

	assert.Len(t, result.Offers, 5)
	assert.Equal(t, 2, result.SourcesQueried)
	assert.Equal(t, 2, result.SourcesSucceeded)
	assert.Zero(t, result.SourcesFailed)
	assert.False(t, result.UsedFallback)
}

func TestFetchIsolatesFailingSource(t *testing.T) {
	good := &fakeSource{name: "pricing", offers: 3}
	bad := &fakeSource{name: "partner", err: &providers.ProviderError{Provider: "partner", StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}}

	f := NewFetcher([]providers.Source{good, bad}, nil, nil, testConfig())
	result := f.Fetch(context.Background(), query(), Options{})

	assert.Len(t, result.Offers, 3)
	assert.Equal(t, 1, result.SourcesSucceeded)
	assert.Equal(t, 1, result.SourcesFailed)
	assert.Equal(t, []string{"partner"}, result.FailedSources)
	assert.Equal(t, int32(2), bad.calls.Load(), "5xx is retried once")
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	bad := &fakeSource{name: "pricing", err: &providers.ProviderError{Provider: "pricing", StatusCode: http.StatusUnauthorized, Err: errors.New("no key")}}

	f := NewFetcher([]providers.Source{bad}, nil, nil, testConfig())
	result := f.Fetch(context.Background(), query(), Options{})

	assert.Equal(t, 1, result.SourcesFailed)
	assert.Equal(t, int32(1), bad.calls.Load())
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	flaky := &fakeSource{name: "pricing", offers: 1, failN: 1}

	f := NewFetcher([]providers.Source{flaky}, nil, nil, testConfig())
	result := f.Fetch(context.Background(), query(), Options{})

	assert.Len(t, result.Offers, 1)
	assert.Equal(t, int32(2), flaky.calls.Load())
}

func TestFetchFallbackOnlyWhenPrimaryEmpty(t *testing.T) {
	t.Run("primary has offers", func(t *testing.T) {
		primary := &fakeSource{name: "pricing", offers: 1}
		widget := &fakeSource{name: "widget", offers: 4}

		f := NewFetcher([]providers.Source{primary}, []providers.Source{widget}, nil, testConfig())
		result := f.Fetch(context.Background(), query(), Options{Fallback: true})

		assert.Len(t, result.Offers, 1)
		assert.False(t, result.UsedFallback)
		assert.Zero(t, widget.calls.Load())
	})

	t.Run("primary empty", func(t *testing.T) {
		primary := &fakeSource{name: "pricing"}
		widget := &fakeSource{name: "widget", offers: 4}

		f := NewFetcher([]providers.Source{primary}, []providers.Source{widget}, nil, testConfig())
		result := f.Fetch(context.Background(), query(), Options{Fallback: true})

		assert.Len(t, result.Offers, 4)
		assert.True(t, result.UsedFallback)
		assert.Equal(t, 2, result.SourcesQueried)
		assert.Equal(t, "widget", result.Offers[0].Source)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		primary := &fakeSource{name: "pricing"}
		widget := &fakeSource{name: "widget", offers: 4}

		f := NewFetcher([]providers.Source{primary}, []providers.Source{widget}, nil, testConfig())
		result := f.Fetch(context.Background(), query(), Options{Fallback: false})

		assert.Empty(t, result.Offers)
		assert.False(t, result.UsedFallback)
		assert.Zero(t, widget.calls.Load())
	})
}

func TestFetchBudgetCutsSlowSources(t *testing.T) {
	fast := &fakeSource{name: "pricing", offers: 2}
	slow := &fakeSource{name: "partner", offers: 2, delay: 5 * time.Second}

	cfg := testConfig()
	cfg.Budget = 50 * time.Millisecond
	f := NewFetcher([]providers.Source{fast, slow}, nil, nil, cfg)

	start := time.Now()
	result := f.Fetch(context.Background(), query(), Options{})

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, result.Offers, 2)
	assert.Equal(t, []string{"partner"}, result.FailedSources)
}

func TestFetchUsesCachePerSource(t *testing.T) {
	facade := memoryFacade()
	a := &fakeSource{name: "pricing", offers: 2}
	b := &fakeSource{name: "partner", offers: 1}

	f := NewFetcher([]providers.Source{a, b}, nil, facade, testConfig())

	first := f.Fetch(context.Background(), query(), Options{Limit: 10})
	second := f.Fetch(context.Background(), query(), Options{Limit: 10})

	assert.Zero(t, first.CacheHits)
	assert.Equal(t, 2, second.CacheHits)
	assert.Len(t, second.Offers, 3)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())

	other := query()
	other.Adults = 2
	third := f.Fetch(context.Background(), other, Options{Limit: 10})
	assert.Zero(t, third.CacheHits, "different passengers must not share a key")
}

func TestFetchDoesNotCacheEmptyOrFailed(t *testing.T) {
	facade := memoryFacade()
	empty := &fakeSource{name: "pricing"}
	bad := &fakeSource{name: "partner", err: errors.New("down")}

	f := NewFetcher([]providers.Source{empty, bad}, nil, facade, Config{Budget: time.Second})
	f.Fetch(context.Background(), query(), Options{})
	result := f.Fetch(context.Background(), query(), Options{})

	assert.Zero(t, result.CacheHits)
	assert.Equal(t, int32(2), empty.calls.Load())
	assert.Equal(t, int32(2), bad.calls.Load())
}

func TestFetchInvalidationForcesRefetch(t *testing.T) {
	facade := memoryFacade()
	src := &fakeSource{name: "pricing", offers: 1}
	f := NewFetcher([]providers.Source{src}, nil, facade, testConfig())

	f.Fetch(context.Background(), query(), Options{})
	deleted, err := facade.Invalidate(context.Background(), ResourceOffers, map[string]string{"from": "JFK"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	f.Fetch(context.Background(), query(), Options{})
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestFetchEmptyQuery(t *testing.T) {
	src := &fakeSource{name: "pricing", offers: 1}
	f := NewFetcher([]providers.Source{src}, nil, nil, testConfig())

	result := f.Fetch(context.Background(), models.SearchQuery{}, Options{})

	assert.Empty(t, result.Offers)
	assert.Zero(t, result.SourcesQueried)
	assert.Zero(t, src.calls.Load())
}

func TestFetchRespectsRateLimiter(t *testing.T) {
	limiter := ratelimit.NewSourceLimiter(ratelimit.DefaultLimit(), map[string]ratelimit.Limit{
		"pricing": {RequestsPerSecond: 0.001, Burst: 1},
	})
	src := &fakeSource{name: "pricing", offers: 1}

	cfg := testConfig()
	cfg.Budget = 100 * time.Millisecond
	cfg.RateLimiter = limiter
	f := NewFetcher([]providers.Source{src}, nil, nil, cfg)

	first := f.Fetch(context.Background(), query(), Options{})
	second := f.Fetch(context.Background(), query(), Options{})

	assert.Len(t, first.Offers, 1)
	assert.Empty(t, second.Offers)
	assert.Equal(t, []string{"pricing"}, second.FailedSources)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestWarm(t *testing.T) {
	facade := memoryFacade()
	a := &fakeSource{name: "pricing", offers: 1}
	b := &fakeSource{name: "partner"}
	w := &fakeSource{name: "widget", offers: 1}
	f := NewFetcher([]providers.Source{a, b}, []providers.Source{w}, facade, testConfig())

	assert.Empty(t, f.Warm(context.Background(), query(), 10))

	f.Fetch(context.Background(), query(), Options{Limit: 10})

	assert.Equal(t, []string{"pricing"}, f.Warm(context.Background(), query(), 10))
	assert.Empty(t, f.Warm(context.Background(), query(), 20))
	assert.Nil(t, f.Warm(context.Background(), models.SearchQuery{}, 10))
}
