package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/dharmasatrya/faresearch/internal/aggregator"
	"github.com/dharmasatrya/faresearch/internal/config"
	"github.com/dharmasatrya/faresearch/internal/filter"
	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/internal/normalizer"
	"github.com/dharmasatrya/faresearch/internal/searchcode"
	"github.com/dharmasatrya/faresearch/pkg/currency"
)

type SearchHandler struct {
	fetcher  *aggregator.Fetcher
	settings config.SearchSettings
	now      func() time.Time
}

func NewSearchHandler(fetcher *aggregator.Fetcher, settings config.SearchSettings) *SearchHandler {
	defaults := config.DefaultSearchSettings()
	if settings.ResultLimit <= 0 {
		settings.ResultLimit = defaults.ResultLimit
	}
	if settings.DefaultCurrency == "" {
		settings.DefaultCurrency = defaults.DefaultCurrency
	}
	if settings.DefaultSort == "" {
		settings.DefaultSort = defaults.DefaultSort
	}
	return &SearchHandler{
		fetcher:  fetcher,
		settings: settings,
		now:      time.Now,
	}
}

// Search runs the whole pipeline for the code in the path: parse, fetch,
// normalize, filter and sort. Missing data is never an error; it is a 200
// with no_results set.
func (h *SearchHandler) Search(c echo.Context) error {
	startTime := time.Now()
	ctx := c.Request().Context()

	code := c.Param("code")
	settings := h.requestSettings(c)
	q := h.parse(c, code, settings)
	filters := parseFilters(c)
	mode := settings.DefaultSort
	if s := c.QueryParam("sort"); s != "" {
		mode = models.ParseSortMode(s)
	}

	resp := models.SearchResponse{
		Code:    code,
		Query:   q,
		Filters: filters,
		Sort:    mode,
		Offers:  []models.FlightOffer{},
	}

	if err := q.Validate(); err != nil {
		resp.Metadata = models.SearchMetadata{
			NoResults:    true,
			Message:      err.Error(),
			SearchTimeMs: time.Since(startTime).Milliseconds(),
		}
		return c.JSON(http.StatusOK, resp)
	}

	result := h.fetcher.Fetch(ctx, q, aggregator.Options{
		Limit:    settings.ResultLimit,
		Fallback: settings.FallbackEnabled,
	})

	offers := normalizer.Normalize(result.Offers, "", q)
	view := filter.View(offers, filters, mode)
	if len(view) > settings.ResultLimit {
		view = view[:settings.ResultLimit]
	}
	resp.Offers = view

	resp.Metadata = models.SearchMetadata{
		TotalResults:     len(view),
		RawOffers:        len(result.Offers),
		SourcesQueried:   result.SourcesQueried,
		SourcesSucceeded: result.SourcesSucceeded,
		SourcesFailed:    result.SourcesFailed,
		FailedSources:    result.FailedSources,
		UsedFallback:     result.UsedFallback,
		CacheHits:        result.CacheHits,
		NoResults:        len(view) == 0,
		SearchTimeMs:     time.Since(startTime).Milliseconds(),
	}

	log.Info().
		Str("code", code).
		Int("raw", len(result.Offers)).
		Int("offers", len(view)).
		Int("failed", result.SourcesFailed).
		Bool("fallback", result.UsedFallback).
		Int64("ms", resp.Metadata.SearchTimeMs).
		Msg("search done")

	return c.JSON(http.StatusOK, resp)
}

type searchCodeResponse struct {
	Code        string             `json:"code"`
	Canonical   string             `json:"canonical"`
	Query       models.SearchQuery `json:"query"`
	Valid       bool               `json:"valid"`
	Message     string             `json:"message,omitempty"`
	WarmSources []string           `json:"warm_sources"`
}

// SearchCode decodes a code without searching and reports which sources
// already have cached offers for it.
func (h *SearchHandler) SearchCode(c echo.Context) error {
	code := c.Param("code")
	settings := h.requestSettings(c)
	q := h.parse(c, code, settings)

	resp := searchCodeResponse{
		Code:        code,
		Canonical:   searchcode.Format(q),
		Query:       q,
		Valid:       true,
		WarmSources: []string{},
	}
	if err := q.Validate(); err != nil {
		resp.Valid = false
		resp.Message = err.Error()
		return c.JSON(http.StatusOK, resp)
	}

	if warm := h.fetcher.Warm(c.Request().Context(), q, settings.ResultLimit); warm != nil {
		resp.WarmSources = warm
	}
	return c.JSON(http.StatusOK, resp)
}

// parse decodes code and applies a cabin override. The code itself only
// distinguishes economy from business.
func (h *SearchHandler) parse(c echo.Context, code string, settings config.SearchSettings) models.SearchQuery {
	p := searchcode.Parser{Now: h.now, Currency: settings.DefaultCurrency}
	q := p.Parse(code)
	if cabin := c.QueryParam("cabin"); cabin != "" && !q.IsEmpty() {
		q.Cabin = models.ParseCabinClass(cabin)
	}
	return q
}

// requestSettings copies the loaded settings and applies the overrides a
// page may pass: currency, fallback and limit.
func (h *SearchHandler) requestSettings(c echo.Context) config.SearchSettings {
	s := h.settings

	if cur := c.QueryParam("currency"); cur != "" {
		if code, ok := currency.Normalize(cur); ok {
			s.DefaultCurrency = code
		}
	}
	if fb := c.QueryParam("fallback"); fb != "" {
		if v, err := strconv.ParseBool(fb); err == nil {
			s.FallbackEnabled = v
		}
	}
	if lim := c.QueryParam("limit"); lim != "" {
		if n, err := strconv.Atoi(lim); err == nil && n > 0 && n < s.ResultLimit {
			s.ResultLimit = n
		}
	}
	return s
}

func parseFilters(c echo.Context) models.Filters {
	var f models.Filters

	f.MaxStops = filter.ParseStops(c.QueryParam("stops"))

	if raw := c.QueryParam("airlines"); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				f.Airlines = append(f.Airlines, strings.ToUpper(a))
			}
		}
	}

	if raw := c.QueryParam("max_price"); raw != "" {
		if v, err := cast.ToFloat64E(raw); err == nil && v > 0 {
			f.MaxPrice = &v
		}
	}

	if raw := c.QueryParam("max_duration"); raw != "" {
		if v, err := cast.ToIntE(raw); err == nil && v > 0 {
			f.MaxDuration = &v
		}
	}

	return f
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
