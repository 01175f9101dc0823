package models

type SearchMetadata struct {
	TotalResults     int      `json:"total_results"`
	RawOffers        int      `json:"raw_offers"`
	SourcesQueried   int      `json:"sources_queried"`
	SourcesSucceeded int      `json:"sources_succeeded"`
	SourcesFailed    int      `json:"sources_failed"`
	FailedSources    []string `json:"failed_sources,omitempty"`
	UsedFallback     bool     `json:"used_fallback"`
	CacheHits        int      `json:"cache_hits"`
	NoResults        bool     `json:"no_results"`
	Message          string   `json:"message,omitempty"`
	SearchTimeMs     int64    `json:"search_time_ms"`
}

type SearchResponse struct {
	Code     string         `json:"code"`
	Query    SearchQuery    `json:"query"`
	Filters  Filters        `json:"filters"`
	Sort     SortMode       `json:"sort"`
	Metadata SearchMetadata `json:"metadata"`
	Offers   []FlightOffer  `json:"offers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
