package models

import "strings"

type SortMode string

const (
	SortCheapest SortMode = "cheapest"
	SortFastest  SortMode = "fastest"
	SortBest     SortMode = "best"
)

func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortFastest:
		return SortFastest
	case SortBest:
		return SortBest
	default:
		return SortCheapest
	}
}

// Filters are conjunctive; nil or empty fields do not restrict.
type Filters struct {
	MaxStops    *int     `json:"max_stops,omitempty"`
	Airlines    []string `json:"airlines,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	MaxDuration *int     `json:"max_duration,omitempty"`
}

const (
	StopsDirect  = 0
	StopsOneStop = 1
)
