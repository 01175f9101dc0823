package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/internal/ranking"
)

// View filters and orders offers without touching the input slice. The sort
// is stable, so the same input always yields the same order.
func View(offers []models.FlightOffer, filters models.Filters, mode models.SortMode) []models.FlightOffer {
	filtered := applyFilters(offers, filters)

	if mode == models.SortBest {
		filtered = ranking.CalculateScores(filtered)
	}

	return applySort(filtered, mode)
}

func applyFilters(offers []models.FlightOffer, filters models.Filters) []models.FlightOffer {
	result := make([]models.FlightOffer, 0, len(offers))

	for _, o := range offers {
		if matchesFilters(o, filters) {
			result = append(result, o)
		}
	}

	return result
}

func matchesFilters(o models.FlightOffer, filters models.Filters) bool {
	if filters.MaxStops != nil && o.Stops > *filters.MaxStops {
		return false
	}

	if filters.MaxPrice != nil && o.Price.Amount > *filters.MaxPrice {
		return false
	}

	if filters.MaxDuration != nil && o.DurationMinutes > *filters.MaxDuration {
		return false
	}

	if len(filters.Airlines) > 0 && !flownBy(o, filters.Airlines) {
		return false
	}

	return true
}

// flownBy reports whether any carrier on the offer is in the allow-list.
func flownBy(o models.FlightOffer, airlines []string) bool {
	carriers := o.Carriers
	if len(carriers) == 0 && o.Airline != "" {
		carriers = strings.Split(o.Airline, ",")
	}

	for _, want := range airlines {
		for _, c := range carriers {
			if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

func applySort(offers []models.FlightOffer, mode models.SortMode) []models.FlightOffer {
	if len(offers) == 0 {
		return offers
	}

	switch mode {
	case models.SortFastest:
		sort.SliceStable(offers, func(i, j int) bool {
			if offers[i].DurationMinutes != offers[j].DurationMinutes {
				return offers[i].DurationMinutes < offers[j].DurationMinutes
			}
			return offers[i].Price.Amount < offers[j].Price.Amount
		})

	case models.SortBest:
		sort.SliceStable(offers, func(i, j int) bool {
			return offers[i].Score < offers[j].Score
		})

	default:
		sort.SliceStable(offers, func(i, j int) bool {
			if offers[i].Price.Amount != offers[j].Price.Amount {
				return offers[i].Price.Amount < offers[j].Price.Amount
			}
			return offers[i].DurationMinutes < offers[j].DurationMinutes
		})
	}

	return offers
}

// ParseStops reads the stops query value: "direct", "one" or a number.
func ParseStops(s string) *int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil
	case "direct", "nonstop", "non-stop", "0":
		n := models.StopsDirect
		return &n
	case "one", "1":
		n := models.StopsOneStop
		return &n
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
