package ranking

import (
	"math"

	"github.com/dharmasatrya/faresearch/internal/models"
)

// DurationWeight converts minutes into price units for the composite score.
const DurationWeight = 0.5

// Score is price + duration_minutes/2. Lower is better. It is a heuristic
// ordering for the "best" view, not a measure of value.
func Score(o models.FlightOffer) float64 {
	score := o.Price.Amount + float64(o.DurationMinutes)*DurationWeight
	return math.Round(score*100) / 100
}

// CalculateScores returns a copy of offers with Score filled in.
func CalculateScores(offers []models.FlightOffer) []models.FlightOffer {
	if len(offers) == 0 {
		return offers
	}

	result := make([]models.FlightOffer, len(offers))
	for i, o := range offers {
		result[i] = o
		result[i].Score = Score(o)
	}

	return result
}
