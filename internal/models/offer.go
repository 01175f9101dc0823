package models

import "time"

const (
	LegOutbound = 0
	LegReturn   = 1
)

type Segment struct {
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	OriginCity      string    `json:"origin_city,omitempty"`
	DestinationCity string    `json:"destination_city,omitempty"`
	DepartureLocal  time.Time `json:"departure_local"`
	ArrivalLocal    time.Time `json:"arrival_local"`
	Carrier         string    `json:"carrier,omitempty"`
	FlightNumber    string    `json:"flight_number,omitempty"`
	Leg             int       `json:"leg"`
}

type Price struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Formatted string  `json:"formatted"`
}

type Baggage struct {
	CabinKg      float64 `json:"cabin_kg"`
	CheckedKg    float64 `json:"checked_kg"`
	FirstBagFee  float64 `json:"first_bag_fee,omitempty"`
	SecondBagFee float64 `json:"second_bag_fee,omitempty"`
}

// FlightOffer is the canonical offer every upstream shape is normalized into.
// Segments are ordered by departure within each leg and Stops always equals
// max(0, outbound segments - 1).
type FlightOffer struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	OriginCity      string    `json:"origin_city,omitempty"`
	DestinationCity string    `json:"destination_city,omitempty"`
	Segments        []Segment `json:"segments"`
	Airline         string    `json:"airline"`
	Carriers        []string  `json:"carriers,omitempty"`
	Price           Price     `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	Stops           int       `json:"stops"`
	LayoverMinutes  int       `json:"layover_minutes"`
	Baggage         Baggage   `json:"baggage"`
	DeepLink        string    `json:"deep_link,omitempty"`
	Score           float64   `json:"score,omitempty"`
}

func (o FlightOffer) SegmentsForLeg(leg int) []Segment {
	var out []Segment
	for _, s := range o.Segments {
		if s.Leg == leg {
			out = append(out, s)
		}
	}
	return out
}
