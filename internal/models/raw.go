package models

// RawKind tags which upstream payload shape a RawOffer carries.
type RawKind string

const (
	RawPricing RawKind = "pricing"
	RawPartner RawKind = "partner"
	RawWidget  RawKind = "widget"
)

// RawOffer is an untrusted upstream offer. Exactly one of the payload
// pointers is set, matching Kind.
type RawOffer struct {
	Source  string        `json:"source"`
	Kind    RawKind       `json:"kind"`
	Pricing *PricingOffer `json:"pricing,omitempty"`
	Partner *PartnerOffer `json:"partner,omitempty"`
	Widget  *WidgetOffer  `json:"widget,omitempty"`
}

// Structured pricing endpoint (GET). Timestamps are UTC epoch seconds,
// durations are seconds.

type PricingResponse struct {
	Currency string         `json:"currency"`
	Data     []PricingOffer `json:"data"`
}

type PricingOffer struct {
	ID        string          `json:"id"`
	FlyFrom   string          `json:"flyFrom"`
	FlyTo     string          `json:"flyTo"`
	CityFrom  string          `json:"cityFrom"`
	CityTo    string          `json:"cityTo"`
	Price     any             `json:"price"`
	Airlines  []string        `json:"airlines"`
	Route     []PricingRoute  `json:"route"`
	Duration  PricingDuration `json:"duration"`
	BagLimit  PricingBagLimit `json:"baglimit"`
	BagsPrice map[string]any  `json:"bags_price"`
	DeepLink  string          `json:"deep_link"`
}

type PricingRoute struct {
	FlyFrom  string `json:"flyFrom"`
	FlyTo    string `json:"flyTo"`
	CityFrom string `json:"cityFrom"`
	CityTo   string `json:"cityTo"`
	DTimeUTC int64  `json:"dTimeUTC"`
	ATimeUTC int64  `json:"aTimeUTC"`
	Airline  string `json:"airline"`
	FlightNo any    `json:"flight_no"`
	Return   int    `json:"return"`
}

type PricingDuration struct {
	Departure int `json:"departure"`
	Return    int `json:"return"`
	Total     int `json:"total"`
}

type PricingBagLimit struct {
	HandWeight any `json:"hand_weight"`
	HoldWeight any `json:"hold_weight"`
}

// Pricing partner API (POST). Timestamps are local ISO strings without offset,
// prices are decimal strings.

type PartnerRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination,omitempty"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	Infants       int    `json:"infants"`
	CabinClass    string `json:"cabin_class"`
	Currency      string `json:"currency"`
	Limit         int    `json:"limit,omitempty"`
}

type PartnerOffer struct {
	OfferID              string             `json:"offer_id"`
	TotalPrice           any                `json:"total_price"`
	Currency             string             `json:"currency"`
	TotalDurationMinutes int                `json:"total_duration_minutes"`
	Itineraries          []PartnerItinerary `json:"itineraries"`
	Baggage              PartnerBaggage     `json:"baggage"`
	BookingURL           string             `json:"booking_url"`
}

type PartnerItinerary struct {
	Direction string           `json:"direction"`
	Segments  []PartnerSegment `json:"segments"`
}

type PartnerSegment struct {
	Departure   PartnerPoint `json:"departure"`
	Arrival     PartnerPoint `json:"arrival"`
	CarrierCode string       `json:"carrier_code"`
	Number      string       `json:"number"`
}

type PartnerPoint struct {
	IATA string `json:"iata"`
	City string `json:"city"`
	At   string `json:"at"`
}

type PartnerBaggage struct {
	CabinKg      any `json:"cabin_kg"`
	CheckedKg    any `json:"checked_kg"`
	FirstBagFee  any `json:"first_bag_fee"`
	SecondBagFee any `json:"second_bag_fee"`
}

// WidgetOffer is whatever could be recovered from the embedded search widget,
// either from structured data the frame exposes or from its rendered text.
// Times are "15:04" on the searched date or full ISO timestamps.
type WidgetOffer struct {
	Price       string `json:"price" mapstructure:"price"`
	Currency    string `json:"currency,omitempty" mapstructure:"currency"`
	Airline     string `json:"airline,omitempty" mapstructure:"airline"`
	Origin      string `json:"origin,omitempty" mapstructure:"origin"`
	Destination string `json:"destination,omitempty" mapstructure:"destination"`
	DepartTime  string `json:"depart_time,omitempty" mapstructure:"depart_time"`
	ArriveTime  string `json:"arrive_time,omitempty" mapstructure:"arrive_time"`
	Duration    string `json:"duration,omitempty" mapstructure:"duration"`
	Stops       int    `json:"stops" mapstructure:"stops"`
	DeepLink    string `json:"deep_link,omitempty" mapstructure:"deep_link"`
}
