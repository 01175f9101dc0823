package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/faresearch/internal/models"
)

// 2025-10-23T22:30:00Z, 18:30 in New York.
const base int64 = 1761258600

func roundTrip() models.SearchQuery {
	return models.SearchQuery{
		Origin:        "JFK",
		Destination:   "LHR",
		DepartureDate: time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2025, 10, 24, 0, 0, 0, 0, time.UTC),
		Adults:        1,
		Cabin:         models.CabinEconomy,
		Currency:      "USD",
	}
}

func oneWay() models.SearchQuery {
	q := roundTrip()
	q.ReturnDate = time.Time{}
	return q
}

func pricingRaw(p models.PricingOffer) models.RawOffer {
	return models.RawOffer{Source: "pricing", Kind: models.RawPricing, Pricing: &p}
}

func directPricing() models.PricingOffer {
	return models.PricingOffer{
		ID:       "p1",
		FlyFrom:  "JFK",
		FlyTo:    "LHR",
		CityFrom: "New York",
		CityTo:   "London",
		Price:    420.0,
		Airlines: []string{"BA"},
		Route: []models.PricingRoute{
			{FlyFrom: "JFK", FlyTo: "LHR", CityFrom: "New York", CityTo: "London", DTimeUTC: base, ATimeUTC: base + 25200, Airline: "BA", FlightNo: 178.0},
			{FlyFrom: "LHR", FlyTo: "JFK", CityFrom: "London", CityTo: "New York", DTimeUTC: base + 52200, ATimeUTC: base + 81000, Airline: "BA", FlightNo: "179", Return: 1},
		},
		Duration: models.PricingDuration{Departure: 25200, Return: 28800},
		BagLimit: models.PricingBagLimit{HandWeight: 7.0, HoldWeight: "23"},
		BagsPrice: map[string]any{
			"1": 35.0,
			"2": "60",
		},
		DeepLink: "https://pricing.example/book/p1",
	}
}

func TestNormalizePricingRoundTrip(t *testing.T) {
	offers := Normalize([]models.RawOffer{pricingRaw(directPricing())}, "", roundTrip())
	require.Len(t, offers, 1)
	o := offers[0]

	assert.Equal(t, "pricing:p1", o.ID)
	assert.Equal(t, "pricing", o.Source)
	assert.Equal(t, "JFK", o.Origin)
	assert.Equal(t, "LHR", o.Destination)
	assert.Equal(t, "New York", o.OriginCity)
	assert.Equal(t, "London", o.DestinationCity)
	require.Len(t, o.Segments, 2)
	assert.Equal(t, models.LegOutbound, o.Segments[0].Leg)
	assert.Equal(t, models.LegReturn, o.Segments[1].Leg)
	assert.Equal(t, "178", o.Segments[0].FlightNumber)
	assert.Equal(t, 18, o.Segments[0].DepartureLocal.Hour())
	assert.Equal(t, "America/New_York", o.Segments[0].DepartureLocal.Location().String())
	assert.Equal(t, "Europe/London", o.Segments[0].ArrivalLocal.Location().String())

	assert.Equal(t, 900, o.DurationMinutes)
	assert.Equal(t, 0, o.Stops)
	assert.Equal(t, 0, o.LayoverMinutes)
	assert.Equal(t, "BA", o.Airline)
	assert.Equal(t, models.Price{Amount: 420, Currency: "USD", Formatted: "USD 420.00"}, o.Price)
	assert.Equal(t, models.Baggage{CabinKg: 7, CheckedKg: 23, FirstBagFee: 35, SecondBagFee: 60}, o.Baggage)
	assert.Equal(t, "https://pricing.example/book/p1", o.DeepLink)
}

func TestNormalizeDropsReturnLegForOneWay(t *testing.T) {
	offers := Normalize([]models.RawOffer{pricingRaw(directPricing())}, "", oneWay())
	require.Len(t, offers, 1)

	assert.Len(t, offers[0].Segments, 1)
	assert.Empty(t, offers[0].SegmentsForLeg(models.LegReturn))
}

func TestNormalizeConnectionOrderingAndLayover(t *testing.T) {
	p := models.PricingOffer{
		ID:    "c1",
		Price: "612",
		Route: []models.PricingRoute{
			{FlyFrom: "DUB", FlyTo: "LHR", DTimeUTC: base + 27000, ATimeUTC: base + 30600, Airline: "BA"},
			{FlyFrom: "JFK", FlyTo: "DUB", DTimeUTC: base, ATimeUTC: base + 21600, Airline: "EI"},
		},
	}

	offers := Normalize([]models.RawOffer{pricingRaw(p)}, "", oneWay())
	require.Len(t, offers, 1)
	o := offers[0]

	assert.Equal(t, "JFK", o.Segments[0].Origin)
	assert.Equal(t, "DUB", o.Segments[1].Origin)
	assert.Equal(t, "JFK", o.Origin)
	assert.Equal(t, "LHR", o.Destination)
	assert.Equal(t, 1, o.Stops)
	assert.Equal(t, 90, o.LayoverMinutes)
	assert.Equal(t, 510, o.DurationMinutes)
	assert.Equal(t, "EI,BA", o.Airline)
	assert.Equal(t, []string{"EI", "BA"}, o.Carriers)
}

func TestNormalizeClampsNegativeLayover(t *testing.T) {
	p := models.PricingOffer{
		ID:    "n1",
		Price: 300,
		Route: []models.PricingRoute{
			{FlyFrom: "JFK", FlyTo: "BOS", DTimeUTC: base, ATimeUTC: base + 7200, Airline: "B6"},
			{FlyFrom: "BOS", FlyTo: "LHR", DTimeUTC: base + 3600, ATimeUTC: base + 10800, Airline: "B6"},
		},
	}

	offers := Normalize([]models.RawOffer{pricingRaw(p)}, "", oneWay())
	require.Len(t, offers, 1)
	assert.Equal(t, 0, offers[0].LayoverMinutes)
	assert.Equal(t, "B6", offers[0].Airline)
}

func TestNormalizePartner(t *testing.T) {
	raw := models.RawOffer{
		Source: "partner",
		Kind:   models.RawPartner,
		Partner: &models.PartnerOffer{
			OfferID:              "x1",
			TotalPrice:           "512.40",
			Currency:             "usd",
			TotalDurationMinutes: 430,
			Itineraries: []models.PartnerItinerary{
				{Direction: "outbound", Segments: []models.PartnerSegment{{
					Departure:   models.PartnerPoint{IATA: "JFK", City: "New York", At: "2025-10-23T18:30:00"},
					Arrival:     models.PartnerPoint{IATA: "LHR", City: "London", At: "2025-10-24T06:40:00"},
					CarrierCode: "VS",
					Number:      "4",
				}}},
				{Direction: "inbound", Segments: []models.PartnerSegment{{
					Departure:   models.PartnerPoint{IATA: "LHR", At: "2025-10-24T09:00:00"},
					Arrival:     models.PartnerPoint{IATA: "JFK", At: "2025-10-24T11:55:00"},
					CarrierCode: "VS",
					Number:      "3",
				}}},
			},
			Baggage:    models.PartnerBaggage{CabinKg: "10 kg", CheckedKg: 23, FirstBagFee: "0"},
			BookingURL: "https://partner.example/book/x1",
		},
	}

	offers := Normalize([]models.RawOffer{raw}, "", roundTrip())
	require.Len(t, offers, 1)
	o := offers[0]

	assert.Equal(t, "partner:x1", o.ID)
	assert.Equal(t, 430, o.DurationMinutes)
	assert.Equal(t, 512.40, o.Price.Amount)
	assert.Equal(t, "USD 512.40", o.Price.Formatted)
	assert.Equal(t, 18, o.Segments[0].DepartureLocal.Hour())
	assert.Equal(t, time.Date(2025, 10, 23, 22, 30, 0, 0, time.UTC), o.Segments[0].DepartureLocal.UTC())
	assert.Len(t, o.SegmentsForLeg(models.LegReturn), 1)
	assert.Equal(t, 10.0, o.Baggage.CabinKg)
	assert.Equal(t, 23.0, o.Baggage.CheckedKg)
	assert.Equal(t, "VS", o.Airline)
}

func TestNormalizeWidget(t *testing.T) {
	raw := models.RawOffer{
		Source: "widget",
		Kind:   models.RawWidget,
		Widget: &models.WidgetOffer{
			Price:      "1,204",
			Currency:   "USD",
			Airline:    "Lufthansa",
			DepartTime: "07:05",
			ArriveTime: "19:55",
			Duration:   "9h 50m",
			Stops:      1,
		},
	}

	offers := Normalize([]models.RawOffer{raw}, "", oneWay())
	require.Len(t, offers, 1)
	o := offers[0]

	assert.Equal(t, "JFK", o.Origin)
	assert.Equal(t, "LHR", o.Destination)
	assert.Equal(t, 1204.0, o.Price.Amount)
	assert.Equal(t, 590, o.DurationMinutes)
	assert.Equal(t, 1, o.Stops)
	assert.Equal(t, 0, o.LayoverMinutes)
	require.Len(t, o.Segments, 2)
	assert.Equal(t, 7, o.Segments[0].DepartureLocal.Hour())
	assert.Equal(t, 23, o.Segments[0].DepartureLocal.Day())
	assert.Equal(t, "Lufthansa", o.Airline)
	assert.NotEmpty(t, o.ID)
}

func TestNormalizeWidgetOvernightWithoutDuration(t *testing.T) {
	raw := models.RawOffer{
		Source: "widget",
		Kind:   models.RawWidget,
		Widget: &models.WidgetOffer{Price: "499", DepartTime: "22:00", ArriveTime: "06:30"},
	}

	offers := Normalize([]models.RawOffer{raw}, "", oneWay())
	require.Len(t, offers, 1)
	assert.Equal(t, 210, offers[0].DurationMinutes)
	assert.Equal(t, 0, offers[0].Stops)
}

func TestNormalizeWidgetIDsAreStable(t *testing.T) {
	raw := []models.RawOffer{
		{Source: "widget", Kind: models.RawWidget, Widget: &models.WidgetOffer{Price: "499", DepartTime: "22:00"}},
		{Source: "widget", Kind: models.RawWidget, Widget: &models.WidgetOffer{Price: "519", DepartTime: "22:00"}},
	}

	first := Normalize(raw, "", oneWay())
	second := Normalize(raw, "", oneWay())
	require.Len(t, first, 2)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestNormalizeDropsUnusableOffers(t *testing.T) {
	noRoute := oneWay()
	noRoute.Destination = ""

	tests := []struct {
		name string
		raw  models.RawOffer
		q    models.SearchQuery
	}{
		{"unparseable price", pricingRaw(models.PricingOffer{FlyFrom: "JFK", FlyTo: "LHR", Price: "call us"}), oneWay()},
		{"zero price", pricingRaw(models.PricingOffer{FlyFrom: "JFK", FlyTo: "LHR", Price: 0}), oneWay()},
		{"missing price", pricingRaw(models.PricingOffer{FlyFrom: "JFK", FlyTo: "LHR"}), oneWay()},
		{"no destination anywhere", models.RawOffer{Source: "widget", Kind: models.RawWidget, Widget: &models.WidgetOffer{Price: "100"}}, noRoute},
		{"kind without payload", models.RawOffer{Source: "partner", Kind: models.RawPartner}, oneWay()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Normalize([]models.RawOffer{tt.raw}, "", tt.q))
		})
	}
}

func TestNormalizeFallsBackToQueryEndpoints(t *testing.T) {
	offers := Normalize([]models.RawOffer{pricingRaw(models.PricingOffer{ID: "q1", Price: 99})}, "", oneWay())
	require.Len(t, offers, 1)

	assert.Equal(t, "JFK", offers[0].Origin)
	assert.Equal(t, "LHR", offers[0].Destination)
	assert.Empty(t, offers[0].Airline)
	assert.Equal(t, 0, offers[0].Stops)
}

func TestNormalizeSourceOverride(t *testing.T) {
	offers := Normalize([]models.RawOffer{pricingRaw(directPricing())}, "pricing-api", oneWay())
	require.Len(t, offers, 1)

	assert.Equal(t, "pricing-api", offers[0].Source)
	assert.Equal(t, "pricing-api:p1", offers[0].ID)
}

func TestNormalizeInvariants(t *testing.T) {
	raw := []models.RawOffer{
		pricingRaw(directPricing()),
		pricingRaw(models.PricingOffer{
			ID:    "m1",
			Price: "1.234,56",
			Route: []models.PricingRoute{
				{FlyFrom: "JFK", FlyTo: "KEF", DTimeUTC: base, ATimeUTC: base + 18000},
				{FlyFrom: "KEF", FlyTo: "CPH", DTimeUTC: base + 16000, ATimeUTC: base + 26000},
				{FlyFrom: "CPH", FlyTo: "LHR", DTimeUTC: base + 30000, ATimeUTC: base + 36000},
			},
		}),
		{Source: "widget", Kind: models.RawWidget, Widget: &models.WidgetOffer{Price: "$350", Stops: 2}},
	}

	offers := Normalize(raw, "", roundTrip())
	require.Len(t, offers, 3)

	for _, o := range offers {
		assert.Equal(t, max(0, len(o.SegmentsForLeg(models.LegOutbound))-1), o.Stops, o.ID)
		assert.GreaterOrEqual(t, o.LayoverMinutes, 0, o.ID)
		assert.GreaterOrEqual(t, o.DurationMinutes, 0, o.ID)
	}
	assert.Equal(t, 1234.56, offers[1].Price.Amount)
	assert.Equal(t, 2, offers[2].Stops)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{420.0, 420, true},
		{512, 512, true},
		{"512.40", 512.40, true},
		{"1,204", 1204, true},
		{"980,50", 980.50, true},
		{"1.234,56", 1234.56, true},
		{"1,234.56", 1234.56, true},
		{"$ 99", 99, true},
		{"", 0, false},
		{"n/a", 0, false},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 0.0001, "%v", tt.in)
		}
	}
}

func TestParseMinutes(t *testing.T) {
	assert.Equal(t, 435, parseMinutes("7h 15m"))
	assert.Equal(t, 420, parseMinutes("7h"))
	assert.Equal(t, 45, parseMinutes("45m"))
	assert.Equal(t, 95, parseMinutes("95"))
	assert.Equal(t, 130, parseMinutes("Duration: 2h10m"))
	assert.Equal(t, 0, parseMinutes("soon"))
}
