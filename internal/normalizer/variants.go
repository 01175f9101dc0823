package normalizer

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/internal/timezone"
)

func fromPricing(p *models.PricingOffer) draft {
	d := draft{
		id:              p.ID,
		origin:          p.FlyFrom,
		destination:     p.FlyTo,
		originCity:      p.CityFrom,
		destinationCity: p.CityTo,
		carriers:        p.Airlines,
		price:           p.Price,
		deepLink:        p.DeepLink,
	}

	for _, r := range p.Route {
		leg := models.LegOutbound
		if r.Return == 1 {
			leg = models.LegReturn
		}
		d.segments = append(d.segments, models.Segment{
			Origin:          r.FlyFrom,
			Destination:     r.FlyTo,
			OriginCity:      r.CityFrom,
			DestinationCity: r.CityTo,
			DepartureLocal:  timezone.FromEpoch(r.DTimeUTC, r.FlyFrom),
			ArrivalLocal:    timezone.FromEpoch(r.ATimeUTC, r.FlyTo),
			Carrier:         r.Airline,
			FlightNumber:    flightNumber(r.FlightNo),
			Leg:             leg,
		})
	}

	seconds := p.Duration.Total
	if seconds <= 0 {
		seconds = p.Duration.Departure + p.Duration.Return
	}
	d.totalMinutes = seconds / 60

	d.baggage = models.Baggage{
		CabinKg:      parseNumber(p.BagLimit.HandWeight),
		CheckedKg:    parseNumber(p.BagLimit.HoldWeight),
		FirstBagFee:  parseNumber(p.BagsPrice["1"]),
		SecondBagFee: parseNumber(p.BagsPrice["2"]),
	}

	return d
}

func fromPartner(p *models.PartnerOffer) draft {
	d := draft{
		id:           p.OfferID,
		price:        p.TotalPrice,
		currency:     p.Currency,
		totalMinutes: p.TotalDurationMinutes,
		deepLink:     p.BookingURL,
		baggage: models.Baggage{
			CabinKg:      parseNumber(p.Baggage.CabinKg),
			CheckedKg:    parseNumber(p.Baggage.CheckedKg),
			FirstBagFee:  parseNumber(p.Baggage.FirstBagFee),
			SecondBagFee: parseNumber(p.Baggage.SecondBagFee),
		},
	}

	for i, it := range p.Itineraries {
		leg := partnerLeg(it.Direction, i)
		for _, s := range it.Segments {
			d.segments = append(d.segments, models.Segment{
				Origin:          s.Departure.IATA,
				Destination:     s.Arrival.IATA,
				OriginCity:      s.Departure.City,
				DestinationCity: s.Arrival.City,
				DepartureLocal:  localTime(s.Departure.At, s.Departure.IATA),
				ArrivalLocal:    localTime(s.Arrival.At, s.Arrival.IATA),
				Carrier:         s.CarrierCode,
				FlightNumber:    s.Number,
				Leg:             leg,
			})
		}
	}

	return d
}

func partnerLeg(direction string, index int) int {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "outbound", "out", "departure":
		return models.LegOutbound
	case "return", "inbound", "in":
		return models.LegReturn
	}
	if index > 0 {
		return models.LegReturn
	}
	return models.LegOutbound
}

// fromWidget builds placeholder segments from what the widget showed: the
// first departs at DepartTime, the last arrives at ArriveTime, and one
// segment is added per reported stop. Connection airports are unknown.
func fromWidget(w *models.WidgetOffer, q models.SearchQuery) draft {
	origin := strings.ToUpper(firstNonEmpty(w.Origin, q.Origin))
	destination := strings.ToUpper(firstNonEmpty(w.Destination, q.Destination))

	d := draft{
		origin:       origin,
		destination:  destination,
		price:        w.Price,
		currency:     w.Currency,
		totalMinutes: parseMinutes(w.Duration),
		deepLink:     w.DeepLink,
	}
	if w.Airline != "" {
		d.carriers = []string{w.Airline}
	}

	count := max(0, w.Stops) + 1
	segments := make([]models.Segment, count)
	for i := range segments {
		segments[i] = models.Segment{Carrier: w.Airline, Leg: models.LegOutbound}
	}
	segments[0].Origin = origin
	segments[count-1].Destination = destination

	dep := widgetTime(w.DepartTime, q.DepartureDate, origin)
	arr := widgetTime(w.ArriveTime, q.DepartureDate, destination)
	if !dep.IsZero() && !arr.IsZero() && arr.Before(dep) {
		arr = arr.AddDate(0, 0, 1)
	}
	segments[0].DepartureLocal = dep
	segments[count-1].ArrivalLocal = arr

	d.segments = segments
	return d
}

func widgetTime(s string, day time.Time, airport string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := timezone.ParseLocal(s, airport); err == nil {
		return t
	}
	if day.IsZero() {
		return time.Time{}
	}
	t, err := timezone.OnDate(day, s, airport)
	if err != nil {
		return time.Time{}
	}
	return t
}

func localTime(s, airport string) time.Time {
	t, err := timezone.ParseLocal(s, airport)
	if err != nil {
		return time.Time{}
	}
	return t
}

func flightNumber(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
