// Package normalizer maps every upstream offer shape into models.FlightOffer.
//
// Each RawKind has its own mapping function that produces a draft: the
// segments it could recover plus offer-level fields. A single build step then
// derives everything the canonical offer promises (ordering, duration,
// layover, stops, display airline, formatted price) the same way for all
// sources.
package normalizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/thoas/go-funk"

	"github.com/dharmasatrya/faresearch/internal/models"
	"github.com/dharmasatrya/faresearch/pkg/currency"
)

var offerNamespace = uuid.MustParse("6f1b3c1e-2f8a-5d7c-9a41-0c5e8d2b7f10")

type draft struct {
	id              string
	source          string
	origin          string
	destination     string
	originCity      string
	destinationCity string
	segments        []models.Segment
	carriers        []string
	price           any
	currency        string
	totalMinutes    int
	baggage         models.Baggage
	deepLink        string
}

// Normalize converts raw offers into canonical offers. A non-empty source
// replaces the tag each raw offer carries. Offers without a usable price or
// without both endpoints are dropped.
func Normalize(raw []models.RawOffer, source string, q models.SearchQuery) []models.FlightOffer {
	offers := make([]models.FlightOffer, 0, len(raw))

	for _, r := range raw {
		d, ok := toDraft(r, q)
		if !ok {
			continue
		}
		if source != "" {
			d.source = source
		}

		offer, ok := build(d, q)
		if !ok {
			log.Debug().Str("source", d.source).Str("offer_id", d.id).Msg("dropping offer without price or route")
			continue
		}
		offers = append(offers, offer)
	}

	return offers
}

func toDraft(r models.RawOffer, q models.SearchQuery) (draft, bool) {
	var d draft
	switch {
	case r.Kind == models.RawPricing && r.Pricing != nil:
		d = fromPricing(r.Pricing)
	case r.Kind == models.RawPartner && r.Partner != nil:
		d = fromPartner(r.Partner)
	case r.Kind == models.RawWidget && r.Widget != nil:
		d = fromWidget(r.Widget, q)
	default:
		log.Debug().Str("source", r.Source).Str("kind", string(r.Kind)).Msg("raw offer without matching payload")
		return draft{}, false
	}
	d.source = r.Source
	return d, true
}

func build(d draft, q models.SearchQuery) (models.FlightOffer, bool) {
	amount, ok := parseAmount(d.price)
	if !ok || amount <= 0 {
		return models.FlightOffer{}, false
	}

	var outbound, inbound []models.Segment
	for _, s := range d.segments {
		switch s.Leg {
		case models.LegOutbound:
			outbound = append(outbound, s)
		case models.LegReturn:
			if q.IsRoundTrip() {
				inbound = append(inbound, s)
			}
		}
	}
	sortLeg(outbound)
	sortLeg(inbound)

	offer := models.FlightOffer{
		Source:          d.source,
		Origin:          d.origin,
		Destination:     d.destination,
		OriginCity:      d.originCity,
		DestinationCity: d.destinationCity,
		Segments:        append(append([]models.Segment{}, outbound...), inbound...),
		Baggage:         d.baggage,
		DeepLink:        d.deepLink,
	}

	if len(outbound) > 0 {
		first, last := outbound[0], outbound[len(outbound)-1]
		offer.Origin = firstNonEmpty(first.Origin, offer.Origin)
		offer.OriginCity = firstNonEmpty(first.OriginCity, offer.OriginCity)
		offer.Destination = firstNonEmpty(last.Destination, offer.Destination)
		offer.DestinationCity = firstNonEmpty(last.DestinationCity, offer.DestinationCity)
	}
	offer.Origin = strings.ToUpper(firstNonEmpty(offer.Origin, q.Origin))
	offer.Destination = strings.ToUpper(firstNonEmpty(offer.Destination, q.Destination))
	if offer.Origin == "" || offer.Destination == "" {
		return models.FlightOffer{}, false
	}

	offer.DurationMinutes = d.totalMinutes
	if offer.DurationMinutes <= 0 {
		offer.DurationMinutes = legSpan(outbound) + legSpan(inbound)
	}
	offer.LayoverMinutes = legLayover(outbound) + legLayover(inbound)
	offer.Stops = max(0, len(outbound)-1)

	offer.Carriers = carriersOf(offer.Segments, d.carriers)
	switch len(offer.Carriers) {
	case 0:
	case 1:
		offer.Airline = offer.Carriers[0]
	default:
		offer.Airline = strings.Join(offer.Carriers, ",")
	}

	code := firstNonEmpty(q.Currency, d.currency)
	if normalized, ok := currency.Normalize(code); ok {
		code = normalized
	}
	offer.Price = models.Price{
		Amount:    amount,
		Currency:  code,
		Formatted: currency.Format(amount, code),
	}

	offer.ID = offerID(d, offer)
	return offer, true
}

// sortLeg orders a leg by departure. Legs with unknown departure times keep
// their upstream order.
func sortLeg(segments []models.Segment) {
	for _, s := range segments {
		if s.DepartureLocal.IsZero() {
			return
		}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].DepartureLocal.Before(segments[j].DepartureLocal)
	})
}

func legSpan(leg []models.Segment) int {
	if len(leg) == 0 {
		return 0
	}
	dep, arr := leg[0].DepartureLocal, leg[len(leg)-1].ArrivalLocal
	if dep.IsZero() || arr.IsZero() {
		return 0
	}
	return max(0, minutesBetween(dep, arr))
}

func legLayover(leg []models.Segment) int {
	total := 0
	for i := 1; i < len(leg); i++ {
		arr, dep := leg[i-1].ArrivalLocal, leg[i].DepartureLocal
		if arr.IsZero() || dep.IsZero() {
			continue
		}
		total += max(0, minutesBetween(arr, dep))
	}
	return total
}

func minutesBetween(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}

func carriersOf(segments []models.Segment, listed []string) []string {
	var codes []string
	for _, s := range segments {
		if c := strings.TrimSpace(s.Carrier); c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		for _, c := range listed {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
		if len(codes) > 0 {
			codes = codes[:1]
		}
	}
	if len(codes) == 0 {
		return nil
	}
	return funk.UniqString(codes)
}

func offerID(d draft, offer models.FlightOffer) string {
	if d.id != "" {
		return d.source + ":" + d.id
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%.2f|%s", offer.Source, offer.Origin, offer.Destination, offer.Price.Amount, offer.Airline)
	for _, s := range offer.Segments {
		fmt.Fprintf(&b, "|%s%s-%s@%d", s.Carrier, s.FlightNumber, s.Origin, s.DepartureLocal.Unix())
	}
	return d.source + ":" + uuid.NewSHA1(offerNamespace, []byte(b.String())).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
