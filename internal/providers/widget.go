package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/faresearch/internal/models"
)

// WidgetSource reads offers out of the third-party search widget that result
// pages embed in a hidden frame. The vendor owns that markup and never
// versions it, so every step here is a heuristic: structured JSON the page
// ships in script tags first, then a text scrape of result-looking nodes.
// Anything unrecognized is reported as no offers.
//
// The widget fills in results asynchronously, so the page is re-read on a
// schedule of offsets from the first call until offers appear or the
// deadline passes.
//
// FrameURL placeholders: {origin} {destination} {date} {return} {adults}
// {children} {infants} {cabin} {currency}.
type WidgetSource struct {
	frameURL string
	schedule []time.Duration
	deadline time.Duration
	client   *http.Client
}

type WidgetConfig struct {
	FrameURL string
	Schedule []time.Duration
	Deadline time.Duration
	Client   *http.Client
}

func DefaultWidgetSchedule() []time.Duration {
	return []time.Duration{time.Second, 3 * time.Second, 6 * time.Second, 10 * time.Second}
}

func NewWidgetSource(cfg WidgetConfig) *WidgetSource {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	schedule := cfg.Schedule
	if len(schedule) == 0 {
		schedule = DefaultWidgetSchedule()
	}
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = 13 * time.Second
	}
	return &WidgetSource{
		frameURL: cfg.FrameURL,
		schedule: schedule,
		deadline: deadline,
		client:   client,
	}
}

func (s *WidgetSource) Name() string {
	return "widget"
}

// Fetch never returns an error for missing or unreadable widget data; only
// a malformed frame URL is reported.
func (s *WidgetSource) Fetch(ctx context.Context, req Request) ([]models.RawOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	frame, err := url.Parse(s.frameFor(req.Query))
	if err != nil {
		return nil, NewProviderError(s.Name(), errors.Wrap(err, "parse frame url"))
	}

	start := time.Now()
	for attempt, offset := range s.schedule {
		if wait := time.Until(start.Add(offset)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Debug().Str("source", s.Name()).Int("attempts", attempt).Msg("widget deadline reached without offers")
				return nil, nil
			case <-timer.C:
			}
		}

		found, err := s.read(ctx, frame)
		if err != nil {
			log.Debug().Err(err).Str("source", s.Name()).Int("attempt", attempt+1).Msg("widget read failed")
			continue
		}
		if len(found) == 0 {
			continue
		}

		if req.Limit > 0 && len(found) > req.Limit {
			found = found[:req.Limit]
		}
		offers := make([]models.RawOffer, len(found))
		for i := range found {
			offers[i] = models.RawOffer{
				Source: s.Name(),
				Kind:   models.RawWidget,
				Widget: &found[i],
			}
		}
		return offers, nil
	}

	return nil, nil
}

func (s *WidgetSource) frameFor(q models.SearchQuery) string {
	r := strings.NewReplacer(
		"{origin}", url.QueryEscape(q.Origin),
		"{destination}", url.QueryEscape(q.Destination),
		"{date}", q.DepartureDateString(),
		"{return}", q.ReturnDateString(),
		"{adults}", strconv.Itoa(q.Adults),
		"{children}", strconv.Itoa(q.Children),
		"{infants}", strconv.Itoa(q.Infants),
		"{cabin}", string(q.Cabin),
		"{currency}", url.QueryEscape(q.Currency),
	)
	return r.Replace(s.frameURL)
}

func (s *WidgetSource) read(ctx context.Context, frame *url.URL) ([]models.WidgetOffer, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, frame.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(s.Name(), resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "parse widget html")
	}

	if offers := ExtractStructured(doc); len(offers) > 0 {
		return offers, nil
	}
	return ScrapeDOM(doc, frame), nil
}

const structuredSelector = `script[type="application/json"], script[type="application/ld+json"], script#__NEXT_DATA__, script[data-offers]`

var offerListKeys = []string{"offers", "results", "proposals", "flights", "tickets", "items", "data"}

// ExtractStructured looks for a JSON payload in the widget page holding a
// list of objects with a price, and decodes each into a WidgetOffer.
func ExtractStructured(doc *goquery.Document) []models.WidgetOffer {
	var offers []models.WidgetOffer

	doc.Find(structuredSelector).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(script.Text())), &payload); err != nil {
			return true
		}

		for _, item := range findOfferList(payload, 0) {
			var w models.WidgetOffer
			if err := decodeWidgetItem(flattenWidgetItem(item), &w); err != nil {
				continue
			}
			if strings.TrimSpace(w.Price) == "" {
				continue
			}
			offers = append(offers, w)
		}
		return len(offers) == 0
	})

	return offers
}

func findOfferList(v any, depth int) []map[string]any {
	if depth > 6 {
		return nil
	}

	switch node := v.(type) {
	case []any:
		var items []map[string]any
		for _, el := range node {
			if m, ok := el.(map[string]any); ok {
				if _, hasPrice := m["price"]; hasPrice {
					items = append(items, m)
				}
			}
		}
		if len(items) > 0 {
			return items
		}
		for _, el := range node {
			if items := findOfferList(el, depth+1); len(items) > 0 {
				return items
			}
		}

	case map[string]any:
		for _, key := range offerListKeys {
			if child, ok := node[key]; ok {
				if items := findOfferList(child, depth+1); len(items) > 0 {
					return items
				}
			}
		}
		keys := make([]string, 0, len(node))
		for key := range node {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if items := findOfferList(node[key], depth+1); len(items) > 0 {
				return items
			}
		}
	}

	return nil
}

// flattenWidgetItem lifts the nested shapes widgets commonly use
// ({"price": {"amount", "currency"}}, {"airline": {"code", "name"}}) to the
// flat fields WidgetOffer decodes.
func flattenWidgetItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}

	if price, ok := item["price"].(map[string]any); ok {
		out["price"] = firstPresent(price, "amount", "value", "total")
		if cur, ok := price["currency"]; ok {
			if _, set := out["currency"]; !set {
				out["currency"] = cur
			}
		}
	}
	for _, key := range []string{"airline", "carrier"} {
		if nested, ok := item[key].(map[string]any); ok {
			out["airline"] = firstPresent(nested, "code", "iata", "name")
		} else if s, ok := item[key].(string); ok && key == "carrier" {
			if _, set := out["airline"]; !set {
				out["airline"] = s
			}
		}
	}
	if link, ok := item["url"]; ok {
		if _, set := out["deep_link"]; !set {
			out["deep_link"] = link
		}
	}
	return out
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func decodeWidgetItem(item map[string]any, out *models.WidgetOffer) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(item)
}

const (
	candidateSelector = `[class*="result"], [class*="ticket"], [class*="offer"], [class*="proposal"]`
	airlineSelector   = `[class*="airline"], [class*="carrier"]`
)

var (
	priceRe    = regexp.MustCompile(`(?:(USD|EUR|GBP|INR|AED|SGD|[$€£₹])\s?(\d[\d.,]*\d|\d))|(?:(\d[\d.,]*\d|\d)\s?(USD|EUR|GBP|INR|AED|SGD|[€£₹]))`)
	clockRe    = regexp.MustCompile(`\b(?:[01]?\d|2[0-3]):[0-5]\d\b`)
	durationRe = regexp.MustCompile(`\b\d{1,2}\s*h(?:\s*\d{1,2}\s*m(?:in)?)?\b`)
	directRe   = regexp.MustCompile(`(?i)\b(?:direct|non-?stop)\b`)
	stopsRe    = regexp.MustCompile(`(?i)\b(\d)\s*(?:stops?|transfers?|changes?)\b`)
)

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₹": "INR",
}

// ScrapeDOM reads offers from the rendered result cards. A card is the
// outermost result-looking node whose text holds exactly one price.
func ScrapeDOM(doc *goquery.Document, base *url.URL) []models.WidgetOffer {
	var (
		offers []models.WidgetOffer
		taken  = doc.Selection.Slice(0, 0)
	)

	doc.Find(candidateSelector).Each(func(_ int, node *goquery.Selection) {
		if taken.Contains(node.Get(0)) {
			return
		}

		text := strings.Join(strings.Fields(node.Text()), " ")
		w, ok := ParseOfferText(text)
		if !ok {
			return
		}

		if airline := strings.TrimSpace(node.Find(airlineSelector).First().Text()); airline != "" {
			w.Airline = airline
		} else if alt, ok := node.Find("img[alt]").First().Attr("alt"); ok {
			w.Airline = strings.TrimSpace(alt)
		}

		if href, ok := linkOf(node); ok {
			w.DeepLink = resolveLink(base, href)
		}

		offers = append(offers, w)
		taken = taken.AddNodes(node.Nodes...)
	})

	return offers
}

func linkOf(node *goquery.Selection) (string, bool) {
	if node.Is("a[href]") {
		return node.Attr("href")
	}
	return node.Find("a[href]").First().Attr("href")
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// ParseOfferText pulls price, times, duration and stops out of the visible
// text of one result card. ok is false unless exactly one price is present.
func ParseOfferText(text string) (models.WidgetOffer, bool) {
	prices := priceRe.FindAllStringSubmatch(text, -1)
	if len(prices) != 1 {
		return models.WidgetOffer{}, false
	}

	m := prices[0]
	var w models.WidgetOffer
	if m[2] != "" {
		w.Price, w.Currency = m[2], currencyCode(m[1])
	} else {
		w.Price, w.Currency = m[3], currencyCode(m[4])
	}

	if clocks := clockRe.FindAllString(text, 2); len(clocks) > 0 {
		w.DepartTime = clocks[0]
		if len(clocks) > 1 {
			w.ArriveTime = clocks[1]
		}
	}

	w.Duration = durationRe.FindString(text)

	// An explicit direct label wins over counts like "1 change of terminal".
	if !directRe.MatchString(text) {
		if sm := stopsRe.FindStringSubmatch(text); sm != nil {
			w.Stops, _ = strconv.Atoi(sm[1])
		}
	}

	return w, true
}

func currencyCode(symbol string) string {
	if code, ok := currencySymbols[symbol]; ok {
		return code
	}
	return symbol
}
