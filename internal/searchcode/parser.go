// Package searchcode decodes the compact search codes carried in result-page
// URL fragments, e.g. "JFK2310LHR241011b11".
//
// Layout: origin IATA, optional DDMM departure, destination IATA, optional
// DDMM return, an optional "b" for business cabin, and a trailing one or two
// digit passenger run ([adults] or [adults][children]).
package searchcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dharmasatrya/faresearch/internal/models"
)

const DefaultCurrency = "USD"

var (
	airportRun    = regexp.MustCompile(`[A-Z]{3}`)
	leadingDate   = regexp.MustCompile(`^\d{4}`)
	trailingDigit = regexp.MustCompile(`\d{1,2}$`)
)

// Parser holds the clock and currency a parsed query is anchored to.
type Parser struct {
	Now      func() time.Time
	Currency string
}

var defaultParser = Parser{}

// Parse decodes code using the current year and DefaultCurrency.
// It never fails: unusable input yields an empty query.
func Parse(code string) models.SearchQuery {
	return defaultParser.Parse(code)
}

func (p Parser) Parse(code string) models.SearchQuery {
	code = strings.TrimPrefix(strings.TrimSpace(code), "#")

	airports := airportRun.FindAllStringIndex(code, -1)
	if len(airports) == 0 {
		return models.SearchQuery{}
	}

	year := p.now().Year()
	q := models.SearchQuery{
		Adults:   1,
		Cabin:    models.CabinEconomy,
		Currency: p.currency(),
	}

	q.Origin = code[airports[0][0]:airports[0][1]]
	consumed := airports[0][1]
	if d, ok := dateAfter(code, airports[0][1], year); ok {
		q.DepartureDate = d
		consumed += 4
	}

	if len(airports) > 1 {
		q.Destination = code[airports[1][0]:airports[1][1]]
		consumed = airports[1][1]
		if d, ok := dateAfter(code, airports[1][1], year); ok {
			q.ReturnDate = d
			consumed += 4
		}
	}

	// DDMM carries no year, so a return earlier in the calendar than the
	// departure belongs to the following year.
	if q.HasDepartureDate() && q.IsRoundTrip() && q.ReturnDate.Before(q.DepartureDate) {
		q.ReturnDate = q.ReturnDate.AddDate(1, 0, 0)
	}

	if strings.ContainsAny(airportRun.ReplaceAllString(code, ""), "bB") {
		q.Cabin = models.CabinBusiness
	}

	q.Adults, q.Children = passengers(code[consumed:])
	return q
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Parser) currency() string {
	if p.Currency != "" {
		return strings.ToUpper(p.Currency)
	}
	return DefaultCurrency
}

func dateAfter(code string, at, year int) (time.Time, bool) {
	run := leadingDate.FindString(code[at:])
	if run == "" {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(run[:2])
	month, _ := strconv.Atoi(run[2:])
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func passengers(rest string) (adults, children int) {
	run := trailingDigit.FindString(rest)
	switch len(run) {
	case 1:
		adults = int(run[0] - '0')
	case 2:
		adults = int(run[0] - '0')
		children = int(run[1] - '0')
	}
	if adults < 1 {
		adults = 1
	}
	return adults, children
}

// Format builds the search code for q. Parse(Format(q)) recovers the codes,
// dates, cabin (economy or business) and up to nine adults and children.
func Format(q models.SearchQuery) string {
	if q.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(q.Origin)
	if q.HasDepartureDate() {
		b.WriteString(q.DepartureDate.Format("0201"))
	}
	if q.Destination != "" {
		b.WriteString(q.Destination)
		if q.IsRoundTrip() {
			b.WriteString(q.ReturnDate.Format("0201"))
		}
	}
	if q.Cabin == models.CabinBusiness {
		b.WriteString("b")
	}

	adults := clampDigit(q.Adults)
	if adults < 1 {
		adults = 1
	}
	fmt.Fprintf(&b, "%d%d", adults, clampDigit(q.Children))
	return b.String()
}

func clampDigit(n int) int {
	if n < 0 {
		return 0
	}
	if n > 9 {
		return 9
	}
	return n
}
