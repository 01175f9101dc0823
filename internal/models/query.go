package models

import (
	"regexp"
	"strings"
	"time"
)

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

func ParseCabinClass(s string) CabinClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "premium_economy", "premium", "premiumeconomy", "w":
		return CabinPremiumEconomy
	case "business", "biz", "c", "j":
		return CabinBusiness
	case "first", "f":
		return CabinFirst
	default:
		return CabinEconomy
	}
}

// Code is the single-letter booking cabin code used by upstream query strings.
func (c CabinClass) Code() string {
	switch c {
	case CabinPremiumEconomy:
		return "W"
	case CabinBusiness:
		return "C"
	case CabinFirst:
		return "F"
	default:
		return "M"
	}
}

const DateLayout = "2006-01-02"

var iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)

func IsIATA(code string) bool {
	return iataPattern.MatchString(code)
}

// SearchQuery is built once per request and never mutated afterwards.
// A zero DepartureDate means the date is unknown; a zero ReturnDate means one-way.
type SearchQuery struct {
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination,omitempty"`
	DepartureDate time.Time  `json:"departure_date"`
	ReturnDate    time.Time  `json:"return_date"`
	Adults        int        `json:"adults"`
	Children      int        `json:"children"`
	Infants       int        `json:"infants"`
	Cabin         CabinClass `json:"cabin"`
	Currency      string     `json:"currency"`
}

func (q SearchQuery) IsEmpty() bool {
	return q.Origin == ""
}

func (q SearchQuery) IsRoundTrip() bool {
	return !q.ReturnDate.IsZero()
}

func (q SearchQuery) HasDepartureDate() bool {
	return !q.DepartureDate.IsZero()
}

func (q SearchQuery) DepartureDateString() string {
	if q.DepartureDate.IsZero() {
		return ""
	}
	return q.DepartureDate.Format(DateLayout)
}

func (q SearchQuery) ReturnDateString() string {
	if q.ReturnDate.IsZero() {
		return ""
	}
	return q.ReturnDate.Format(DateLayout)
}

func (q SearchQuery) Validate() error {
	if q.Origin == "" {
		return ErrMissingOrigin
	}
	if !IsIATA(q.Origin) {
		return ErrInvalidOrigin
	}
	if q.Destination != "" && !IsIATA(q.Destination) {
		return ErrInvalidDestination
	}
	if q.DepartureDate.IsZero() {
		return ErrMissingDepartureDate
	}
	if q.IsRoundTrip() && q.ReturnDate.Before(q.DepartureDate) {
		return ErrReturnBeforeDeparture
	}
	if q.Adults < 1 {
		return ErrNoAdults
	}
	return nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin         ValidationError = "origin is required"
	ErrInvalidOrigin         ValidationError = "origin must be a 3-letter IATA code"
	ErrInvalidDestination    ValidationError = "destination must be a 3-letter IATA code"
	ErrMissingDepartureDate  ValidationError = "departure date is required"
	ErrReturnBeforeDeparture ValidationError = "return date is before departure date"
	ErrNoAdults              ValidationError = "at least one adult is required"
)
