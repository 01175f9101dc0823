package timezone

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

var airportZones = map[string]string{
	// North America
	"JFK": "America/New_York",
	"EWR": "America/New_York",
	"LGA": "America/New_York",
	"BOS": "America/New_York",
	"IAD": "America/New_York",
	"MIA": "America/New_York",
	"ATL": "America/New_York",
	"ORD": "America/Chicago",
	"DFW": "America/Chicago",
	"DEN": "America/Denver",
	"LAX": "America/Los_Angeles",
	"SFO": "America/Los_Angeles",
	"SEA": "America/Los_Angeles",
	"YYZ": "America/Toronto",
	"YVR": "America/Vancouver",
	"MEX": "America/Mexico_City",

	// Europe
	"LHR": "Europe/London",
	"LGW": "Europe/London",
	"MAN": "Europe/London",
	"DUB": "Europe/Dublin",
	"CDG": "Europe/Paris",
	"ORY": "Europe/Paris",
	"AMS": "Europe/Amsterdam",
	"FRA": "Europe/Berlin",
	"MUC": "Europe/Berlin",
	"BER": "Europe/Berlin",
	"MAD": "Europe/Madrid",
	"BCN": "Europe/Madrid",
	"FCO": "Europe/Rome",
	"MXP": "Europe/Rome",
	"ZRH": "Europe/Zurich",
	"VIE": "Europe/Vienna",
	"CPH": "Europe/Copenhagen",
	"IST": "Europe/Istanbul",
	"LIS": "Europe/Lisbon",

	// Middle East & Africa
	"DXB": "Asia/Dubai",
	"AUH": "Asia/Dubai",
	"DOH": "Asia/Qatar",
	"CAI": "Africa/Cairo",
	"JNB": "Africa/Johannesburg",
	"NBO": "Africa/Nairobi",

	// South Asia
	"DEL": "Asia/Kolkata",
	"BOM": "Asia/Kolkata",
	"BLR": "Asia/Kolkata",
	"MAA": "Asia/Kolkata",
	"CCU": "Asia/Kolkata",
	"HYD": "Asia/Kolkata",
	"CMB": "Asia/Colombo",
	"KTM": "Asia/Kathmandu",

	// East & Southeast Asia
	"SIN": "Asia/Singapore",
	"KUL": "Asia/Kuala_Lumpur",
	"BKK": "Asia/Bangkok",
	"CGK": "Asia/Jakarta",
	"DPS": "Asia/Makassar",
	"HKG": "Asia/Hong_Kong",
	"PEK": "Asia/Shanghai",
	"PVG": "Asia/Shanghai",
	"NRT": "Asia/Tokyo",
	"HND": "Asia/Tokyo",
	"ICN": "Asia/Seoul",
	"MNL": "Asia/Manila",

	// Oceania
	"SYD": "Australia/Sydney",
	"MEL": "Australia/Melbourne",
	"AKL": "Pacific/Auckland",
}

var (
	locMu    sync.RWMutex
	locCache = map[string]*time.Location{}
)

// ZoneByAirport returns the IANA zone name for an airport, "UTC" when unknown.
func ZoneByAirport(code string) string {
	if zone, ok := airportZones[strings.ToUpper(code)]; ok {
		return zone
	}
	return "UTC"
}

func LocationByAirport(code string) *time.Location {
	zone := ZoneByAirport(code)

	locMu.RLock()
	loc, ok := locCache[zone]
	locMu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}

	locMu.Lock()
	locCache[zone] = loc
	locMu.Unlock()
	return loc
}

// FromEpoch converts UTC epoch seconds into the airport's local time.
func FromEpoch(sec int64, airportCode string) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).In(LocationByAirport(airportCode))
}

var offsetFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-07:00",
}

var localFormats = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseLocal parses an upstream timestamp. Strings carrying an offset are
// converted into the airport's zone; bare local strings are read as wall
// time at that airport.
func ParseLocal(s, airportCode string) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := LocationByAirport(airportCode)

	for _, format := range offsetFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.In(loc), nil
		}
	}

	for _, format := range localFormats {
		if t, err := time.ParseInLocation(format, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   s,
		Message: "unable to parse time string",
	}
}

// OnDate places a "15:04" wall-clock time on day at the airport.
func OnDate(day time.Time, clock, airportCode string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, LocationByAirport(airportCode)), nil
}
