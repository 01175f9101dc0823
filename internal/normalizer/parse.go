package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// parseAmount reads a price sent as a number or as display text such as
// "1,204", "$ 980.50" or "1.234,56".
func parseAmount(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	if s, ok := v.(string); ok {
		f, err = cast.ToFloat64E(cleanAmount(s))
	} else {
		f, err = cast.ToFloat64E(v)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func cleanAmount(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return "x"
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-comma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return s
}

// parseNumber is parseAmount for optional fields; anything unusable is zero.
func parseNumber(v any) float64 {
	if v == nil {
		return 0
	}
	if s, ok := v.(string); ok {
		if m := leadingNumber.FindString(s); m != "" {
			v = m
		}
	}
	f, ok := parseAmount(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

var (
	leadingNumber = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	hoursMinutes  = regexp.MustCompile(`(?i)(\d+)\s*h(?:\s*(\d+)\s*m)?|(\d+)\s*m`)
)

// parseMinutes reads "7h 15m", "7h", "45m" or a bare number of minutes.
func parseMinutes(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(0, n)
	}

	matches := hoursMinutes.FindStringSubmatch(s)
	if matches == nil {
		return 0
	}
	hours, _ := strconv.Atoi(matches[1])
	mins, _ := strconv.Atoi(matches[2])
	if matches[3] != "" {
		mins, _ = strconv.Atoi(matches[3])
	}
	return hours*60 + mins
}
