package currency

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
)

// Normalize returns the canonical ISO 4217 code for code.
func Normalize(code string) (string, bool) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}
	return unit.String(), true
}

// Decimals is the number of minor-unit digits the currency is quoted with.
func Decimals(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// Format renders amount as "USD 1,234.50", rounded to the currency's
// standard number of decimals.
func Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	decimals := Decimals(code)

	pow := math.Pow10(decimals)
	rounded := math.Round(amount*pow) / pow

	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	str := fmt.Sprintf("%.*f", decimals, rounded)
	intPart, fracPart, _ := strings.Cut(str, ".")

	formatted := addThousandsSeparator(intPart, ",")
	if fracPart != "" {
		formatted += "." + fracPart
	}

	result := formatted
	if code != "" {
		result = code + " " + formatted
	}
	if negative {
		result = "-" + result
	}

	return result
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
