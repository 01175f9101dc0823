package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		amount float64
		code   string
		want   string
	}{
		{420, "USD", "USD 420.00"},
		{1234.5, "usd", "USD 1,234.50"},
		{1234567.891, "EUR", "EUR 1,234,567.89"},
		{1250000.4, "JPY", "JPY 1,250,000"},
		{-99.999, "GBP", "-GBP 100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.amount, tt.code))
		})
	}
}

func TestNormalize(t *testing.T) {
	code, ok := Normalize(" eur ")
	assert.True(t, ok)
	assert.Equal(t, "EUR", code)

	_, ok = Normalize("EURO")
	assert.False(t, ok)
}

func TestAddThousandsSeparator(t *testing.T) {
	assert.Equal(t, "999", addThousandsSeparator("999", ","))
	assert.Equal(t, "1,000", addThousandsSeparator("1000", ","))
	assert.Equal(t, "12,345,678", addThousandsSeparator("12345678", ","))
}
