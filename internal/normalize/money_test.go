package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoneyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"dollar million", "$1.5 Million", 1_500_000},
		{"euro separators", "€2,000,000", 2_000_000},
		{"suffix m", "450m", 450_000_000},
		{"suffix b", "1.2B", 1_200_000_000},
		{"suffix k", "80k", 80_000},
		{"word billion", "$2.5 Billion", 2_500_000_000},
		{"word thousand", "750 thousand", 750_000},
		{"plain integer", "17000000", 17_000_000},
		{"currency noise", "US$ 12", 12},
		{"powerball api text", "$416 Million", 416_000_000},
		{"scale word not eaten by minutes", "5 minutes", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoneyText(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMoneyTextNoDigits(t *testing.T) {
	for _, text := range []string{"", "   ", "Check Site", "€ Million"} {
		got, err := ParseMoneyText(text)
		require.Error(t, err, "input %q", text)
		assert.Zero(t, got)
	}
}

func TestParseMoneyPassThrough(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
	}{
		{"float64", 1_500_000.0, 1_500_000},
		{"int", 2000000, 2_000_000},
		{"int64", int64(100_000_000), 100_000_000},
		{"string", "€3 Million", 3_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMoney([]string{"nope"})
	assert.Error(t, err)
}

// Re-normalizing a canonical value must not change it.
func TestParseMoneyIdempotent(t *testing.T) {
	first, err := ParseMoneyText("$1.5 Million")
	require.NoError(t, err)

	again, err := ParseMoney(first)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
