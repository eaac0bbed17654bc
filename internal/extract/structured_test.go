package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/normalize"
)

var testNow = time.Date(2025, time.March, 12, 14, 30, 0, 0, time.UTC)

func jsonPayload(body string) *fetch.Payload {
	return &fetch.Payload{Body: []byte(body), ContentType: "application/json", URL: "http://test"}
}

func TestParseStructuredBareListMinorUnits(t *testing.T) {
	// Draw feed shape: bare list, nested jackpot tiers, euro cents,
	// unix-millisecond draw time.
	body := `[{
		"jackpots": [{"amount": 1042000000}],
		"gameRuleSet": {"basePrice": 120},
		"drawTime": 1741978800000
	}]`
	rules := &StructuredRules{
		JackpotPaths:   []string{"jackpots.amount", "jackpot"},
		PricePaths:     []string{"gameRuleSet.basePrice", "price"},
		DatePaths:      []string{"drawTime"},
		Divisor:        100,
		DateUnixMillis: true,
	}

	cand, err := ParseStructured(jsonPayload(body), rules, testNow)
	require.NoError(t, err)
	require.True(t, cand.HasJackpot())
	assert.Equal(t, 10_420_000.0, *cand.Jackpot)
	require.NotNil(t, cand.Price)
	assert.InDelta(t, 1.20, *cand.Price, 1e-9)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-14", normalize.FormatDate(*cand.NextDraw))
}

func TestParseStructuredEnvelopeKeys(t *testing.T) {
	rules := &StructuredRules{
		JackpotPaths: []string{"jackpot", "jackpot_amount", "estimated_jackpot"},
		EnvelopeKeys: []string{"data", "results", "draws"},
	}

	for _, envelope := range []string{"data", "results", "draws"} {
		body := `{"` + envelope + `": [{"estimated_jackpot": "20 Million"}]}`
		cand, err := ParseStructured(jsonPayload(body), rules, testNow)
		require.NoError(t, err, "envelope %s", envelope)
		assert.Equal(t, 20_000_000.0, *cand.Jackpot)
	}
}

func TestParseStructuredAliasOrder(t *testing.T) {
	// First alias that resolves wins.
	body := `{"jackpot_amount": 5000000, "jackpot": 7000000}`
	rules := &StructuredRules{JackpotPaths: []string{"jackpot", "jackpot_amount"}}

	cand, err := ParseStructured(jsonPayload(body), rules, testNow)
	require.NoError(t, err)
	assert.Equal(t, 7_000_000.0, *cand.Jackpot)
}

func TestParseStructuredStringEnvelope(t *testing.T) {
	// ASP.NET utilservice shape: the real document is a JSON string
	// under "d", with .NET millisecond dates.
	body := `{"d": "{\"Jackpot\": {\"NextPrizePool\": 489000000, \"NextDrawDate\": \"/Date(1742004000000)/\"}}"}`
	rules := &StructuredRules{
		JackpotPaths:      []string{"Jackpot.NextPrizePool"},
		DatePaths:         []string{"Jackpot.NextDrawDate"},
		StringEnvelopeKey: "d",
	}

	cand, err := ParseStructured(jsonPayload(body), rules, testNow)
	require.NoError(t, err)
	assert.Equal(t, 489_000_000.0, *cand.Jackpot)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-15", normalize.FormatDate(*cand.NextDraw))
}

func TestParseStructuredMoneyTextAndISODate(t *testing.T) {
	body := `[{"field_prize_amount": "$416 Million", "field_next_draw_date": "2025-03-15T02:59:00+00:00"}]`
	rules := &StructuredRules{
		JackpotPaths: []string{"field_prize_amount"},
		DatePaths:    []string{"field_next_draw_date"},
	}

	cand, err := ParseStructured(jsonPayload(body), rules, testNow)
	require.NoError(t, err)
	assert.Equal(t, 416_000_000.0, *cand.Jackpot)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-15", normalize.FormatDate(*cand.NextDraw))
}

func TestParseStructuredSlashDate(t *testing.T) {
	body := `{"jackpot": 30000000, "next_draw": "3/14/2025 11:00:00 PM"}`
	rules := &StructuredRules{
		JackpotPaths: []string{"jackpot"},
		DatePaths:    []string{"next_draw"},
	}

	cand, err := ParseStructured(jsonPayload(body), rules, testNow)
	require.NoError(t, err)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-14", normalize.FormatDate(*cand.NextDraw))
}

func TestParseStructuredFailures(t *testing.T) {
	rules := &StructuredRules{JackpotPaths: []string{"jackpot"}}

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{nope`},
		{"empty list", `[]`},
		{"no jackpot field", `{"prize": 1000000}`},
		{"unparseable jackpot text", `{"jackpot": "TBD"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStructured(jsonPayload(tt.body), rules, testNow)
			require.Error(t, err)
			assert.Equal(t, fetch.ErrUnparseable, fetch.KindOf(err))
		})
	}
}

// A date the source cannot express never fails the attempt; the jackpot
// alone is enough and the schedule fallback covers the date later.
func TestParseStructuredMissingDateIsFine(t *testing.T) {
	body := `{"jackpot": 42000000}`
	rules := &StructuredRules{
		JackpotPaths: []string{"jackpot"},
		DatePaths:    []string{"drawTime", "next_draw"},
	}

	cand, err := ParseStructured(jsonPayload(body), rules, testNow)
	require.NoError(t, err)
	assert.Nil(t, cand.NextDraw)
	assert.True(t, cand.HasJackpot())
}
