package game

import (
	"strings"
	"time"

	"github.com/fortuna/felicitas/internal/extract"
)

// Catalog is the full set of tracked games in run order. The order groups
// games by upstream provider so courtesy delays between requests to the
// same host line up back to back instead of being scattered through a run.
var Catalog = []Spec{
	{
		Key:         "LOTTO",
		Name:        "Finnish Lotto",
		Provider:    "veikkaus",
		OddsJackpot: 18643560,
		BaseRTP:     rtp(0.23),
		Currency:    "€",
		Price:       1.20,
		MinJackpot:  400_000,
		Schedule:    []time.Weekday{time.Saturday},
		Chain:       []Source{veikkausSource("LOTTO")},
	},
	{
		Key:         "VIKING",
		Name:        "Vikinglotto",
		Provider:    "veikkaus",
		OddsJackpot: 61357560,
		BaseRTP:     rtp(0.25),
		Currency:    "€",
		Price:       1.00,
		MinJackpot:  1_000_000,
		Schedule:    []time.Weekday{time.Wednesday},
		Chain:       []Source{veikkausSource("VIKING")},
	},
	{
		Key:         "EJACKPOT",
		Name:        "Eurojackpot",
		Provider:    "veikkaus",
		OddsJackpot: 139838160,
		BaseRTP:     rtp(0.32),
		Currency:    "€",
		Price:       2.00,
		MinJackpot:  5_000_000,
		Schedule:    []time.Weekday{time.Tuesday, time.Friday},
		Chain:       []Source{veikkausSource("EJACKPOT")},
	},
	{
		Key:         "POWERBALL",
		Name:        "US Powerball",
		Provider:    "powerball.com",
		OddsJackpot: 292201338,
		BaseRTP:     rtp(0.15),
		Currency:    "$",
		Price:       2.00,
		MinJackpot:  15_000_000,
		Schedule:    []time.Weekday{time.Monday, time.Wednesday, time.Saturday},
		Chain: []Source{
			{
				ID:       "powerball-api",
				Provider: "powerball.com",
				URL:      "https://www.powerball.com/api/v1/estimates/powerball?_format=json",
				Kind:     PayloadJSON,
				Timeout:  10 * time.Second,
				Structured: &extract.StructuredRules{
					JackpotPaths: append([]string{"field_prize_amount"}, jackpotAliases...),
					DatePaths:    append([]string{"field_next_draw_date"}, dateAliases...),
					EnvelopeKeys: envelopeKeys,
				},
			},
			lotteryUSASource("powerball-lotteryusa", "https://www.lotteryusa.com/powerball/", "powerball"),
		},
	},
	{
		Key:         "MEGAMILLIONS",
		Name:        "Mega Millions",
		Provider:    "megamillions.com",
		OddsJackpot: 302575350,
		BaseRTP:     rtp(0.15),
		Currency:    "$",
		Price:       2.00,
		MinJackpot:  15_000_000,
		Schedule:    []time.Weekday{time.Tuesday, time.Friday},
		Chain: []Source{
			{
				ID:       "megamillions-api",
				Provider: "megamillions.com",
				URL:      "https://www.megamillions.com/cmspages/utilservice.asmx/GetLatestDrawData",
				Kind:     PayloadJSON,
				Timeout:  10 * time.Second,
				Structured: &extract.StructuredRules{
					JackpotPaths:      append([]string{"Jackpot.NextPrizePool"}, jackpotAliases...),
					DatePaths:         append([]string{"Jackpot.NextDrawDate", "Drawing.PlayDate"}, dateAliases...),
					EnvelopeKeys:      envelopeKeys,
					StringEnvelopeKey: "d",
				},
			},
			lotteryUSASource("megamillions-lotteryusa", "https://www.lotteryusa.com/mega-millions/", "mega"),
		},
	},
	{
		Key:         "EUROMILLIONS",
		Name:        "EuroMillions",
		Provider:    "lottery.ie",
		OddsJackpot: 139838160,
		BaseRTP:     rtp(0.20),
		Currency:    "€",
		Price:       2.50,
		MinJackpot:  15_000_000,
		Schedule:    []time.Weekday{time.Tuesday, time.Friday},
		Chain: []Source{
			{
				ID:        "euromillions-lottery-ie",
				Provider:  "lottery.ie",
				URL:       "https://www.lottery.ie/draw-games/euromillions",
				Kind:      PayloadHTML,
				Timeout:   15 * time.Second,
				Heuristic: euromillionsRules(),
			},
			{
				// The Irish site is script-heavy and the plain fetch
				// sometimes comes back as an empty shell.
				ID:        "euromillions-lottery-ie-rendered",
				Provider:  "lottery.ie",
				URL:       "https://www.lottery.ie/draw-games/euromillions",
				Kind:      PayloadHTML,
				Render:    true,
				Timeout:   15 * time.Second,
				Heuristic: euromillionsRules(),
			},
		},
	},
	{
		Key:         "SUPERENALOTTO",
		Name:        "SuperEnalotto",
		Provider:    "superenalotto.net",
		OddsJackpot: 622614630,
		BaseRTP:     rtp(0.60),
		Currency:    "€",
		Price:       1.00,
		MinJackpot:  2_000_000,
		Schedule:    []time.Weekday{time.Tuesday, time.Thursday, time.Friday, time.Saturday},
		Chain: []Source{
			{
				ID:       "superenalotto-net",
				Provider: "superenalotto.net",
				URL:      "https://www.superenalotto.net/en",
				Kind:     PayloadHTML,
				Timeout:  15 * time.Second,
				Heuristic: &extract.HeuristicRules{
					Currency:     "€",
					AmountLabels: []string{"Estimated Jackpot"},
				},
			},
			{
				ID:       "superenalotto-rss",
				Provider: "superenalotto.net",
				URL:      "https://www.superenalotto.net/en/rss",
				Kind:     PayloadXML,
				Timeout:  15 * time.Second,
				Heuristic: &extract.HeuristicRules{
					Currency:     "€",
					AmountLabels: []string{"Estimated Jackpot", "Jackpot"},
				},
			},
		},
	},
}

// Field-name aliases shared across structured sources. Providers rename
// these between API versions, so every spelling seen in the wild is probed.
var (
	jackpotAliases = []string{
		"jackpots.amount", "jackpot", "jackpot_amount",
		"estimated_jackpot", "jackpotAmount",
	}
	priceAliases = []string{
		"gameRuleSet.basePrice", "price", "ticket_price", "basePrice",
	}
	dateAliases = []string{
		"drawTime", "draw_time", "next_draw", "nextDrawDate", "draw_date",
	}
	envelopeKeys = []string{"data", "results", "draws"}
)

func veikkausSource(gameID string) Source {
	return Source{
		ID:       "veikkaus-" + gameID,
		Provider: "veikkaus",
		URL:      "https://www.veikkaus.fi/api/draw-open-games/v1/games/" + gameID + "/draws",
		Kind:     PayloadJSON,
		Timeout:  10 * time.Second,
		Structured: &extract.StructuredRules{
			JackpotPaths: jackpotAliases,
			PricePaths:   priceAliases,
			DatePaths:    dateAliases,
			EnvelopeKeys: envelopeKeys,
			// Veikkaus reports euro cents.
			Divisor:        100,
			DateUnixMillis: true,
		},
	}
}

func lotteryUSASource(id, url, gameToken string) Source {
	return Source{
		ID:       id,
		Provider: "lotteryusa.com",
		URL:      url,
		Kind:     PayloadHTML,
		Timeout:  15 * time.Second,
		Heuristic: &extract.HeuristicRules{
			Currency:          "$",
			TitleSelector:     ".c-state-short-info__title",
			SubtitleSelector:  ".c-state-short-info__subtitle",
			DiscardSelector:   "span",
			AmountTitleTokens: []string{"next", "est", "jackpot"},
			DateTitleTokens:   []string{"next", gameToken, "draw"},
			DateSiblingTag:    "time",
		},
	}
}

func euromillionsRules() *extract.HeuristicRules {
	return &extract.HeuristicRules{
		Currency:         "€",
		HeadlineSelector: "h1",
		HeadlineToken:    "jackpot",
		DateLabels:       []string{"Next Draw"},
		ScanWeekdayTimes: true,
		ScanParagraphs:   true,
	}
}

// ByKey returns the catalog entry for a game key. Lookup is
// case-insensitive so API callers can use lowercase keys.
func ByKey(key string) (*Spec, bool) {
	for i := range Catalog {
		if strings.EqualFold(Catalog[i].Key, key) {
			return &Catalog[i], true
		}
	}
	return nil, false
}

// Keys returns all game keys in catalog order.
func Keys() []string {
	keys := make([]string, 0, len(Catalog))
	for _, spec := range Catalog {
		keys = append(keys, spec.Key)
	}
	return keys
}

func rtp(v float64) *float64 { return &v }
