package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoAmount is returned when text holds nothing recognizable as money.
// A failed parse must never come back as zero: a zero jackpot would be
// recorded as real data instead of rejected.
var ErrNoAmount = errors.New("no numeric amount found")

// amountPattern grabs the first numeric token and an optional scale word
// or suffix. The trailing \b keeps a bare "m" from matching into words
// like "minutes".
var amountPattern = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)*)\s*(million|billion|thousand|[mbk])?\b`)

var digitStrip = regexp.MustCompile(`[^0-9.]`)

// ParseMoney coerces a payload value into base currency units. Numeric
// values pass through unchanged; strings go through ParseMoneyText.
func ParseMoney(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return ParseMoneyText(v)
	default:
		return 0, fmt.Errorf("unsupported amount type %T", value)
	}
}

// ParseMoneyText parses textual money like "$1.5 Million", "€2,000,000",
// or "450m" into base units. Scale words and single-letter suffixes apply
// 1e6 (million/m), 1e9 (billion/b), or 1e3 (thousand/k). Commas are
// treated as thousands separators. When no pattern matches, everything
// but digits and decimal points is stripped and the remainder parsed.
func ParseMoneyText(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrNoAmount
	}

	if m := amountPattern.FindStringSubmatch(s); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		val, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			return val * scaleFor(m[2]), nil
		}
	}

	stripped := digitStrip.ReplaceAllString(s, "")
	if stripped == "" {
		return 0, ErrNoAmount
	}
	val, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", text)
	}
	return val, nil
}

func scaleFor(token string) float64 {
	switch strings.ToLower(token) {
	case "million", "m":
		return 1e6
	case "billion", "b":
		return 1e9
	case "thousand", "k":
		return 1e3
	default:
		return 1
	}
}
