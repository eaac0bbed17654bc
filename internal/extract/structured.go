package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/normalize"
)

// ParseStructured pulls a candidate out of a JSON payload by probing the
// rules' alias paths in order. Only the jackpot is mandatory; a payload
// with no recognizable jackpot field is unparseable.
func ParseStructured(payload *fetch.Payload, rules *StructuredRules, now time.Time) (*Candidate, error) {
	record, err := decodeLatest(payload.Body, rules)
	if err != nil {
		return nil, err
	}

	cand := &Candidate{}

	if value, ok := probeAny(record, rules.JackpotPaths); ok {
		if amount, err := normalize.ParseMoney(value); err == nil {
			cand.Jackpot = floatPtr(applyDivisor(amount, rules.Divisor))
		}
	}
	if cand.Jackpot == nil {
		return nil, fetch.NewUnparseable("no jackpot field in payload from %s", payload.URL)
	}

	if value, ok := probeAny(record, rules.PricePaths); ok {
		if price, err := normalize.ParseMoney(value); err == nil {
			cand.Price = floatPtr(applyDivisor(price, rules.Divisor))
		}
	}

	if value, ok := probeAny(record, rules.DatePaths); ok {
		if text, isText := value.(string); isText {
			cand.DrawText = text
		}
		if when, ok := coerceDate(value, rules.DateUnixMillis, now); ok {
			cand.NextDraw = &when
		}
	}

	return cand, nil
}

// decodeLatest unmarshals the body and unwraps whatever envelope the
// provider uses down to the latest-draw object.
func decodeLatest(body []byte, rules *StructuredRules) (map[string]interface{}, error) {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fetch.NewUnparseable("decoding json: %v", err)
	}

	// ASP.NET services wrap the document in {"d": "<json string>"}.
	if rules.StringEnvelopeKey != "" {
		if m, ok := root.(map[string]interface{}); ok {
			if inner, ok := m[rules.StringEnvelopeKey].(string); ok {
				var unwrapped interface{}
				if err := json.Unmarshal([]byte(inner), &unwrapped); err != nil {
					return nil, fetch.NewUnparseable("decoding %q envelope: %v", rules.StringEnvelopeKey, err)
				}
				root = unwrapped
			}
		}
	}

	record := unwrapLatest(root, rules.EnvelopeKeys)
	if record == nil {
		return nil, fetch.NewUnparseable("no draw object in payload")
	}
	return record, nil
}

// unwrapLatest treats the first element of a list envelope as the latest
// draw: either a bare top-level list or a list under one of the envelope
// keys. A plain object is returned as-is.
func unwrapLatest(root interface{}, envelopeKeys []string) map[string]interface{} {
	switch v := root.(type) {
	case []interface{}:
		return firstObject(v)
	case map[string]interface{}:
		for _, key := range envelopeKeys {
			if arr, ok := v[key].([]interface{}); ok {
				return firstObject(arr)
			}
		}
		return v
	default:
		return nil
	}
}

func firstObject(arr []interface{}) map[string]interface{} {
	if len(arr) == 0 {
		return nil
	}
	if m, ok := arr[0].(map[string]interface{}); ok {
		return m
	}
	return nil
}

// probeAny tries each alias path in order and returns the first hit.
func probeAny(m map[string]interface{}, paths []string) (interface{}, bool) {
	for _, path := range paths {
		if value, ok := probe(m, path); ok {
			return value, true
		}
	}
	return nil, false
}

// probe walks a dot-separated path through nested maps, stepping into the
// first element of any array met along the way ("jackpots.amount" reads
// the amount of the first jackpot tier).
func probe(m map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = m
	for _, segment := range strings.Split(path, ".") {
		current = firstElement(current)
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, ok := node[segment]
		if !ok || value == nil {
			return nil, false
		}
		current = value
	}
	return current, true
}

func firstElement(v interface{}) interface{} {
	for {
		arr, ok := v.([]interface{})
		if !ok || len(arr) == 0 {
			return v
		}
		v = arr[0]
	}
}

func applyDivisor(amount, divisor float64) float64 {
	if divisor > 1 {
		return amount / divisor
	}
	return amount
}

var (
	dotNetDate = regexp.MustCompile(`^/Date\((\d+)`)
	slashDate  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// coerceDate resolves the source-specific draw-date encodings: unix
// milliseconds (when flagged), .NET "/Date(ms)/" strings, US m/d/yyyy
// strings, and anything ParseDateText understands.
func coerceDate(value interface{}, unixMillis bool, now time.Time) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		if unixMillis && v > 0 {
			return time.UnixMilli(int64(v)).In(now.Location()), true
		}
		return time.Time{}, false
	case string:
		if m := dotNetDate.FindStringSubmatch(v); m != nil {
			ms, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil && ms > 0 {
				return time.UnixMilli(ms).In(now.Location()), true
			}
			return time.Time{}, false
		}
		if m := slashDate.FindStringSubmatch(v); m != nil {
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
				return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
			}
			return time.Time{}, false
		}
		return normalize.ParseDateText(v, now)
	default:
		return time.Time{}, false
	}
}
