package extract

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/normalize"
)

const scaleWords = `(Million|Billion|Thousand)`

// ParseHeuristic scans an HTML or plain-text payload for a jackpot amount
// and a draw date. Amount passes run in order of confidence: labelled
// phrases, headline elements, title/subtitle pairs, then a whole-page
// maximum scan thresholded by the game's minimum plausible jackpot (the
// jackpot is always the largest headline figure on a lottery page).
func ParseHeuristic(payload *fetch.Payload, rules *HeuristicRules, minJackpot float64, now time.Time) (*Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, fetch.NewUnparseable("parsing html: %v", err)
	}

	fullText := flattenText(doc.Selection)
	cand := &Candidate{}

	if amount, ok := amountFromLabels(fullText, rules); ok {
		cand.Jackpot = floatPtr(amount)
	}
	if cand.Jackpot == nil {
		if amount, ok := amountFromHeadlines(doc, rules, minJackpot); ok {
			cand.Jackpot = floatPtr(amount)
		}
	}
	if cand.Jackpot == nil {
		if amount, ok := amountFromTitleWalk(doc, rules); ok {
			cand.Jackpot = floatPtr(amount)
		}
	}
	if cand.Jackpot == nil {
		if amount, ok := maxAmountScan(fullText, rules.Currency, minJackpot); ok {
			cand.Jackpot = floatPtr(amount)
		}
	}
	if cand.Jackpot == nil {
		return nil, fetch.NewUnparseable("no jackpot pattern matched in %s", payload.URL)
	}

	if text, when, ok := dateFromPage(doc, fullText, rules, now); ok {
		cand.DrawText = text
		cand.NextDraw = &when
	}

	return cand, nil
}

// amountFromLabels matches "Estimated Jackpot € 89.4 Million" style phrases.
func amountFromLabels(text string, rules *HeuristicRules) (float64, bool) {
	for _, label := range rules.AmountLabels {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) +
			`:?\s+` + regexp.QuoteMeta(rules.Currency) + `\s?([0-9][0-9,.]*)\s*` + scaleWords + `?\b`)
		if m := re.FindStringSubmatch(text); m != nil {
			if amount, err := normalize.ParseMoneyText(m[1] + " " + m[2]); err == nil {
				return amount, true
			}
		}
	}
	return 0, false
}

// amountFromHeadlines reads hero elements like the lottery.ie h1, which
// carry the jackpot in their own text. The threshold filters out the
// smaller promotional amounts those headlines also like to carry.
func amountFromHeadlines(doc *goquery.Document, rules *HeuristicRules, minJackpot float64) (float64, bool) {
	if rules.HeadlineSelector == "" {
		return 0, false
	}
	re := amountPatternFor(rules.Currency)

	var found float64
	doc.Find(rules.HeadlineSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := flattenText(s)
		if rules.HeadlineToken != "" && !strings.Contains(strings.ToLower(text), rules.HeadlineToken) {
			return true
		}
		if m := re.FindStringSubmatch(text); m != nil {
			if amount, err := normalize.ParseMoneyText(m[1] + " " + m[2]); err == nil && amount > minJackpot {
				found = amount
				return false
			}
		}
		return true
	})
	return found, found > 0
}

// amountFromTitleWalk handles title/subtitle markup: a title element whose
// text carries every expected token, with the amount in the next subtitle
// sibling. Nested discard elements are removed first; they hold the cash
// value, a second smaller figure that must not be mistaken for the jackpot.
func amountFromTitleWalk(doc *goquery.Document, rules *HeuristicRules) (float64, bool) {
	if rules.TitleSelector == "" || rules.SubtitleSelector == "" {
		return 0, false
	}
	re := amountPatternFor(rules.Currency)

	var found float64
	doc.Find(rules.TitleSelector).Each(func(_ int, s *goquery.Selection) {
		if !containsAll(flattenText(s), rules.AmountTitleTokens) {
			return
		}
		subtitle := s.NextAllFiltered(rules.SubtitleSelector).First()
		if subtitle.Length() == 0 {
			return
		}
		if rules.DiscardSelector != "" {
			subtitle.Find(rules.DiscardSelector).Remove()
		}
		if m := re.FindStringSubmatch(flattenText(subtitle)); m != nil {
			if amount, err := normalize.ParseMoneyText(m[1] + " " + m[2]); err == nil {
				found = amount
			}
		}
	})
	return found, found > 0
}

// maxAmountScan collects every currency amount on the page and keeps the
// largest one above the plausibility floor.
func maxAmountScan(text, currency string, minJackpot float64) (float64, bool) {
	re := amountPatternFor(currency)
	var best float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		amount, err := normalize.ParseMoneyText(m[1] + " " + m[2])
		if err != nil {
			continue
		}
		if amount > minJackpot && amount > best {
			best = amount
		}
	}
	return best, best > 0
}

func amountPatternFor(currency string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(currency) +
		`\s?([0-9][0-9,]*(?:\.[0-9]+)?)\s*` + scaleWords + `?\b`)
}

var (
	relativeTimePattern = regexp.MustCompile(`(?i)\b(Today|Tomorrow)\s*,?\s*\d{1,2}:\d{2}\s*(?:am|pm)?`)
	weekdayTimePattern  = regexp.MustCompile(`(?i)\b(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s*,?\s*\d{1,2}:\d{2}\s*(?:am|pm)?`)
	anyDayTimePattern   = regexp.MustCompile(`(?i)\b(Today|Tomorrow|Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s*,?\s*\d{1,2}:\d{2}\s*(?:am|pm)?`)
)

// dateFromPage tries the date passes in order: sibling elements of
// matching titles, labelled "Next Draw" phrases, relative and weekday
// times in the flattened text, then a per-paragraph rescan.
func dateFromPage(doc *goquery.Document, fullText string, rules *HeuristicRules, now time.Time) (string, time.Time, bool) {
	if rules.TitleSelector != "" && rules.DateSiblingTag != "" && len(rules.DateTitleTokens) > 0 {
		var text string
		doc.Find(rules.TitleSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !containsAll(flattenText(s), rules.DateTitleTokens) {
				return true
			}
			sibling := s.NextAllFiltered(rules.DateSiblingTag).First()
			if sibling.Length() == 0 {
				return true
			}
			text = flattenText(sibling)
			return false
		})
		if when, ok := normalize.ParseDateText(text, now); ok {
			return text, when, true
		}
	}

	for _, label := range rules.DateLabels {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) +
			`:?\s+([A-Za-z]+,?\s+\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]+)`)
		if m := re.FindStringSubmatch(fullText); m != nil {
			if when, ok := normalize.ParseDateText(m[1], now); ok {
				return m[1], when, true
			}
		}
	}

	if rules.ScanWeekdayTimes {
		if m := relativeTimePattern.FindStringSubmatch(fullText); m != nil {
			if when, ok := normalize.ParseDateText(m[1], now); ok {
				return m[0], when, true
			}
		}
		if m := weekdayTimePattern.FindStringSubmatch(fullText); m != nil {
			if when, ok := normalize.ParseDateText(m[1], now); ok {
				return m[0], when, true
			}
		}
	}

	if rules.ScanParagraphs {
		var text, token string
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := anyDayTimePattern.FindStringSubmatch(flattenText(s)); m != nil {
				text, token = m[0], m[1]
				return false
			}
			return true
		})
		if token != "" {
			if when, ok := normalize.ParseDateText(token, now); ok {
				return text, when, true
			}
		}
	}

	return "", time.Time{}, false
}

func containsAll(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, token := range tokens {
		if !strings.Contains(lower, strings.ToLower(token)) {
			return false
		}
	}
	return true
}

// flattenText joins the visible text nodes of a selection with single
// spaces, the way a reader sees the page. Element boundaries become
// spaces so "Next</span><span>draw" does not glue into one word.
func flattenText(sel *goquery.Selection) string {
	var b strings.Builder
	appendText(sel, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func appendText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			if t := strings.TrimSpace(s.Text()); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		case "script", "style", "#comment":
			// invisible
		default:
			appendText(s, b)
		}
	})
}
