package extract

import (
	"time"
)

// Candidate is the outcome of one extraction attempt against one source.
// Fields stay nil until a value was actually found; the chain controller
// decides whether the candidate is good enough to promote.
type Candidate struct {
	Jackpot  *float64
	Price    *float64
	NextDraw *time.Time
	DrawText string
	Currency string
	SourceID string
}

// HasJackpot reports whether the attempt produced a jackpot figure.
func (c *Candidate) HasJackpot() bool {
	return c != nil && c.Jackpot != nil
}

// StructuredRules parameterize field extraction from JSON payloads.
// Paths are tried in order; each path is a dot-separated key sequence
// descending nested maps, stepping into the first element of any array
// met along the way.
type StructuredRules struct {
	JackpotPaths []string
	PricePaths   []string
	DatePaths    []string

	// EnvelopeKeys are probed for a wrapping list ("data", "results",
	// "draws"); a bare top-level list is always unwrapped. The first
	// element is treated as the latest draw.
	EnvelopeKeys []string

	// StringEnvelopeKey names a field whose value is itself a JSON
	// document encoded as a string (ASP.NET "d" responses).
	StringEnvelopeKey string

	// Divisor rescales jackpot and price for sources reporting minor
	// currency units (100 for euro-cent feeds). Zero means no scaling.
	Divisor float64

	// DateUnixMillis accepts numeric draw dates as unix milliseconds.
	DateUnixMillis bool
}

// HeuristicRules parameterize pattern extraction from HTML or text
// payloads. All selector fields are optional; the scanner falls back to
// a whole-page maximum scan when nothing more precise matches.
type HeuristicRules struct {
	// Currency anchors amount matches ("$", "€").
	Currency string

	// AmountLabels are phrases expected directly before the amount,
	// e.g. "Estimated Jackpot".
	AmountLabels []string

	// HeadlineSelector/HeadlineToken scan headline elements (the
	// lottery.ie hero h1) whose text contains the token for an amount.
	HeadlineSelector string
	HeadlineToken    string

	// Title/subtitle walk: elements matching TitleSelector whose text
	// contains every AmountTitleTokens entry have their amount read
	// from the next SubtitleSelector sibling, after removing
	// DiscardSelector children (nested "cash value" spans).
	TitleSelector     string
	SubtitleSelector  string
	DiscardSelector   string
	AmountTitleTokens []string

	// DateTitleTokens select title elements whose next sibling of
	// DateSiblingTag carries the draw date text.
	DateTitleTokens []string
	DateSiblingTag  string

	// DateLabels are phrases expected before a spelled-out draw date,
	// e.g. "Next Draw".
	DateLabels []string

	// ScanWeekdayTimes scans the flattened page for
	// "Tuesday, 7:30pm" style snippets when labelled lookups miss;
	// ScanParagraphs repeats that scan per <p> block.
	ScanWeekdayTimes bool
	ScanParagraphs   bool
}

func floatPtr(v float64) *float64 { return &v }
