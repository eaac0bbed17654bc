package game

import (
	"time"

	"github.com/fortuna/felicitas/internal/extract"
)

// PayloadKind tells the retrieval layer what a source is expected to return
type PayloadKind string

const (
	PayloadJSON PayloadKind = "json"
	PayloadHTML PayloadKind = "html"
	PayloadXML  PayloadKind = "xml"
)

// Source is one retrievable endpoint in a game's fallback chain, together
// with the extraction rules that interpret its payload. Exactly one of
// Structured or Heuristic is set; XML payloads are flattened and handed to
// the heuristic scanner.
type Source struct {
	ID       string
	Provider string
	URL      string
	Kind     PayloadKind

	// Render fetches through a headless browser instead of a plain GET,
	// for pages that are empty shells without script execution.
	Render bool

	// Timeout overrides the client default for this endpoint.
	Timeout time.Duration

	Structured *extract.StructuredRules
	Heuristic  *extract.HeuristicRules
}

// Spec is the static description of one lottery game: its fixed constants
// and the ordered fallback chain used to acquire its current numbers.
// Chain order encodes trust, official API first, mirrors last.
type Spec struct {
	Key      string
	Name     string
	Provider string

	// OddsJackpot is the number of combinations to win the top prize.
	OddsJackpot int64

	// BaseRTP is the return-to-player fraction of the non-jackpot
	// prize tiers. Nil when unknown for a game.
	BaseRTP *float64

	Currency string

	// Price is the default ticket price, used when no source reports one.
	Price float64

	// MinJackpot rejects extracted figures that are too small to be the
	// real jackpot (page clutter like cash-value amounts or prize tiers).
	MinJackpot float64

	// Schedule holds the weekly draw days, used to compute a next-draw
	// date when no source yields one.
	Schedule []time.Weekday

	Chain []Source
}
