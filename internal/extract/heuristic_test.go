package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/normalize"
)

func goqueryDoc(page string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

func htmlPayload(body string) *fetch.Payload {
	return &fetch.Payload{Body: []byte(body), ContentType: "text/html", URL: "http://test"}
}

func shortInfoRules(gameToken string) *HeuristicRules {
	return &HeuristicRules{
		Currency:          "$",
		TitleSelector:     ".c-state-short-info__title",
		SubtitleSelector:  ".c-state-short-info__subtitle",
		DiscardSelector:   "span",
		AmountTitleTokens: []string{"next", "est", "jackpot"},
		DateTitleTokens:   []string{"next", gameToken, "draw"},
		DateSiblingTag:    "time",
	}
}

func TestHeuristicTitleWalkDiscardsCashValue(t *testing.T) {
	page := `<html><body>
		<div class="c-state-short-info">
			<p class="c-state-short-info__title">Next
			Powerball
			draw</p>
			<time datetime="2025-03-12T22:59">Today at 10:59 pm EST</time>
			<p class="c-state-short-info__title">Next est. jackpot</p>
			<p class="c-state-short-info__subtitle">$450 Million <span>$5 Cash Value</span></p>
		</div>
	</body></html>`

	cand, err := ParseHeuristic(htmlPayload(page), shortInfoRules("powerball"), 15_000_000, testNow)
	require.NoError(t, err)
	require.True(t, cand.HasJackpot())
	assert.Equal(t, 450_000_000.0, *cand.Jackpot,
		"the nested cash value figure must not win")
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-12", normalize.FormatDate(*cand.NextDraw))
}

func TestHeuristicSiblingDateMonthName(t *testing.T) {
	page := `<html><body>
		<p class="c-state-short-info__title">Next Mega Millions draw</p>
		<time>Fri, Mar 14, 2025</time>
		<p class="c-state-short-info__title">Next est. jackpot</p>
		<p class="c-state-short-info__subtitle">$1.15 Billion</p>
	</body></html>`

	cand, err := ParseHeuristic(htmlPayload(page), shortInfoRules("mega"), 15_000_000, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1_150_000_000.0, *cand.Jackpot)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-14", normalize.FormatDate(*cand.NextDraw))
}

func TestHeuristicHeadlineWithThreshold(t *testing.T) {
	// The promo headline is under the plausibility floor and must lose
	// to the real hero figure.
	page := `<html><body>
		<h1>Win €5 Million Jackpot promo draw</h1>
		<h1>€130 Million Jackpot</h1>
		<p>Next Draw: Friday, 14th March</p>
	</body></html>`
	rules := &HeuristicRules{
		Currency:         "€",
		HeadlineSelector: "h1",
		HeadlineToken:    "jackpot",
		DateLabels:       []string{"Next Draw"},
	}

	cand, err := ParseHeuristic(htmlPayload(page), rules, 15_000_000, testNow)
	require.NoError(t, err)
	assert.Equal(t, 130_000_000.0, *cand.Jackpot)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-14", normalize.FormatDate(*cand.NextDraw))
}

func TestHeuristicLabelledAmount(t *testing.T) {
	page := `<html><body>
		<div>SuperEnalotto</div>
		<div>Estimated Jackpot € 74.3 Million</div>
	</body></html>`
	rules := &HeuristicRules{Currency: "€", AmountLabels: []string{"Estimated Jackpot"}}

	cand, err := ParseHeuristic(htmlPayload(page), rules, 2_000_000, testNow)
	require.NoError(t, err)
	assert.Equal(t, 74_300_000.0, *cand.Jackpot)
	assert.Nil(t, cand.NextDraw, "nothing on the page says when the draw is")
}

func TestHeuristicMaxScanAboveFloor(t *testing.T) {
	// No label, no headline: the biggest plausible amount on the page
	// is the jackpot; ticket prices and prize tiers fall under the floor.
	page := `<html><body>
		<p>Play for €2.50 per line</p>
		<p>Tonight: €17,000,000</p>
		<p>Match 5 prize €25,000</p>
	</body></html>`
	rules := &HeuristicRules{Currency: "€"}

	cand, err := ParseHeuristic(htmlPayload(page), rules, 15_000_000, testNow)
	require.NoError(t, err)
	assert.Equal(t, 17_000_000.0, *cand.Jackpot)
}

func TestHeuristicNoJackpotAnywhere(t *testing.T) {
	page := `<html><body><p>Results will be published soon.</p></body></html>`
	rules := &HeuristicRules{Currency: "€"}

	_, err := ParseHeuristic(htmlPayload(page), rules, 2_000_000, testNow)
	require.Error(t, err)
	assert.Equal(t, fetch.ErrUnparseable, fetch.KindOf(err))
}

func TestHeuristicRelativeTimeBeatsWeekday(t *testing.T) {
	page := `<html><body>
		<h1>€44 Million Jackpot</h1>
		<p>Draws every Friday, 7:30pm and more</p>
		<p>Next one Tomorrow, 8:00pm</p>
	</body></html>`
	rules := &HeuristicRules{
		Currency:         "€",
		HeadlineSelector: "h1",
		HeadlineToken:    "jackpot",
		ScanWeekdayTimes: true,
	}

	cand, err := ParseHeuristic(htmlPayload(page), rules, 15_000_000, testNow)
	require.NoError(t, err)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-13", normalize.FormatDate(*cand.NextDraw),
		"an explicit Tomorrow must beat a weekday mention elsewhere")
}

func TestHeuristicParagraphRescan(t *testing.T) {
	// The weekday snippet hides inside a paragraph; the flattened-page
	// passes are disabled so only the per-paragraph rescan can find it.
	page := `<html><body>
		<h1>€90 Million Jackpot</h1>
		<p>Tickets on sale now</p>
		<p>Tuesday, 7:30pm</p>
	</body></html>`
	rules := &HeuristicRules{
		Currency:         "€",
		HeadlineSelector: "h1",
		HeadlineToken:    "jackpot",
		ScanParagraphs:   true,
	}

	cand, err := ParseHeuristic(htmlPayload(page), rules, 15_000_000, testNow)
	require.NoError(t, err)
	require.NotNil(t, cand.NextDraw)
	assert.Equal(t, "2025-03-18", normalize.FormatDate(*cand.NextDraw))
}

func TestFlattenTextSeparatesElements(t *testing.T) {
	page := `<html><body><span>Next</span><span>Powerball</span><span>draw</span>
		<script>var x = "$999 Billion";</script></body></html>`
	doc, err := goqueryDoc(page)
	require.NoError(t, err)

	text := flattenText(doc.Selection)
	assert.Equal(t, "Next Powerball draw", text)
}
