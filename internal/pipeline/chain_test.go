package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/felicitas/internal/extract"
	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/game"
)

// testNow is a Wednesday.
var testNow = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type stubResponse struct {
	body string
	err  error
}

type stubFetcher struct {
	responses map[string]stubResponse
	calls     []string
}

func (s *stubFetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Payload, error) {
	s.calls = append(s.calls, req.URL)
	resp, ok := s.responses[req.URL]
	if !ok {
		return nil, fetch.NewTransport(errors.New("no stub for " + req.URL))
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return &fetch.Payload{Body: []byte(resp.body), ContentType: "application/json", URL: req.URL}, nil
}

type noWait struct{}

func (noWait) Wait(ctx context.Context, provider string) error { return nil }

func newTestRunner(plain Fetcher) *Runner {
	r := NewRunner(plain, nil, noWait{})
	r.now = func() time.Time { return testNow }
	r.logger = log.New(io.Discard, "", 0)
	return r
}

func jackpotRules() *extract.StructuredRules {
	return &extract.StructuredRules{
		JackpotPaths: []string{"jackpot"},
		PricePaths:   []string{"price"},
		DatePaths:    []string{"next_draw"},
	}
}

func testSpec() game.Spec {
	return game.Spec{
		Key:         "eurojackpot",
		Name:        "Eurojackpot",
		Provider:    "veikkaus",
		OddsJackpot: 139_838_160,
		Currency:    "€",
		Price:       2.00,
		MinJackpot:  5_000_000,
		Schedule:    []time.Weekday{time.Tuesday, time.Friday},
		Chain: []game.Source{
			{
				ID: "primary", Provider: "veikkaus", URL: "https://a.test/api",
				Kind: game.PayloadJSON, Structured: jackpotRules(),
			},
			{
				ID: "mirror", Provider: "mirror.test", URL: "https://b.test/api",
				Kind: game.PayloadJSON, Structured: jackpotRules(),
			},
		},
	}
}

func TestResolvePrimarySuccess(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {body: `{"jackpot": 53000000, "next_draw": "2025-03-14"}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), testSpec())

	assert.Equal(t, StateResolved, report.State)
	assert.Equal(t, "primary", report.SourceID)
	require.Len(t, report.Attempts, 1)
	assert.Empty(t, report.Attempts[0].Kind)

	require.NotNil(t, report.Result)
	assert.Equal(t, "Eurojackpot", report.Result.Name)
	assert.Equal(t, 53_000_000.0, report.Result.Jackpot)
	assert.Equal(t, 2.00, report.Result.Price)
	assert.Equal(t, "2025-03-14", report.Result.NextDraw)
	assert.Equal(t, "€", report.Result.Currency)
	assert.Equal(t, int64(139_838_160), report.Result.OddsJackpot)

	// The mirror must not be contacted once the primary resolves.
	assert.Equal(t, []string{"https://a.test/api"}, fetcher.calls)
}

func TestResolveFallsBackOnServerError(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {err: fetch.NewHTTPStatus(500)},
		"https://b.test/api": {body: `{"jackpot": 61000000, "next_draw": "2025-03-14"}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), testSpec())

	assert.Equal(t, StateResolved, report.State)
	assert.Equal(t, "mirror", report.SourceID)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, fetch.ErrHTTPStatus, report.Attempts[0].Kind)
	assert.Empty(t, report.Attempts[1].Kind)
	assert.Equal(t, []string{"https://a.test/api", "https://b.test/api"}, fetcher.calls)
	assert.Equal(t, 61_000_000.0, report.Result.Jackpot)
}

func TestResolveBelowThresholdAdvances(t *testing.T) {
	// A parseable but implausibly small amount must not win the chain.
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {body: `{"jackpot": 1000}`},
		"https://b.test/api": {body: `{"jackpot": 53000000, "next_draw": "2025-03-14"}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), testSpec())

	assert.Equal(t, StateResolved, report.State)
	assert.Equal(t, "mirror", report.SourceID)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, fetch.ErrBelowThreshold, report.Attempts[0].Kind)
}

func TestResolveExhausted(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {err: fetch.NewTransport(errors.New("connection refused"))},
		"https://b.test/api": {body: `{"draws": []}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), testSpec())

	assert.Equal(t, StateExhausted, report.State)
	assert.Nil(t, report.Result)
	assert.Empty(t, report.SourceID)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, fetch.ErrTransport, report.Attempts[0].Kind)
	assert.Equal(t, fetch.ErrUnparseable, report.Attempts[1].Kind)
}

func TestResolveScheduleFallbackWhenSourceHasNoDate(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {body: `{"jackpot": 53000000}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), testSpec())

	require.Equal(t, StateResolved, report.State)
	// Wednesday's next Tue/Fri draw is Friday. The missing date must not
	// push the chain to the mirror.
	assert.Equal(t, "2025-03-14", report.Result.NextDraw)
	assert.Equal(t, []string{"https://a.test/api"}, fetcher.calls)
}

func TestResolveSentinelWhenNoScheduleEither(t *testing.T) {
	spec := testSpec()
	spec.Schedule = nil
	spec.Chain = spec.Chain[:1]

	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {body: `{"jackpot": 53000000}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), spec)

	require.Equal(t, StateResolved, report.State)
	assert.Equal(t, "Check Site", report.Result.NextDraw)
}

func TestResolvePriceFromSourceOverridesDefault(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://a.test/api": {body: `{"jackpot": 53000000, "price": 2.5, "next_draw": "2025-03-14"}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), testSpec())

	require.Equal(t, StateResolved, report.State)
	assert.Equal(t, 2.5, report.Result.Price)
}

func TestResolveRenderedSourceWithoutRenderer(t *testing.T) {
	spec := testSpec()
	spec.Chain[0].Render = true

	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://b.test/api": {body: `{"jackpot": 53000000, "next_draw": "2025-03-14"}`},
	}}

	report := newTestRunner(fetcher).Resolve(context.Background(), spec)

	assert.Equal(t, StateResolved, report.State)
	assert.Equal(t, "mirror", report.SourceID)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, fetch.ErrTransport, report.Attempts[0].Kind)
	// The renderer-less attempt must not hit the network at all.
	assert.Equal(t, []string{"https://b.test/api"}, fetcher.calls)
}
