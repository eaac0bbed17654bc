package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/fortuna/felicitas/internal/extract"
	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/normalize"
	"github.com/fortuna/felicitas/internal/pipeline"
)

// Probe utility for a single catalog source: fetch the raw payload, run
// the extractor, print what fell out. Run it when a provider redesigns
// and a chain starts falling back.
func main() {
	var (
		gameKey   = flag.String("game", "", "Game key (e.g. POWERBALL)")
		sourceID  = flag.String("source", "", "Source ID within the chain (default: first)")
		userAgent = flag.String("ua", "", "User agent override")
		render    = flag.Bool("render", false, "Force the headless renderer")
	)
	flag.Parse()

	log.Println("Probing lottery source")
	log.Println("======================")

	spec, ok := game.ByKey(*gameKey)
	if !ok {
		log.Fatalf("Unknown game %q (known: %s)", *gameKey, strings.Join(game.Keys(), ", "))
	}

	source, ok := pickSource(spec, *sourceID)
	if !ok {
		log.Fatalf("Unknown source %q for %s (chain: %s)", *sourceID, spec.Key, strings.Join(chainIDs(spec), ", "))
	}

	log.Printf("Game:   %s (%s)", spec.Name, spec.Key)
	log.Printf("Source: %s (%s, %s)", source.ID, source.Kind, source.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var fetcher pipeline.Fetcher = fetch.NewClient(fetch.Config{
		UserAgent: *userAgent,
		Timeout:   source.Timeout,
	})
	if source.Render || *render {
		rc := fetch.NewRenderedClient(*userAgent)
		defer rc.Close()
		fetcher = rc
		log.Println("Using headless renderer")
	}

	log.Println("\n1. Fetching payload...")
	payload, err := fetcher.Fetch(ctx, fetch.Request{
		URL:      source.URL,
		Provider: source.Provider,
		Timeout:  source.Timeout,
	})
	if err != nil {
		log.Fatalf("Fetch failed (%s): %v", fetch.KindOf(err), err)
	}
	log.Printf("✓ Retrieved %d bytes (content type %q)", len(payload.Body), payload.ContentType)

	log.Println("\n2. Extracting candidate...")
	cand, err := parse(payload, spec, source)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	if cand.Jackpot == nil {
		log.Println("❌ No jackpot found in payload")
	} else {
		log.Printf("✓ Jackpot:   %s%.0f", spec.Currency, *cand.Jackpot)
		if *cand.Jackpot <= spec.MinJackpot {
			log.Printf("⚠️  Below the %s plausibility floor of %s%.0f, the chain would fall back",
				spec.Key, spec.Currency, spec.MinJackpot)
		}
	}
	if cand.Price != nil {
		log.Printf("  Price:     %s%.2f", spec.Currency, *cand.Price)
	}
	switch {
	case cand.NextDraw != nil:
		log.Printf("  Next draw: %s", normalize.FormatDate(*cand.NextDraw))
	case cand.DrawText != "":
		log.Printf("  Next draw: %q (unparsed text)", cand.DrawText)
	default:
		log.Println("  Next draw: not found")
	}

	log.Println("\n======================")
	log.Println("✓ Probe complete")
}

func pickSource(spec *game.Spec, id string) (game.Source, bool) {
	if id == "" {
		return spec.Chain[0], true
	}
	for _, source := range spec.Chain {
		if source.ID == id {
			return source, true
		}
	}
	return game.Source{}, false
}

func chainIDs(spec *game.Spec) []string {
	ids := make([]string, 0, len(spec.Chain))
	for _, source := range spec.Chain {
		ids = append(ids, source.ID)
	}
	return ids
}

func parse(payload *fetch.Payload, spec *game.Spec, source game.Source) (*extract.Candidate, error) {
	switch source.Kind {
	case game.PayloadJSON:
		return extract.ParseStructured(payload, source.Structured, time.Now())
	case game.PayloadXML:
		flat, err := extract.FlattenXMLFeed(payload)
		if err != nil {
			return nil, err
		}
		return extract.ParseHeuristic(flat, source.Heuristic, spec.MinJackpot, time.Now())
	default:
		return extract.ParseHeuristic(payload, source.Heuristic, spec.MinJackpot, time.Now())
	}
}
