package extract

import (
	"encoding/xml"
	"strings"

	"github.com/fortuna/felicitas/internal/fetch"
)

// rssDocument covers the slice of RSS the mirror feeds actually use:
// item titles and descriptions carrying text like
// "SuperEnalotto Results: Estimated Jackpot €74.3 Million".
type rssDocument struct {
	Channel struct {
		Title       string `xml:"title"`
		Description string `xml:"description"`
		Items       []struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

// FlattenXMLFeed decodes an RSS payload and joins every item's text into
// one plain-text payload for the heuristic scanner. The max-scan pass
// wants all amounts in the feed, not just the first item's.
func FlattenXMLFeed(payload *fetch.Payload) (*fetch.Payload, error) {
	var doc rssDocument
	if err := xml.Unmarshal(payload.Body, &doc); err != nil {
		return nil, fetch.NewUnparseable("decoding xml feed: %v", err)
	}

	var parts []string
	add := func(s string) {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	add(doc.Channel.Title)
	add(doc.Channel.Description)
	for _, item := range doc.Channel.Items {
		add(item.Title)
		add(item.Description)
	}
	if len(parts) == 0 {
		return nil, fetch.NewUnparseable("empty xml feed from %s", payload.URL)
	}

	return &fetch.Payload{
		Body:        []byte(strings.Join(parts, " ")),
		ContentType: "text/plain",
		URL:         payload.URL,
	}, nil
}
