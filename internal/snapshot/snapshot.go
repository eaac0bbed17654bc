package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout is the wall-clock format stamped into last_updated.
const TimestampLayout = "2006-01-02 15:04:05"

// GameResult is one game's row in the published snapshot. Field order
// matches the serialized document consumed downstream.
type GameResult struct {
	Name        string   `json:"name"`
	Jackpot     float64  `json:"jackpot"`
	Price       float64  `json:"price"`
	NextDraw    string   `json:"next_draw"`
	Currency    string   `json:"currency"`
	OddsJackpot int64    `json:"odds_jackpot"`
	BaseRTP     *float64 `json:"base_rtp"`
}

// Snapshot is the canonical output document: a timestamp plus the games
// that resolved this run, in catalog order. Games that exhausted their
// source chains are simply absent.
type Snapshot struct {
	LastUpdated string       `json:"last_updated"`
	Games       []GameResult `json:"games"`
}

// New stamps a snapshot with the given wall-clock time.
func New(games []GameResult, at time.Time) *Snapshot {
	return &Snapshot{
		LastUpdated: at.Format(TimestampLayout),
		Games:       games,
	}
}

// Game looks up a row by display name.
func (s *Snapshot) Game(name string) (GameResult, bool) {
	for _, g := range s.Games {
		if g.Name == name {
			return g, true
		}
	}
	return GameResult{}, false
}

// Encode serializes the snapshot with two-space indentation, the format
// the site build and the history store both expect.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a previously encoded snapshot, e.g. one read back from
// the cache or the history store.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// WriteFile writes the encoded snapshot to path atomically: the document
// lands in a temp file first and is renamed over the target, so a reader
// never observes a half-written file.
func (s *Snapshot) WriteFile(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
