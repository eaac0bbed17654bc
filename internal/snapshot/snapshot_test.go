package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	rtp := 0.15
	return New([]GameResult{
		{
			Name:        "Powerball",
			Jackpot:     150_000_000,
			Price:       2.00,
			NextDraw:    "2025-03-15",
			Currency:    "$",
			OddsJackpot: 292_201_338,
			BaseRTP:     &rtp,
		},
		{
			Name:        "Lotto",
			Jackpot:     2_600_000,
			Price:       1.20,
			NextDraw:    "Check Site",
			Currency:    "€",
			OddsJackpot: 18_643_560,
		},
	}, time.Date(2025, time.March, 12, 10, 30, 0, 0, time.UTC))
}

func TestSnapshotEncodeShape(t *testing.T) {
	data, err := sampleSnapshot().Encode()
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"last_updated": "2025-03-12 10:30:00"`)
	assert.Contains(t, text, `"name": "Powerball"`)
	assert.Contains(t, text, `"jackpot": 150000000`)
	assert.Contains(t, text, `"next_draw": "Check Site"`)
	assert.Contains(t, text, `"base_rtp": 0.15`)
	assert.Contains(t, text, `"base_rtp": null`)

	// Two-space indentation, one game object per block.
	assert.True(t, strings.HasPrefix(text, "{\n  \"last_updated\""))
	assert.Contains(t, text, "\n  \"games\": [\n    {\n")
}

func TestSnapshotWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jackpots.json")

	s := sampleSnapshot()
	require.NoError(t, s.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s.LastUpdated, got.LastUpdated)
	require.Len(t, got.Games, 2)
	assert.Equal(t, s.Games[0], got.Games[0])

	// Overwriting an existing snapshot must succeed and leave no temp files.
	require.NoError(t, s.WriteFile(path))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "jackpots.json", entries[0].Name())
}

func TestSnapshotGameLookup(t *testing.T) {
	s := sampleSnapshot()

	g, ok := s.Game("Lotto")
	require.True(t, ok)
	assert.Equal(t, 1.20, g.Price)

	_, ok = s.Game("Eurojackpot")
	assert.False(t, ok)
}
