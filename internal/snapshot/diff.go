package snapshot

import "fmt"

// ChangeKind classifies how a game's jackpot moved between two snapshots.
type ChangeKind string

const (
	// ChangeNew marks a game present now but absent from the previous snapshot.
	ChangeNew ChangeKind = "new"

	// ChangeIncreased marks a jackpot that grew since the previous snapshot.
	ChangeIncreased ChangeKind = "increased"

	// ChangeRollover marks a jackpot that fell, which means the pot was won
	// and reset to its base amount.
	ChangeRollover ChangeKind = "rollover"

	// ChangeUnchanged marks a jackpot that did not move.
	ChangeUnchanged ChangeKind = "unchanged"

	// ChangeDropped marks a game that was in the previous snapshot but
	// resolved nothing this run.
	ChangeDropped ChangeKind = "dropped"
)

// Change records one game's movement between consecutive snapshots.
type Change struct {
	Game     string     `json:"game"`
	Kind     ChangeKind `json:"kind"`
	Previous float64    `json:"previous"`
	Current  float64    `json:"current"`
	Delta    float64    `json:"delta"`
}

// Diff compares two snapshots game by game. Games follow the current
// snapshot's order, with dropped games appended in their previous order.
// A nil previous snapshot classifies every game as new.
func Diff(prev, next *Snapshot) []Change {
	var changes []Change

	seen := make(map[string]bool)
	for _, g := range next.Games {
		seen[g.Name] = true

		if prev == nil {
			changes = append(changes, Change{Game: g.Name, Kind: ChangeNew, Current: g.Jackpot})
			continue
		}
		before, ok := prev.Game(g.Name)
		if !ok {
			changes = append(changes, Change{Game: g.Name, Kind: ChangeNew, Current: g.Jackpot})
			continue
		}

		changes = append(changes, Change{
			Game:     g.Name,
			Kind:     classify(before.Jackpot, g.Jackpot),
			Previous: before.Jackpot,
			Current:  g.Jackpot,
			Delta:    g.Jackpot - before.Jackpot,
		})
	}

	if prev != nil {
		for _, g := range prev.Games {
			if !seen[g.Name] {
				changes = append(changes, Change{
					Game:     g.Name,
					Kind:     ChangeDropped,
					Previous: g.Jackpot,
					Delta:    -g.Jackpot,
				})
			}
		}
	}

	return changes
}

func classify(previous, current float64) ChangeKind {
	switch {
	case current > previous:
		return ChangeIncreased
	case current < previous:
		return ChangeRollover
	default:
		return ChangeUnchanged
	}
}

// Summarize renders a one-line digest of a change set for run logs.
func Summarize(changes []Change) string {
	counts := make(map[ChangeKind]int)
	for _, c := range changes {
		counts[c.Kind]++
	}
	return fmt.Sprintf("%d new, %d increased, %d rollovers, %d unchanged, %d dropped",
		counts[ChangeNew], counts[ChangeIncreased], counts[ChangeRollover],
		counts[ChangeUnchanged], counts[ChangeDropped])
}

// Rollovers filters a change set down to the wins.
func Rollovers(changes []Change) []Change {
	var won []Change
	for _, c := range changes {
		if c.Kind == ChangeRollover {
			won = append(won, c)
		}
	}
	return won
}
