// ABOUTME: Current and goal weight selection over a set of weight entries.
// ABOUTME: Both pick the entry with the greatest date within their goal flag.
package models

// LatestWeight returns the most recent entry whose IsGoal equals goal, or nil.
// Ties on date keep the entry with the higher id.
func LatestWeight(entries []WeightEntry, goal bool) *WeightEntry {
	var best *WeightEntry
	for i := range entries {
		e := &entries[i]
		if e.IsGoal != goal {
			continue
		}
		if best == nil || e.Date > best.Date || (e.Date == best.Date && e.ID > best.ID) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
