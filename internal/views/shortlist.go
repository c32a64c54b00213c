package views

import (
	"sort"

	"recruitai/internal/storage"
)

// Shortlist returns the effectively shortlisted candidates. Manually ranked
// ones come first in rank order, the rest follow by score.
func Shortlist(cands []*storage.Candidate) []*storage.Candidate {
	out := make([]*storage.Candidate, 0)
	for _, c := range cands {
		if c.EffectiveStatus() == storage.StatusShortlisted {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].ShortlistRank, out[j].ShortlistRank
		switch {
		case ri != nil && rj != nil:
			return *ri < *rj
		case ri != nil:
			return true
		case rj != nil:
			return false
		}
		return out[i].Score > out[j].Score
	})
	return out
}

// TopPicks returns the names of the first n entries.
func TopPicks(list []*storage.Candidate, n int) []string {
	names := []string{}
	for i := 0; i < len(list) && i < n; i++ {
		names = append(names, list[i].Name)
	}
	return names
}

// IDs returns the candidate ids of list in order.
func IDs(list []*storage.Candidate) []string {
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.CandidateID
	}
	return ids
}

const (
	MoveUp   = "up"
	MoveDown = "down"
)

// Move swaps id with its neighbour in the given direction. It reports false
// and returns order unchanged when id is unknown or already at that edge.
func Move(order []string, id, direction string) ([]string, bool) {
	idx := -1
	for i, v := range order {
		if v == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return order, false
	}

	target := idx - 1
	if direction == MoveDown {
		target = idx + 1
	}
	if target < 0 || target >= len(order) {
		return order, false
	}

	out := append([]string(nil), order...)
	out[idx], out[target] = out[target], out[idx]
	return out, true
}
