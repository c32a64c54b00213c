package views

import (
	"sort"
	"strings"

	"recruitai/internal/storage"
)

// CandidateView is a candidate as the dashboard shows it: status is the
// effective one and the explanation line is filled in.
type CandidateView struct {
	*storage.Candidate
	Explanation string `json:"ai_explanation"`
}

// Project copies c into a view. c itself is not modified.
func Project(c *storage.Candidate) CandidateView {
	cp := *c
	cp.Status = c.EffectiveStatus()
	if cp.Tags == nil {
		cp.Tags = []string{}
	}
	if cp.Strengths == nil {
		cp.Strengths = []string{}
	}
	if cp.Gaps == nil {
		cp.Gaps = []string{}
	}
	return CandidateView{Candidate: &cp, Explanation: Explanation(c)}
}

func ProjectAll(cands []*storage.Candidate) []CandidateView {
	out := make([]CandidateView, len(cands))
	for i, c := range cands {
		out[i] = Project(c)
	}
	return out
}

// Explanation is the one-line reason shown next to a score.
func Explanation(c *storage.Candidate) string {
	if len(c.Gaps) > 0 {
		return "Top gap: " + c.Gaps[0]
	}
	if c.Recommendation != "" {
		return "Recommendation: " + c.Recommendation
	}
	return "AI assessed this candidate based on JD match and resume signals."
}

const (
	SortScore = "score"
	SortName  = "name"

	DirAsc  = "asc"
	DirDesc = "desc"
)

// Filter selects and orders candidates for the list view. Zero values mean
// all statuses, no search, score descending.
type Filter struct {
	Status storage.Status
	Query  string
	Sort   string
	Dir    string
}

// Apply returns the candidates matching f in the requested order. The input
// slice is left untouched.
func (f Filter) Apply(cands []*storage.Candidate) []*storage.Candidate {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]*storage.Candidate, 0, len(cands))
	for _, c := range cands {
		if f.Status != "" && c.EffectiveStatus() != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) {
			continue
		}
		out = append(out, c)
	}

	desc := f.Dir != DirAsc
	if f.Sort == SortName {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
			if desc {
				return a > b
			}
			return a < b
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].Score > out[j].Score
			}
			return out[i].Score < out[j].Score
		})
	}
	return out
}

// AddTag appends tag, moving it to the end if it is already present.
// Blank tags are ignored.
func AddTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return tags
	}
	out := RemoveTag(tags, tag)
	return append(out, tag)
}

func RemoveTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}
