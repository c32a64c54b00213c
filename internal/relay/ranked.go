package relay

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"recruitai/internal/storage"
)

// rankedList finds the ranked_candidates array at the top level or inside
// the first element of a top-level array.
func rankedList(body []byte) (gjson.Result, bool) {
	for _, path := range []string{"ranked_candidates", "0.ranked_candidates"} {
		if r := gjson.GetBytes(body, path); r.IsArray() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		if s := strings.TrimSpace(r.String()); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstString(entry gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(entry.Get(p).String()); v != "" {
			return v
		}
	}
	return ""
}

// ParseRanked maps the ranked candidates in a scoring response to rows.
// jobID is used for entries that do not carry their own.
func ParseRanked(body []byte, jobID string) []*storage.Candidate {
	list, ok := rankedList(body)
	if !ok {
		return nil
	}

	var out []*storage.Candidate
	for i, entry := range list.Array() {
		if !entry.IsObject() {
			continue
		}
		score := entry.Get("score").Float()
		if math.IsNaN(score) {
			score = 0
		}
		score = math.Max(0, math.Min(100, score))

		c := &storage.Candidate{
			CandidateID:       firstString(entry, "candidate_id"),
			JobID:             firstString(entry, "job_id"),
			Name:              firstString(entry, "candidate_name", "name"),
			Email:             firstString(entry, "candidate_email", "email"),
			Phone:             firstString(entry, "phone"),
			CurrentRole:       firstString(entry, "current_role"),
			CurrentCompany:    firstString(entry, "current_company"),
			YearsOfExperience: firstString(entry, "years_of_experience"),
			Score:             score,
			Summary:           firstString(entry, "summary"),
			Strengths:         stringList(entry.Get("strengths")),
			Gaps:              stringList(entry.Get("gaps")),
			Recommendation:    firstString(entry, "recommendation"),
			EmailSubject:      firstString(entry, "email_subject"),
			EmailBody:         firstString(entry, "email_body"),
		}
		if c.CandidateID == "" {
			c.CandidateID = "cand_" + uuid.NewString()
		}
		if c.JobID == "" {
			c.JobID = jobID
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("Candidate %d", i+1)
		}
		c.Status = storage.DeriveStatus(c.Score)
		out = append(out, c)
	}
	return out
}
