package views

import (
	"math"
	"sort"
	"time"

	"recruitai/internal/storage"
)

type RoleCount struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	Candidates  int    `json:"candidates"`
	Shortlisted int    `json:"shortlisted"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Analytics struct {
	Total               int                    `json:"total"`
	ByStatus            map[storage.Status]int `json:"by_status"`
	AverageScore        float64                `json:"average_score"`
	PerRole             []RoleCount            `json:"per_role"`
	ResumesPerDay       []DayCount             `json:"resumes_per_day"`
	InterviewsPending   int                    `json:"interviews_pending"`
	InterviewsConfirmed int                    `json:"interviews_confirmed"`
}

// TrendDays is the length of the resumes-per-day series.
const TrendDays = 7

// BuildAnalytics aggregates everything in memory. Days are bucketed in now's
// location.
func BuildAnalytics(cands []*storage.Candidate, roles []*storage.Role, slots []*storage.Slot, now time.Time) Analytics {
	a := Analytics{
		Total: len(cands),
		ByStatus: map[storage.Status]int{
			storage.StatusShortlisted: 0,
			storage.StatusReview:      0,
			storage.StatusRejected:    0,
		},
		PerRole:       []RoleCount{},
		ResumesPerDay: make([]DayCount, TrendDays),
	}

	today := startOfDay(now)
	first := today.AddDate(0, 0, -(TrendDays - 1))
	for i := range a.ResumesPerDay {
		a.ResumesPerDay[i].Date = first.AddDate(0, 0, i).Format("2006-01-02")
	}

	perRole := map[string]*RoleCount{}
	var sum float64
	for _, c := range cands {
		status := c.EffectiveStatus()
		a.ByStatus[status]++
		sum += c.Score

		if c.JobID != "" {
			rc, ok := perRole[c.JobID]
			if !ok {
				rc = &RoleCount{JobID: c.JobID}
				perRole[c.JobID] = rc
			}
			rc.Candidates++
			if status == storage.StatusShortlisted {
				rc.Shortlisted++
			}
		}

		day := startOfDay(c.CreatedAt.In(now.Location()))
		if !day.Before(first) && !day.After(today) {
			idx := int(math.Round(day.Sub(first).Hours() / 24))
			if idx >= 0 && idx < TrendDays {
				a.ResumesPerDay[idx].Count++
			}
		}
	}
	if len(cands) > 0 {
		a.AverageScore = math.Round(sum/float64(len(cands))*10) / 10
	}

	for _, r := range roles {
		if rc, ok := perRole[r.JobID]; ok {
			rc.Title = r.Title
		}
	}
	for _, rc := range perRole {
		a.PerRole = append(a.PerRole, *rc)
	}
	sort.Slice(a.PerRole, func(i, j int) bool {
		if a.PerRole[i].Candidates != a.PerRole[j].Candidates {
			return a.PerRole[i].Candidates > a.PerRole[j].Candidates
		}
		return a.PerRole[i].JobID < a.PerRole[j].JobID
	})

	for _, s := range slots {
		switch s.Status {
		case storage.SlotConfirmed:
			a.InterviewsConfirmed++
		default:
			a.InterviewsPending++
		}
	}
	return a
}

type Dashboard struct {
	ActiveRoles         int             `json:"active_roles"`
	ScreenedToday       int             `json:"screened_today"`
	TopMatches          int             `json:"top_matches"`
	ScheduledInterviews int             `json:"scheduled_interviews"`
	TopCandidates       []CandidateView `json:"top_candidates"`
	Roles               []*storage.Role `json:"roles"`
}

// DashboardTopN is how many candidates the dashboard lists.
const DashboardTopN = 5

// BuildDashboard summarises the recruiting activity for the landing page.
func BuildDashboard(cands []*storage.Candidate, roles []*storage.Role, slots []*storage.Slot, now time.Time) Dashboard {
	d := Dashboard{Roles: []*storage.Role{}}
	for _, r := range roles {
		if r.Status == storage.RoleActive {
			d.ActiveRoles++
			d.Roles = append(d.Roles, r)
		}
	}

	today := startOfDay(now)
	for _, c := range cands {
		if !startOfDay(c.CreatedAt.In(now.Location())).Before(today) {
			d.ScreenedToday++
		}
		if c.EffectiveStatus() == storage.StatusShortlisted {
			d.TopMatches++
		}
	}
	d.ScheduledInterviews = len(slots)

	top := Filter{}.Apply(cands)
	if len(top) > DashboardTopN {
		top = top[:DashboardTopN]
	}
	d.TopCandidates = ProjectAll(top)
	return d
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
