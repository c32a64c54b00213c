package storage

import "time"

// Status is the recruiter-facing state of a candidate.
type Status string

const (
	StatusShortlisted Status = "shortlisted"
	StatusReview      Status = "review"
	StatusRejected    Status = "rejected"
)

// Score thresholds for the derived status. Both are exclusive.
const (
	ShortlistThreshold = 85
	ReviewThreshold    = 70
)

// DeriveStatus maps a 0-100 score onto a status.
func DeriveStatus(score float64) Status {
	switch {
	case score > ShortlistThreshold:
		return StatusShortlisted
	case score > ReviewThreshold:
		return StatusReview
	default:
		return StatusRejected
	}
}

// ParseStatus validates a status string coming from a request.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusShortlisted, StatusReview, StatusRejected:
		return Status(s), true
	}
	return "", false
}

// Candidate is a row of comm_candidate. Rows are written either by the relay
// fan-out or directly by the scoring workflow, so most columns may be empty.
type Candidate struct {
	ID                int64     `json:"id"`
	CandidateID       string    `json:"candidate_id"`
	JobID             string    `json:"job_id,omitempty"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone,omitempty"`
	CurrentRole       string    `json:"current_role"`
	CurrentCompany    string    `json:"current_company,omitempty"`
	YearsOfExperience string    `json:"years_of_experience,omitempty"`
	Score             float64   `json:"score"`
	Summary           string    `json:"summary,omitempty"`
	Strengths         []string  `json:"strengths"`
	Gaps              []string  `json:"gaps"`
	Recommendation    string    `json:"recommendation,omitempty"`
	EmailSubject      string    `json:"email_subject,omitempty"`
	EmailBody         string    `json:"email_body,omitempty"`
	Status            Status    `json:"status"`
	StatusOverride    bool      `json:"status_override"`
	Tags              []string  `json:"tags"`
	ShortlistRank     *int      `json:"shortlist_rank,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// EffectiveStatus is the stored status when a recruiter overrode it, and the
// score-derived status otherwise.
func (c *Candidate) EffectiveStatus() Status {
	if c.StatusOverride && c.Status != "" {
		return c.Status
	}
	return DeriveStatus(c.Score)
}

type RoleStatus string

const (
	RoleActive RoleStatus = "active"
	RoleDraft  RoleStatus = "draft"
)

// Role is a row of comm_roles.
type Role struct {
	ID         int64      `json:"id"`
	JobID      string     `json:"job_id"`
	Title      string     `json:"title"`
	Department string     `json:"department"`
	Location   string     `json:"location"`
	Experience int        `json:"experience"`
	Skills     []string   `json:"skills"`
	Status     RoleStatus `json:"status"`
	Applicants int        `json:"applicants"`
	JDURL      string     `json:"jd_url,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// User is a recruiter account. PasswordHash is never serialised.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Company      string    `json:"company"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type SlotStatus string

const (
	SlotPending   SlotStatus = "pending"
	SlotConfirmed SlotStatus = "confirmed"
)

// Slot is a booked interview. (Date, Day, Time) is unique.
type Slot struct {
	ID             int64      `json:"id"`
	CandidateID    string     `json:"candidate_id"`
	CandidateName  string     `json:"candidate_name"`
	CandidateEmail string     `json:"candidate_email"`
	Date           string     `json:"date"`
	Day            string     `json:"day"`
	Time           string     `json:"time"`
	Status         SlotStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}
