// Package schedule holds the interview calendar rules: a Monday to Friday
// week with a fixed set of daily slots.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"recruitai/internal/storage"
)

const dateLayout = "2006-01-02"

var (
	Days  = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}
	Times = []string{"9:00 AM", "10:00 AM", "11:00 AM", "1:00 PM", "2:00 PM", "3:00 PM"}
)

// Monday returns midnight of the Monday of t's week. Sundays belong to the
// week that ends on them.
func Monday(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseWeek resolves a ?week= value to its Monday. Empty means the current week.
func ParseWeek(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return Monday(now), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("week must be YYYY-MM-DD: %w", err)
	}
	return Monday(t), nil
}

type WeekDay struct {
	Day  string `json:"day"`
	Date string `json:"date"`
}

type Week struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	Label string    `json:"label"`
	Days  []WeekDay `json:"days"`
	Times []string  `json:"times"`
}

// NewWeek lays out the grid starting at monday.
func NewWeek(monday time.Time) Week {
	w := Week{
		Start: monday.Format(dateLayout),
		End:   monday.AddDate(0, 0, len(Days)-1).Format(dateLayout),
		Label: WeekLabel(monday),
		Times: Times,
	}
	for i, day := range Days {
		w.Days = append(w.Days, WeekDay{Day: day, Date: monday.AddDate(0, 0, i).Format(dateLayout)})
	}
	return w
}

func WeekLabel(monday time.Time) string {
	return "Week of " + monday.Format("January 2, 2006")
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// ValidateSlot checks that day and time are on the grid and that date falls
// on day.
func ValidateSlot(date, day, slotTime string) error {
	di := indexOf(Days, day)
	if di < 0 {
		return fmt.Errorf("day must be one of %s", strings.Join(Days, ", "))
	}
	if indexOf(Times, slotTime) < 0 {
		return fmt.Errorf("time must be one of %s", strings.Join(Times, ", "))
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	if int(t.Weekday()) != di+1 {
		return fmt.Errorf("%s is not a %s", date, day)
	}
	return nil
}

// ParseTimeSlot splits a "Mon 9:00 AM" label into day and time.
func ParseTimeSlot(s string) (day, slotTime string, err error) {
	day, slotTime, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return "", "", fmt.Errorf("invalid time slot %q", s)
	}
	slotTime = strings.TrimSpace(slotTime)
	if indexOf(Days, day) < 0 || indexOf(Times, slotTime) < 0 {
		return "", "", fmt.Errorf("invalid time slot %q", s)
	}
	return day, slotTime, nil
}

// SortSlots orders bookings by date, then by position on the daily grid.
func SortSlots(slots []*storage.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return indexOf(Times, slots[i].Time) < indexOf(Times, slots[j].Time)
	})
}

// Invite is the draft invitation email for a booked slot.
type Invite struct {
	Subject string `json:"email_subject"`
	Body    string `json:"email_body"`
}

// InviteFor renders the invitation. Blank recruiter fields fall back to
// placeholders.
func InviteFor(slot *storage.Slot, recruiterName, company string) Invite {
	if recruiterName == "" {
		recruiterName = "Recruiter"
	}
	if company == "" {
		company = "Acme Inc"
	}
	first := slot.CandidateName
	if fields := strings.Fields(first); len(fields) > 0 {
		first = fields[0]
	}
	return Invite{
		Subject: "Interview Invitation for " + slot.CandidateName,
		Body: fmt.Sprintf("Hi %s,\n\nWe were impressed by your application and would like to invite you for an interview.\n\n"+
			"Proposed slot: %s %s (%s)\n\nPlease confirm your availability.\n\nBest regards,\n%s\n%s",
			first, slot.Day, slot.Time, slot.Date, recruiterName, company),
	}
}
