package schedule

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"recruitai/internal/storage"
)

func TestMonday(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-05-06", "2024-05-06"}, // Monday
		{"2024-05-08", "2024-05-06"},
		{"2024-05-11", "2024-05-06"}, // Saturday
		{"2024-05-12", "2024-05-06"}, // Sunday
		{"2024-03-01", "2024-02-26"},
	}
	for _, tt := range tests {
		d, _ := time.Parse(dateLayout, tt.in)
		if got := Monday(d.Add(13 * time.Hour)).Format(dateLayout); got != tt.want {
			t.Errorf("Monday(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseWeek(t *testing.T) {
	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)

	got, err := ParseWeek("", now)
	if err != nil || got.Format(dateLayout) != "2024-05-06" {
		t.Errorf("ParseWeek(\"\") = %v, %v", got, err)
	}
	got, err = ParseWeek("2024-05-15", now)
	if err != nil || got.Format(dateLayout) != "2024-05-13" {
		t.Errorf("ParseWeek(2024-05-15) = %v, %v", got, err)
	}
	if _, err := ParseWeek("15/05/2024", now); err == nil {
		t.Error("expected error for bad week")
	}
}

func TestNewWeek(t *testing.T) {
	w := NewWeek(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))

	if w.Label != "Week of May 6, 2024" {
		t.Errorf("Label = %q", w.Label)
	}
	if w.Start != "2024-05-06" || w.End != "2024-05-10" {
		t.Errorf("range = %s..%s", w.Start, w.End)
	}
	want := []WeekDay{
		{"Mon", "2024-05-06"}, {"Tue", "2024-05-07"}, {"Wed", "2024-05-08"},
		{"Thu", "2024-05-09"}, {"Fri", "2024-05-10"},
	}
	if !reflect.DeepEqual(w.Days, want) {
		t.Errorf("Days = %v", w.Days)
	}
	if len(w.Times) != 6 {
		t.Errorf("Times = %v", w.Times)
	}
}

func TestValidateSlot(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		day     string
		time    string
		wantErr bool
	}{
		{name: "ok", date: "2024-05-06", day: "Mon", time: "9:00 AM"},
		{name: "weekend day", date: "2024-05-11", day: "Sat", time: "9:00 AM", wantErr: true},
		{name: "lunch", date: "2024-05-06", day: "Mon", time: "12:00 PM", wantErr: true},
		{name: "day mismatch", date: "2024-05-07", day: "Mon", time: "9:00 AM", wantErr: true},
		{name: "bad date", date: "May 6", day: "Mon", time: "9:00 AM", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlot(tt.date, tt.day, tt.time)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlot() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTimeSlot(t *testing.T) {
	day, tm, err := ParseTimeSlot("Tue 10:00 AM")
	if err != nil || day != "Tue" || tm != "10:00 AM" {
		t.Errorf("ParseTimeSlot = %q, %q, %v", day, tm, err)
	}
	for _, bad := range []string{"", "Tue", "Sun 10:00 AM", "Tue 10 AM"} {
		if _, _, err := ParseTimeSlot(bad); err == nil {
			t.Errorf("ParseTimeSlot(%q) expected error", bad)
		}
	}
}

func TestSortSlots(t *testing.T) {
	slots := []*storage.Slot{
		{ID: 1, Date: "2024-05-07", Time: "9:00 AM"},
		{ID: 2, Date: "2024-05-06", Time: "1:00 PM"},
		{ID: 3, Date: "2024-05-06", Time: "10:00 AM"},
		{ID: 4, Date: "2024-05-06", Time: "9:00 AM"},
	}
	SortSlots(slots)
	var ids []int64
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []int64{4, 3, 2, 1}) {
		t.Errorf("order = %v", ids)
	}
}

func TestInviteFor(t *testing.T) {
	slot := &storage.Slot{CandidateName: "Sarah Chen", Day: "Mon", Time: "9:00 AM", Date: "2024-05-06"}

	inv := InviteFor(slot, "Alex", "Globex")
	if inv.Subject != "Interview Invitation for Sarah Chen" {
		t.Errorf("Subject = %q", inv.Subject)
	}
	for _, want := range []string{"Hi Sarah,", "Proposed slot: Mon 9:00 AM (2024-05-06)", "Best regards,\nAlex\nGlobex"} {
		if !strings.Contains(inv.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, inv.Body)
		}
	}

	inv = InviteFor(slot, "", "")
	if !strings.HasSuffix(inv.Body, "Recruiter\nAcme Inc") {
		t.Errorf("defaults not applied:\n%s", inv.Body)
	}
}
