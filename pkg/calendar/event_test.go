package calendar

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1 hour 30 min", 90},
		{"45 min", 45},
		{"2 hours", 120},
		{"2 hours 15 min", 135},
		{"15", 15},
		{"All day", 30},
		{"", 30},
	}
	for _, tt := range tests {
		if got := DurationMinutes(tt.in); got != tt.want {
			t.Errorf("DurationMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Minute, "45 min"},
		{time.Hour, "1 hour"},
		{90 * time.Minute, "1 hour 30 min"},
		{135 * time.Minute, "2 hours 15 min"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortEvents(t *testing.T) {
	events := []Event{
		{Date: "2025-02-18", Time: "9:00 AM", Title: "tue"},
		{Date: "2025-02-17", Time: "2:00 PM", Title: "afternoon"},
		{Date: "2025-02-17", Time: "sometime", Title: "unknown"},
		{Date: "2025-02-17", Time: AllDay, Title: "holiday", IsAllDay: true},
		{Date: "2025-02-17", Time: "10:30 AM", Title: "morning"},
	}
	SortEvents(events)

	var got []string
	for _, e := range events {
		got = append(got, e.Title)
	}
	want := []string{"holiday", "morning", "afternoon", "unknown", "tue"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectConflicts(t *testing.T) {
	events := []Event{
		{Day: "Monday", Date: "2025-02-17", Time: "9:00 AM", Title: "Standup", Duration: "1 hour", CalendarSource: "You"},
		{Day: "Tuesday", Date: "2025-02-18", Time: "9:00 AM", Title: "Gym", Duration: "1 hour", CalendarSource: "You"},
		{Day: "Monday", Date: "2025-02-17", Time: "9:30 AM", Title: "Review", Duration: "30 min", CalendarSource: "You"},
		{Day: "Monday", Date: "2025-02-17", Time: "9:00 AM", Title: "Dentist", Duration: "1 hour", CalendarSource: "Partner"},
		{Day: "Monday", Date: "2025-02-17", Time: AllDay, Title: "Holiday", Duration: AllDay, IsAllDay: true, CalendarSource: "You"},
	}

	got := DetectConflicts(events)
	want := []Conflict{{
		Time:           "Monday 9:00 AM",
		Date:           "2025-02-17",
		Events:         []string{"Standup", "Review"},
		CalendarSource: "You",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectConflictsBackToBack(t *testing.T) {
	events := []Event{
		{Date: "2025-02-17", Time: "9:00 AM", Title: "A", Duration: "1 hour", CalendarSource: "You"},
		{Date: "2025-02-17", Time: "10:00 AM", Title: "B", Duration: "1 hour", CalendarSource: "You"},
	}
	if got := DetectConflicts(events); len(got) != 0 {
		t.Errorf("conflicts = %v, want none", got)
	}
}

func TestDetectConflictsEmpty(t *testing.T) {
	got := DetectConflicts(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("DetectConflicts(nil) = %#v, want empty slice", got)
	}
}

func TestBusiestDay(t *testing.T) {
	events := []Event{
		{Day: "Monday"}, {Day: "Tuesday"}, {Day: "Tuesday"}, {Day: "Monday"}, {Day: "Friday"},
	}
	if got := BusiestDay(events); got != "Monday" {
		t.Errorf("BusiestDay = %q, want %q", got, "Monday")
	}
	if got := BusiestDay(nil); got != "" {
		t.Errorf("BusiestDay(nil) = %q, want empty", got)
	}
}

func TestSummarize(t *testing.T) {
	week := Summarize([]Event{
		{Day: "Tuesday", Date: "2025-02-18", Time: "9:00 AM", Title: "B"},
		{Day: "Monday", Date: "2025-02-17", Time: "9:00 AM", Title: "A"},
	})
	if week.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d, want 2", week.TotalEvents)
	}
	if week.Events[0].Title != "A" {
		t.Errorf("first event = %q, want %q", week.Events[0].Title, "A")
	}
	if week.BusiestDay != "Monday" {
		t.Errorf("BusiestDay = %q, want %q", week.BusiestDay, "Monday")
	}

	empty := Summarize(nil)
	if empty.Events == nil || empty.Conflicts == nil {
		t.Error("empty week should carry empty slices, not nil")
	}
}
