// Package calendar merges events from several calendars into one week view
// and finds overlapping commitments.
package calendar

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	AllDay    = "All day"
	NoTitle   = "(No title)"
	clockTime = "3:04 PM"

	defaultDurationMinutes = 30
)

// Event is one calendar entry in the shape exchanged between agents.
type Event struct {
	Day            string `json:"day"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Title          string `json:"title"`
	Duration       string `json:"duration"`
	Attendees      int    `json:"attendees"`
	Location       string `json:"location"`
	IsAllDay       bool   `json:"is_all_day"`
	CalendarSource string `json:"calendar_source"`
}

// Conflict records two timed events from the same calendar whose time
// blocks overlap on the same date.
type Conflict struct {
	Time           string   `json:"time"`
	Date           string   `json:"date"`
	Events         []string `json:"events"`
	CalendarSource string   `json:"calendar_source"`
}

type Week struct {
	Events      []Event    `json:"events"`
	Conflicts   []Conflict `json:"conflicts"`
	TotalEvents int        `json:"total_events"`
	BusiestDay  string     `json:"busiest_day"`
}

// Ref names a calendar to read and the label its events are tagged with.
type Ref struct {
	CalendarID string `json:"calendar_id"`
	Label      string `json:"label"`
}

// Summarize sorts events chronologically and derives conflicts and the
// busiest day.
func Summarize(events []Event) *Week {
	if events == nil {
		events = []Event{}
	}
	SortEvents(events)
	return &Week{
		Events:      events,
		Conflicts:   DetectConflicts(events),
		TotalEvents: len(events),
		BusiestDay:  BusiestDay(events),
	}
}

// SortEvents orders events by date, then time of day. All-day events come
// first within a day and events with an unreadable time come last.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(timeKey(a), timeKey(b))
	})
}

func timeKey(e Event) int {
	if e.Time == AllDay {
		return -1
	}
	t, err := time.Parse(clockTime, strings.TrimSpace(e.Time))
	if err != nil {
		return 99*60 + 99
	}
	return t.Hour()*60 + t.Minute()
}

// DetectConflicts compares every pair of timed events. Input order only
// affects the order of the result.
func DetectConflicts(events []Event) []Conflict {
	timed := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.IsAllDay {
			timed = append(timed, e)
		}
	}

	conflicts := []Conflict{}
	for i, a := range timed {
		for _, b := range timed[i+1:] {
			if a.Date != b.Date || a.CalendarSource != b.CalendarSource {
				continue
			}
			if !overlaps(a, b) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Time:           a.Day + " " + a.Time,
				Date:           a.Date,
				Events:         []string{a.Title, b.Title},
				CalendarSource: a.CalendarSource,
			})
		}
	}
	return conflicts
}

func overlaps(a, b Event) bool {
	startA, errA := time.Parse(clockTime, strings.TrimSpace(a.Time))
	startB, errB := time.Parse(clockTime, strings.TrimSpace(b.Time))
	if errA != nil || errB != nil {
		return false
	}
	endA := startA.Add(time.Duration(DurationMinutes(a.Duration)) * time.Minute)
	endB := startB.Add(time.Duration(DurationMinutes(b.Duration)) * time.Minute)
	return startA.Before(endB) && startB.Before(endA)
}

// DurationMinutes reads strings such as "1 hour 30 min" or "45 min". A bare
// trailing number counts as minutes. Anything that yields no minutes is
// treated as 30.
func DurationMinutes(duration string) int {
	minutes := 0
	fields := strings.Fields(strings.ToLower(duration))
	for i := 0; i < len(fields); {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			i++
			continue
		}
		if i+1 >= len(fields) {
			minutes += n
			i++
			continue
		}
		unit := fields[i+1]
		switch {
		case strings.Contains(unit, "hour"):
			minutes += n * 60
		case strings.Contains(unit, "min"):
			minutes += n
		}
		i += 2
	}
	if minutes <= 0 {
		return defaultDurationMinutes
	}
	return minutes
}

// BusiestDay returns the day name with the most events. Ties go to the day
// seen first.
func BusiestDay(events []Event) string {
	var order []string
	counts := make(map[string]int)
	for _, e := range events {
		if _, ok := counts[e.Day]; !ok {
			order = append(order, e.Day)
		}
		counts[e.Day]++
	}

	best, max := "", 0
	for _, day := range order {
		if counts[day] > max {
			best, max = day, counts[day]
		}
	}
	return best
}

// FormatDuration renders a span the way events carry it: "45 min",
// "1 hour", "2 hours 15 min".
func FormatDuration(d time.Duration) string {
	total := int(d.Minutes())
	if total < 60 {
		return strconv.Itoa(total) + " min"
	}
	hours, mins := total/60, total%60
	s := strconv.Itoa(hours) + " hour"
	if hours > 1 {
		s += "s"
	}
	if mins > 0 {
		s += " " + strconv.Itoa(mins) + " min"
	}
	return s
}
