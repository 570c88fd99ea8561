package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/calendar"
)

var sourceEmojis = []string{"🔵", "🟢", "🟡", "🔴", "🟣", "🟠"}

const fallbackEmoji = "⚪"

// BuildChat renders a compact preview for messaging apps: one emoji per
// calendar source, one line per event, days without events left out.
func BuildChat(events []calendar.Event, conflicts []calendar.Conflict, weekStart time.Time) string {
	end := weekStart.AddDate(0, 0, 6)

	emojis := make(map[string]string)
	for i, src := range sources(events) {
		emojis[src] = sourceEmojis[i%len(sourceEmojis)]
	}
	overlaps := conflictLookup(conflicts)

	var header string
	if weekStart.Month() == end.Month() {
		header = fmt.Sprintf("📅 *Week of %d-%d %s*", weekStart.Day(), end.Day(), weekStart.Format("Jan"))
	} else {
		header = fmt.Sprintf("📅 *Week of %d %s - %d %s*", weekStart.Day(), weekStart.Format("Jan"), end.Day(), end.Format("Jan"))
	}
	lines := []string{header}

	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		date := day.Format(dateLayout)
		dayEvents := eventsOn(events, date)
		if len(dayEvents) == 0 {
			continue
		}

		lines = append(lines, "", "*"+day.Format("Mon 2 Jan")+"*")
		for _, e := range dayEvents {
			src := sourceOf(e)
			emoji, ok := emojis[src]
			if !ok {
				emoji = fallbackEmoji
			}
			title := e.Title
			if title == "" {
				title = "Untitled"
			}

			clock := compactTime(e.Time)
			var when string
			switch {
			case e.IsAllDay || clock == "":
				when = "(all day)"
			case durationMinutes(e.Duration) > 60:
				when = fmt.Sprintf("(%s, %s)", clock, compactDuration(e.Duration))
			default:
				when = "(" + clock + ")"
			}

			line := fmt.Sprintf("%s %s: %s %s", emoji, src, title, when)
			if _, ok := overlaps[conflictKey{date, title}]; ok {
				line += " ⚠️"
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// compactTime turns "9:00 AM" into "9am" and "9:30 PM" into "9:30pm".
// All-day and empty times become "", anything unreadable is kept.
func compactTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, calendar.AllDay) {
		return ""
	}
	t, err := time.Parse("3:04 PM", s)
	if err != nil {
		return s
	}
	if t.Minute() == 0 {
		return t.Format("3pm")
	}
	return t.Format("3:04pm")
}

// durationMinutes sums "N hour(s)" and "N min" tokens. Unlike the calendar
// reading it has no default: all-day and unreadable durations are 0.
func durationMinutes(d string) int {
	lower := strings.ToLower(d)
	if lower == "" || strings.Contains(lower, "all day") {
		return 0
	}
	fields := strings.Fields(strings.ReplaceAll(lower, ",", " "))
	total := 0
	for i := 0; i < len(fields); {
		n, err := strconv.Atoi(fields[i])
		if err != nil || i+1 >= len(fields) {
			i++
			continue
		}
		switch unit := fields[i+1]; {
		case strings.Contains(unit, "hour"):
			total += n * 60
		case strings.Contains(unit, "min"):
			total += n
		}
		i += 2
	}
	return total
}

// compactDuration renders "2 hours" as "2hrs" and "1 hour 30 min" as
// "1.5hrs".
func compactDuration(d string) string {
	minutes := durationMinutes(d)
	if minutes <= 0 {
		return d
	}
	if minutes%60 == 0 {
		return strconv.Itoa(minutes/60) + "hrs"
	}
	s := fmt.Sprintf("%.1fhrs", float64(minutes)/60)
	return strings.Replace(s, ".0hrs", "hrs", 1)
}
