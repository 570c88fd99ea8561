package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/calendar"
)

const dateLayout = "2006-01-02"

// BuildMarkdown renders the full week, every day and every calendar source,
// with "* NA" where a source has nothing scheduled.
func BuildMarkdown(events []calendar.Event, conflicts []calendar.Conflict, weekStart time.Time) string {
	end := weekStart.AddDate(0, 0, 6)
	srcs := sources(events)
	overlaps := conflictLookup(conflicts)

	lines := []string{
		fmt.Sprintf("## Week of %s - %s, %d", weekStart.Format("January 2"), end.Format("January 2"), weekStart.Year()),
		"",
	}

	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		date := day.Format(dateLayout)
		lines = append(lines, "### "+strings.ToUpper(day.Format("Monday, January 2")), "")

		dayEvents := eventsOn(events, date)
		for _, src := range srcs {
			possessive := src + "'s"
			if src == "You" {
				possessive = "Your"
			}
			lines = append(lines, "**"+possessive+" events:**")

			n := 0
			for _, e := range dayEvents {
				if sourceOf(e) != src {
					continue
				}
				n++
				line := fmt.Sprintf("* %s - %s (%s)", e.Time, e.Title, e.Duration)
				if e.Location != "" {
					line += " - " + e.Location
				}
				if e.Attendees > 0 {
					line += fmt.Sprintf(" [%d attendees]", e.Attendees)
				}
				if msg, ok := overlaps[conflictKey{date, e.Title}]; ok {
					line += " ⚠️ CONFLICT: " + msg
				}
				lines = append(lines, line)
			}
			if n == 0 {
				lines = append(lines, "* NA")
			}
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

func sourceOf(e calendar.Event) string {
	if e.CalendarSource == "" {
		return "Unknown"
	}
	return e.CalendarSource
}

// sources lists calendar labels in first-seen order, or just "You" when
// there are no events.
func sources(events []calendar.Event) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		src := sourceOf(e)
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	if len(out) == 0 {
		return []string{"You"}
	}
	return out
}

func eventsOn(events []calendar.Event, date string) []calendar.Event {
	var out []calendar.Event
	for _, e := range events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

type conflictKey struct {
	date  string
	title string
}

func conflictLookup(conflicts []calendar.Conflict) map[conflictKey]string {
	lookup := make(map[conflictKey]string)
	for _, c := range conflicts {
		for _, name := range c.Events {
			var others []string
			for _, other := range c.Events {
				if other != name {
					others = append(others, other)
				}
			}
			if len(others) > 0 {
				lookup[conflictKey{c.Date, name}] = "Overlaps with " + strings.Join(others, ", ")
			}
		}
	}
	return lookup
}
