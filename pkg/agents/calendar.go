package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/calendar"
)

func CalendarCard(url, version string) a2a.AgentCard {
	return a2a.NewAgentCard(
		"Calendar Agent",
		"Fetches events from Google Calendar for a date range, supports multiple calendars with source labeling and conflict detection.",
		url, version,
		a2a.NewSkill("fetch_week_events", "Fetch Week Events",
			"Fetch calendar events for a given week from configured calendars.",
			[]string{"calendar", "events", "google", "schedule"},
			"Get my events for next week", "What's on my calendar?"),
	)
}

type fetchWeekParams struct {
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Calendars []calendar.Ref `json:"calendars"`
}

// NewCalendar serves fetch_week_events. Requests that name no calendars
// read defaults.
func NewCalendar(url string, svc *calendar.Service, defaults []calendar.Ref, deps Deps) *a2a.Handler {
	fetch := func(ctx context.Context, req *a2a.ActionRequest) (*a2a.Outcome, error) {
		var p fetchWeekParams
		if err := req.Bind(&p); err != nil {
			return nil, err
		}
		for _, d := range []string{p.StartDate, p.EndDate} {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return nil, fmt.Errorf("start_date and end_date must be YYYY-MM-DD, got %q", d)
			}
		}
		if len(p.Calendars) == 0 {
			p.Calendars = defaults
		}

		week, err := svc.FetchWeek(ctx, p.StartDate, p.EndDate, p.Calendars)
		if err != nil {
			return nil, err
		}
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("calendar-events",
				fmt.Sprintf("Calendar events for %s to %s", p.StartDate, p.EndDate),
				a2a.NewDataPart(week)),
			Summary: fmt.Sprintf("Retrieved %d events.", week.TotalEvents),
		}, nil
	}

	return deps.handler(CalendarID, CalendarCard(url, deps.Version), a2a.Action{
		Name:     "fetch_week_events",
		Progress: "Fetching calendar events...",
		Run:      fetch,
	})
}
