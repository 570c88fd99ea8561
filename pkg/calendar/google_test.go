package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var pst = time.FixedZone("PST", -8*60*60)

func TestParseGoogleEventTimed(t *testing.T) {
	item := &gcal.Event{
		Summary:   "Planning",
		Location:  "Room 4",
		Attendees: []*gcal.EventAttendee{{Email: "a@example.com"}, {Email: "b@example.com"}},
		Start:     &gcal.EventDateTime{DateTime: "2025-02-17T17:00:00Z"},
		End:       &gcal.EventDateTime{DateTime: "2025-02-17T18:30:00Z"},
	}
	got, err := ParseGoogleEvent(item, pst)
	if err != nil {
		t.Fatalf("ParseGoogleEvent: %v", err)
	}
	want := Event{
		Day:       "Monday",
		Date:      "2025-02-17",
		Time:      "9:00 AM",
		Title:     "Planning",
		Duration:  "1 hour 30 min",
		Attendees: 2,
		Location:  "Room 4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGoogleEventAllDay(t *testing.T) {
	item := &gcal.Event{
		Start: &gcal.EventDateTime{Date: "2025-02-22"},
		End:   &gcal.EventDateTime{Date: "2025-02-23"},
	}
	got, err := ParseGoogleEvent(item, pst)
	if err != nil {
		t.Fatalf("ParseGoogleEvent: %v", err)
	}
	if !got.IsAllDay || got.Time != AllDay || got.Duration != AllDay {
		t.Errorf("all-day fields = %+v", got)
	}
	if got.Day != "Saturday" {
		t.Errorf("Day = %q, want %q", got.Day, "Saturday")
	}
	if got.Title != NoTitle {
		t.Errorf("Title = %q, want %q", got.Title, NoTitle)
	}
}

func TestParseGoogleEventTimezoneShiftsDate(t *testing.T) {
	item := &gcal.Event{
		Summary: "Late call",
		Start:   &gcal.EventDateTime{DateTime: "2025-02-18T05:00:00Z"},
		End:     &gcal.EventDateTime{DateTime: "2025-02-18T05:45:00Z"},
	}
	got, err := ParseGoogleEvent(item, pst)
	if err != nil {
		t.Fatalf("ParseGoogleEvent: %v", err)
	}
	if got.Date != "2025-02-17" || got.Time != "9:00 PM" || got.Duration != "45 min" {
		t.Errorf("event = %+v", got)
	}
}

func TestGoogleSourceEvents(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"e1","summary":"Standup","start":{"dateTime":"2025-02-17T17:00:00Z"},"end":{"dateTime":"2025-02-17T17:15:00Z"}},
			{"id":"e2","summary":"Trip","start":{"date":"2025-02-21"},"end":{"date":"2025-02-22"}}
		]}`))
	}))
	defer srv.Close()

	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	src := NewGoogleSourceWithService(svc, pst)

	if err := src.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	events, err := src.Events(context.Background(), "primary", "2025-02-17", "2025-02-23")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Title != "Standup" || events[0].Time != "9:00 AM" || events[0].Duration != "15 min" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if !events[1].IsAllDay {
		t.Errorf("events[1] should be all-day: %+v", events[1])
	}

	for _, want := range []string{"singleEvents=true", "orderBy=startTime", "timeMin=2025-02-17T00%3A00%3A00Z", "timeMax=2025-02-23T23%3A59%3A59Z"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
}

func TestGoogleSourceMissingToken(t *testing.T) {
	dir := t.TempDir()
	src, err := NewGoogleSource(GoogleConfig{
		CredentialsPath: filepath.Join(dir, "credentials.json"),
		TokenPath:       filepath.Join(dir, "token.json"),
		Timezone:        "UTC",
		Logger:          quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewGoogleSource: %v", err)
	}
	err = src.Ready(context.Background())
	if err == nil || !strings.Contains(err.Error(), "token file not found") {
		t.Errorf("Ready error = %v, want token file not found", err)
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" {
		t.Errorf("token = %+v", got)
	}
}

type staticTokenSource struct{ tok *oauth2.Token }

func (s staticTokenSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingTokenSourceWritesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	ts := &savingTokenSource{
		base:   staticTokenSource{tok: &oauth2.Token{AccessToken: "new"}},
		path:   path,
		last:   "old",
		logger: quietLogger(),
	}
	if _, err := ts.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != "new" {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, "new")
	}
}
