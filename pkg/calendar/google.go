package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

// GoogleConfig locates the OAuth client secrets and the saved user token.
type GoogleConfig struct {
	CredentialsPath string
	TokenPath       string
	Timezone        string
	Logger          *slog.Logger
}

// GoogleSource reads events through the Google Calendar v3 API. The API
// client is built on first use so a missing token only fails the request
// that needs it.
type GoogleSource struct {
	cfg    GoogleConfig
	loc    *time.Location
	logger *slog.Logger

	mu  sync.Mutex
	svc *gcal.Service
}

func NewGoogleSource(cfg GoogleConfig) (*GoogleSource, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: loading timezone %q: %w", cfg.Timezone, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleSource{cfg: cfg, loc: loc, logger: logger}, nil
}

// NewGoogleSourceWithService wraps an already configured API client.
func NewGoogleSourceWithService(svc *gcal.Service, loc *time.Location) *GoogleSource {
	if loc == nil {
		loc = time.UTC
	}
	return &GoogleSource{loc: loc, logger: slog.Default(), svc: svc}
}

func (g *GoogleSource) Ready(ctx context.Context) error {
	_, err := g.service(ctx)
	return err
}

func (g *GoogleSource) service(ctx context.Context) (*gcal.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.svc != nil {
		return g.svc, nil
	}

	if _, err := os.Stat(g.cfg.TokenPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("token file not found at %s. Run 'weeklypreview calendar-auth' to authenticate", g.cfg.TokenPath)
	}
	conf, err := OAuthConfig(g.cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(g.cfg.TokenPath)
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, errors.New("token is invalid and cannot be refreshed. Run 'weeklypreview calendar-auth' to re-authenticate")
	}

	ts := &savingTokenSource{
		base:   conf.TokenSource(context.Background(), tok),
		path:   g.cfg.TokenPath,
		last:   tok.AccessToken,
		logger: g.logger,
	}
	svc, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts)))
	if err != nil {
		return nil, fmt.Errorf("calendar: creating client: %w", err)
	}
	g.svc = svc
	return svc, nil
}

func (g *GoogleSource) Events(ctx context.Context, calendarID, start, end string) ([]Event, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Events.List(calendarID).
		TimeMin(start + "T00:00:00Z").
		TimeMax(end + "T23:59:59Z").
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: listing %s: %w", calendarID, err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		e, err := ParseGoogleEvent(item, g.loc)
		if err != nil {
			return nil, fmt.Errorf("calendar: parsing event %s: %w", item.Id, err)
		}
		events = append(events, e)
	}
	g.logger.Debug("calendar events listed",
		slog.String("calendar_id", calendarID),
		slog.Int("count", len(events)),
	)
	return events, nil
}

// ParseGoogleEvent converts an API event into the shared event shape.
// Timed events are shown in loc.
func ParseGoogleEvent(item *gcal.Event, loc *time.Location) (Event, error) {
	if item.Start == nil {
		return Event{}, errors.New("event has no start")
	}

	e := Event{
		Title:     item.Summary,
		Attendees: len(item.Attendees),
		Location:  item.Location,
	}
	if e.Title == "" {
		e.Title = NoTitle
	}

	if item.Start.DateTime == "" && item.Start.Date != "" {
		day, err := time.Parse(dateLayout, item.Start.Date)
		if err != nil {
			return Event{}, err
		}
		e.IsAllDay = true
		e.Day = day.Weekday().String()
		e.Date = day.Format(dateLayout)
		e.Time = AllDay
		e.Duration = AllDay
		return e, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return Event{}, err
	}
	if item.End == nil {
		return Event{}, errors.New("event has no end")
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return Event{}, err
	}
	start = start.In(loc)

	e.Day = start.Weekday().String()
	e.Date = start.Format(dateLayout)
	e.Time = start.Format(clockTime)
	e.Duration = FormatDuration(end.Sub(start))
	return e, nil
}

// OAuthConfig reads the client secrets downloaded from the Google Cloud
// console.
func OAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("calendar: reading credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("calendar: parsing credentials: %w", err)
	}
	return conf, nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calendar: reading token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("calendar: parsing token: %w", err)
	}
	return &tok, nil
}

func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("calendar: creating token dir: %w", err)
	}
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("calendar: writing token: %w", err)
	}
	return nil
}

// savingTokenSource writes refreshed tokens back to disk.
type savingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("saving refreshed token", slog.String("error", err.Error()))
		} else {
			s.logger.Info("calendar token refreshed and saved")
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
