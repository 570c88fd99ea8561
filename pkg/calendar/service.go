package calendar

import (
	"context"
	"fmt"
	"log/slog"
)

// Source reads events from one calendar backend.
type Source interface {
	// Ready reports whether the source has usable credentials.
	Ready(ctx context.Context) error
	// Events lists the events of calendarID between start and end, both
	// inclusive dates in YYYY-MM-DD form.
	Events(ctx context.Context, calendarID, start, end string) ([]Event, error)
}

type Service struct {
	source Source
	logger *slog.Logger
}

func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// FetchWeek merges the events of every calendar into one sorted week. A
// calendar that fails to load is logged and left out.
func (s *Service) FetchWeek(ctx context.Context, start, end string, calendars []Ref) (*Week, error) {
	if err := s.source.Ready(ctx); err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	var all []Event
	for _, ref := range calendars {
		events, err := s.source.Events(ctx, ref.CalendarID, start, end)
		if err != nil {
			s.logger.Warn("calendar fetch failed",
				slog.String("calendar_id", ref.CalendarID),
				slog.String("label", ref.Label),
				slog.String("error", err.Error()),
			)
			continue
		}
		label := ref.Label
		if label == "" {
			label = ref.CalendarID
		}
		for i := range events {
			events[i].CalendarSource = label
		}
		all = append(all, events...)
	}

	week := Summarize(all)
	s.logger.Info("calendar week fetched",
		slog.String("start", start),
		slog.String("end", end),
		slog.Int("events", week.TotalEvents),
		slog.Int("conflicts", len(week.Conflicts)),
	)
	return week, nil
}
