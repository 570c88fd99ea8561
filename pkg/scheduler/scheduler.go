package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

type Job struct {
	Name     string
	Schedule string
	Func     func(ctx context.Context) error
}

type Config struct {
	AuditLog *audit.Logger
	Logger   *slog.Logger
	Now      func() time.Time
}

type Scheduler struct {
	jobs     []*entry
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	auditLog *audit.Logger
	logger   *slog.Logger
	now      func() time.Time
}

type entry struct {
	job    Job
	sched  schedule
	next   time.Time
	active bool
}

func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		stopCh:   make(chan struct{}),
		auditLog: cfg.AuditLog,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

func (s *Scheduler) Add(job Job) error {
	sched, err := parseSchedule(job.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", job.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, &entry{
		job:   job,
		sched: sched,
		next:  sched.next(s.now()),
	})
	return nil
}

// Next reports when the named job fires next.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.jobs {
		if e.job.Name == name {
			return e.next, true
		}
	}
	return time.Time{}, false
}

// Start blocks until ctx is done or Stop is called, then waits for
// in-flight jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	n := len(s.jobs)
	s.mu.Unlock()

	s.logger.Info("scheduler started", slog.Int("jobs", n))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopCh)
		s.running = false
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.jobs {
		if now.Before(e.next) {
			continue
		}
		e.next = e.sched.next(now)
		if e.active {
			s.logger.Warn("scheduler: previous run still active, skipping", slog.String("job", e.job.Name))
			continue
		}
		e.active = true
		s.wg.Add(1)
		go s.run(ctx, e)
	}
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		e.active = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("scheduler: running job", slog.String("job", e.job.Name))
	err := e.job.Func(ctx)

	detail := map[string]any{
		"job":         e.job.Name,
		"status":      "ok",
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		detail["status"] = "error"
		detail["error"] = err.Error()
		telemetry.Metrics.ErrorsTotal.WithLabelValues("scheduler").Inc()
		s.logger.Error("scheduler: job failed",
			slog.String("job", e.job.Name),
			slog.String("err", err.Error()),
		)
	}
	if s.auditLog != nil {
		if aerr := s.auditLog.Log(ctx, audit.EventScheduleRun, "", "", "scheduler", detail); aerr != nil {
			s.logger.Warn("scheduler: audit log failed", slog.String("err", aerr.Error()))
		}
	}
}

// schedule is either a fixed interval or a wall-clock anchor repeating
// daily or weekly.
type schedule struct {
	interval time.Duration

	anchored bool
	weekly   bool
	weekday  time.Weekday
	hour     int
	minute   int
}

func (s schedule) next(now time.Time) time.Time {
	if !s.anchored {
		return now.Add(s.interval)
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	step := 1
	if s.weekly {
		step = 7
		t = t.AddDate(0, 0, (int(s.weekday)-int(t.Weekday())+7)%7)
	}
	for !t.After(now) {
		t = t.AddDate(0, 0, step)
	}
	return t
}

// parseSchedule accepts @hourly, @daily, @weekly, "@daily HH:MM",
// "@weekly <day> HH:MM", "@every <duration>" and bare durations.
func parseSchedule(s string) (schedule, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return schedule{}, fmt.Errorf("empty schedule")
	}

	switch {
	case s == "@hourly":
		return schedule{interval: time.Hour}, nil
	case s == "@daily":
		return schedule{interval: 24 * time.Hour}, nil
	case s == "@weekly":
		return schedule{interval: 7 * 24 * time.Hour}, nil
	case fields[0] == "@daily" && len(fields) == 2:
		h, m, err := parseClock(fields[1])
		if err != nil {
			return schedule{}, err
		}
		return schedule{anchored: true, hour: h, minute: m}, nil
	case fields[0] == "@weekly" && len(fields) == 3:
		day, err := parseWeekday(fields[1])
		if err != nil {
			return schedule{}, err
		}
		h, m, err := parseClock(fields[2])
		if err != nil {
			return schedule{}, err
		}
		return schedule{anchored: true, weekly: true, weekday: day, hour: h, minute: m}, nil
	case fields[0] == "@every" && len(fields) == 2:
		return parseInterval(fields[1])
	case len(fields) == 1:
		return parseInterval(fields[0])
	}
	return schedule{}, fmt.Errorf("unrecognised schedule")
}

func parseInterval(s string) (schedule, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return schedule{}, err
	}
	if d <= 0 {
		return schedule{}, fmt.Errorf("interval must be positive")
	}
	return schedule{interval: d}, nil
}

func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
