// Package orchestrator runs the weekly preview workflow: discover the agents,
// fetch the week from the calendar agent, have the formatter render it,
// optionally deliver it over Telegram and save it to disk.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/calendar"
	"github.com/igorsilveira/weeklypreview/pkg/formatter"
	"github.com/igorsilveira/weeklypreview/pkg/telegram"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

const AgentID = "orchestrator-main"

const (
	SkillFetchWeek    = "fetch_week_events"
	SkillFormat       = "format_weekly_preview"
	SkillSendTelegram = "send_telegram_message"
)

type Config struct {
	// AgentURLs are the base URLs probed for agent cards.
	AgentURLs []string
	Calendars []calendar.Ref
	OutputDir string
	// Style is passed to the formatter; empty lets the formatter decide.
	Style    string
	Location *time.Location

	Client   *a2a.Client
	AuditLog *audit.Logger
	Logger   *slog.Logger
	Now      func() time.Time
}

// Result is the outcome of one successful run.
type Result struct {
	Summary      string `json:"summary"`
	FilePath     string `json:"file_path"`
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	TotalEvents  int    `json:"total_events"`
	TelegramSent bool   `json:"telegram_sent"`
	Format       string `json:"format,omitempty"`
	WordCount    int    `json:"word_count,omitempty"`
}

type Workflow struct {
	cfg    Config
	steps  []step
	logger *slog.Logger
}

// run carries the state threaded through the steps.
type run struct {
	start, end string
	week       calendar.Week
	preview    formatter.Result
	delivery   *telegram.Delivery
}

type step struct {
	skill   string
	agent   string
	timeout time.Duration
	// optional steps are skipped when no agent offers the skill, and
	// their failures do not stop the run.
	optional bool
	params   func(*Workflow, *run) any
	collect  func(*Workflow, *run, a2a.Artifact) error
}

func New(cfg Config) *Workflow {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output/summaries"
	}
	if cfg.Client == nil {
		cfg.Client = a2a.NewClient(a2a.ClientConfig{Caller: AgentID, Logger: cfg.Logger})
	}
	return &Workflow{
		cfg:    cfg,
		steps:  defaultSteps(),
		logger: telemetry.ForAgent(cfg.Logger, AgentID),
	}
}

func defaultSteps() []step {
	return []step{
		{
			skill:   SkillFetchWeek,
			agent:   "Calendar Agent",
			timeout: 15 * time.Second,
			params: func(w *Workflow, r *run) any {
				return map[string]any{
					"start_date": r.start,
					"end_date":   r.end,
					"calendars":  w.cfg.Calendars,
				}
			},
			collect: func(_ *Workflow, r *run, art a2a.Artifact) error {
				p, ok := firstPart(art, a2a.PartData)
				if !ok {
					return errors.New("Calendar Agent artifact has no DataPart")
				}
				if err := a2a.DataAs(p, &r.week); err != nil {
					return fmt.Errorf("Calendar Agent returned malformed data: %w", err)
				}
				return nil
			},
		},
		{
			skill:   SkillFormat,
			agent:   "Formatter Agent",
			timeout: 30 * time.Second,
			params: func(w *Workflow, r *run) any {
				return formatter.Params{
					Events:      r.week.Events,
					Conflicts:   r.week.Conflicts,
					WeekStart:   r.start,
					TotalEvents: r.week.TotalEvents,
					BusiestDay:  r.week.BusiestDay,
					Style:       w.cfg.Style,
				}
			},
			collect: func(w *Workflow, r *run, art a2a.Artifact) error {
				text, ok := firstPart(art, a2a.PartText)
				if !ok {
					return errors.New("Formatter Agent artifact has no TextPart")
				}
				if data, ok := firstPart(art, a2a.PartData); ok {
					if err := a2a.DataAs(data, &r.preview); err != nil {
						w.logger.Warn("ignoring malformed formatter data", slog.String("error", err.Error()))
					}
				}
				r.preview.FormattedSummary = text.Text
				return nil
			},
		},
		{
			skill:    SkillSendTelegram,
			agent:    "Telegram Agent",
			timeout:  15 * time.Second,
			optional: true,
			params: func(_ *Workflow, r *run) any {
				return map[string]any{"text": r.preview.FormattedSummary}
			},
			collect: func(_ *Workflow, r *run, art a2a.Artifact) error {
				p, ok := firstPart(art, a2a.PartData)
				if !ok {
					return errors.New("Telegram Agent artifact has no DataPart")
				}
				var d telegram.Delivery
				if err := a2a.DataAs(p, &d); err != nil {
					return err
				}
				r.delivery = &d
				return nil
			},
		},
	}
}

// Run executes the workflow for the current week, or the next one.
func (w *Workflow) Run(ctx context.Context, nextWeek bool) (res *Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.run", attribute.Bool("next_week", nextWeek))
	defer func() {
		status := "completed"
		if err != nil {
			status = "failed"
			w.audit(ctx, audit.EventWorkflowFail, err.Error())
		} else {
			w.audit(ctx, audit.EventWorkflowDone, res.FilePath)
		}
		telemetry.Metrics.WorkflowRuns.WithLabelValues(status).Inc()
		telemetry.EndSpan(span, err)
	}()

	r := &run{}
	r.start, r.end = WeekRange(w.cfg.Now().In(w.cfg.Location), nextWeek)
	w.logger.Info("generating weekly preview", slog.String("start", r.start), slog.String("end", r.end))

	cards := w.cfg.Client.DiscoverAgents(ctx, w.cfg.AgentURLs)
	skills := a2a.SkillMap(cards)
	w.logger.Info("agents discovered", slog.Int("count", len(cards)))

	for _, s := range w.steps {
		if _, ok := skills[s.skill]; !ok && !s.optional {
			return nil, fmt.Errorf("%s not available (%s skill not found)", s.agent, s.skill)
		}
	}

	for _, s := range w.steps {
		card, ok := skills[s.skill]
		if !ok {
			w.logger.Info("skill not discovered, skipping", slog.String("skill", s.skill))
			continue
		}
		if err := w.call(ctx, s, card, r); err != nil {
			if s.optional {
				w.logger.Warn("optional step failed",
					slog.String("skill", s.skill),
					slog.String("error", err.Error()),
				)
				continue
			}
			return nil, err
		}
	}

	path, err := WriteSummary(w.cfg.OutputDir, r.start, r.preview.FormattedSummary, w.cfg.Now())
	if err != nil {
		return nil, err
	}
	w.logger.Info("summary saved", slog.String("path", path))

	return &Result{
		Summary:      r.preview.FormattedSummary,
		FilePath:     path,
		WeekStart:    r.start,
		WeekEnd:      r.end,
		TotalEvents:  r.week.TotalEvents,
		TelegramSent: r.delivery != nil,
		Format:       r.preview.Format,
		WordCount:    r.preview.WordCount,
	}, nil
}

func (w *Workflow) call(ctx context.Context, s step, card a2a.AgentCard, r *run) error {
	url, ok := a2a.AgentURL(card)
	if !ok {
		return fmt.Errorf("%s card has no interface URL", s.agent)
	}

	w.logger.Info("sending action", slog.String("skill", s.skill), slog.String("url", url))
	resp, err := w.cfg.Client.SendMessage(ctx, url, a2a.NewActionRequest(s.skill, s.params(w, r)), s.timeout)
	if err != nil {
		msg := err.Error()
		var e *a2a.Error
		if errors.As(err, &e) {
			msg = e.Message
		}
		return fmt.Errorf("%s failed: %s", s.agent, msg)
	}
	if resp.Task == nil {
		return fmt.Errorf("%s returned no task", s.agent)
	}

	task := resp.Task
	if task.Status.State != a2a.TaskStateCompleted {
		text := task.StatusText()
		if text == "" {
			text = "unknown error"
		}
		return fmt.Errorf("%s task %s: %s", s.agent, task.Status.State, text)
	}
	if len(task.Artifacts) == 0 {
		return fmt.Errorf("%s returned no artifacts", s.agent)
	}
	return s.collect(w, r, task.Artifacts[0])
}

func (w *Workflow) audit(ctx context.Context, event, detail string) {
	if w.cfg.AuditLog == nil {
		return
	}
	if err := w.cfg.AuditLog.Log(ctx, event, "", AgentID, "orchestrator", detail); err != nil {
		w.logger.Warn("audit log failed", slog.String("error", err.Error()))
	}
}

func firstPart(art a2a.Artifact, kind a2a.PartKind) (a2a.Part, bool) {
	for _, p := range art.Parts {
		if p.Kind == kind {
			return p, true
		}
	}
	return a2a.Part{}, false
}
