package weeklypreview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/agents"
	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/calendar"
	"github.com/igorsilveira/weeklypreview/pkg/config"
	"github.com/igorsilveira/weeklypreview/pkg/formatter"
	"github.com/igorsilveira/weeklypreview/pkg/gateway"
	"github.com/igorsilveira/weeklypreview/pkg/llm"
	"github.com/igorsilveira/weeklypreview/pkg/msglog"
	"github.com/igorsilveira/weeklypreview/pkg/orchestrator"
	"github.com/igorsilveira/weeklypreview/pkg/scheduler"
	"github.com/igorsilveira/weeklypreview/pkg/telegram"
)

const (
	agentOrchestrator = "orchestrator"
	agentCalendar     = "calendar"
	agentFormatter    = "formatter"
	agentTelegram     = "telegram"
)

var allAgents = []string{agentOrchestrator, agentCalendar, agentFormatter, agentTelegram}

// app holds what the agent servers share within one process.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	msgLog   *msglog.Logger
	auditLog *audit.Logger
	workflow *orchestrator.Workflow
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if cfg.MsgLog.Enabled {
		a.msgLog = msglog.New(cfg.MsgLog.Dir, logger)
	}
	if cfg.Audit.Enabled {
		al, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, err
		}
		a.auditLog = al
	}
	return a, nil
}

func (a *app) Close() {
	if a.auditLog != nil {
		_ = a.auditLog.Close()
	}
}

func (a *app) deps() agents.Deps {
	return agents.Deps{
		Version:    version,
		MessageLog: a.msgLog,
		AuditLog:   a.auditLog,
		Logger:     a.logger,
	}
}

func (a *app) calendarRefs() []calendar.Ref {
	refs := make([]calendar.Ref, 0, len(a.cfg.Calendar.Calendars))
	for _, c := range a.cfg.Calendar.Calendars {
		refs = append(refs, calendar.Ref{CalendarID: c.ID, Label: c.Label})
	}
	return refs
}

func (a *app) port(name string) int {
	switch name {
	case agentCalendar:
		return a.cfg.Agents.CalendarPort
	case agentFormatter:
		return a.cfg.Agents.FormatterPort
	case agentTelegram:
		return a.cfg.Agents.TelegramPort
	default:
		return a.cfg.Agents.OrchestratorPort
	}
}

func (a *app) url(name string) string {
	return a.cfg.Agents.URL(a.port(name))
}

func (a *app) telegramConfigured() bool {
	return a.cfg.Telegram.BotToken != "" && a.cfg.Telegram.ChatID != ""
}

func (a *app) client() *a2a.Client {
	// max_retries = 0 in config means no retries; the client reads zero as
	// its default.
	retries := a.cfg.Agents.MaxRetries
	if retries == 0 {
		retries = -1
	}
	return a2a.NewClient(a2a.ClientConfig{
		Caller:     orchestrator.AgentID,
		MessageLog: a.msgLog,
		Logger:     a.logger,
		MaxRetries: retries,
	})
}

// Workflow builds the orchestrator workflow once per process.
func (a *app) Workflow(style string) (*orchestrator.Workflow, error) {
	if a.workflow != nil {
		return a.workflow, nil
	}
	loc, err := time.LoadLocation(a.cfg.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", a.cfg.Calendar.Timezone, err)
	}
	a.workflow = orchestrator.New(orchestrator.Config{
		AgentURLs: a.cfg.Agents.DiscoveryURLs(),
		Calendars: a.calendarRefs(),
		OutputDir: a.cfg.Output.Dir,
		Style:     style,
		Location:  loc,
		Client:    a.client(),
		AuditLog:  a.auditLog,
		Logger:    a.logger,
	})
	return a.workflow, nil
}

func (a *app) generator() (formatter.TextGenerator, error) {
	key := ""
	if a.cfg.LLM.APIKeyEnv != "" {
		key = os.Getenv(a.cfg.LLM.APIKeyEnv)
	}
	p, err := llm.NewProvider(a.cfg.LLM.Provider, a.cfg.LLM.BaseURL, key, a.cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewGenerator(p, a.cfg.LLM.Model, a.cfg.LLM.System, a.logger), nil
}

// Server builds the HTTP server for one agent.
func (a *app) Server(name string) (*gateway.Gateway, error) {
	gc := gateway.Config{
		Bind:   a.cfg.Agents.Bind,
		Port:   a.port(name),
		Logger: a.logger,
	}

	switch name {
	case agentCalendar:
		src, err := calendar.NewGoogleSource(calendar.GoogleConfig{
			CredentialsPath: a.cfg.Calendar.CredentialsPath,
			TokenPath:       a.cfg.Calendar.TokenPath,
			Timezone:        a.cfg.Calendar.Timezone,
			Logger:          a.logger,
		})
		if err != nil {
			return nil, err
		}
		svc := calendar.NewService(src, a.logger)
		gc.Name = agents.CalendarID
		gc.Agent = agents.NewCalendar(a.url(name), svc, a.calendarRefs(), a.deps())
		gc.Ready = src.Ready

	case agentFormatter:
		gen, err := a.generator()
		if err != nil {
			return nil, err
		}
		gc.Name = agents.FormatterID
		gc.Agent = agents.NewFormatter(a.url(name), formatter.New(a.cfg.Formatter.Style, gen, a.logger), a.deps())

	case agentTelegram:
		var sender agents.Sender
		s, err := telegram.New(telegram.Config{
			Token:     a.cfg.Telegram.BotToken,
			ChatID:    a.cfg.Telegram.ChatID,
			ServerURL: a.cfg.Telegram.ServerURL,
			Logger:    a.logger,
		})
		if err != nil {
			a.logger.Warn("telegram agent has no sender", slog.String("err", err.Error()))
			gc.Ready = func(context.Context) error { return err }
		} else {
			sender = s
		}
		gc.Name = agents.TelegramID
		gc.Agent = agents.NewTelegram(a.url(name), sender, a.deps())

	case agentOrchestrator:
		wf, err := a.Workflow("")
		if err != nil {
			return nil, err
		}
		gc.Name = agents.OrchestratorID
		gc.Agent = agents.NewOrchestrator(a.url(name), wf, a.deps())
		if secret := a.cfg.Schedule.WebhookSecret; secret != "" {
			gc.Webhooks = a.webhooks(wf, secret)
		}

	default:
		return nil, fmt.Errorf("unknown agent %q (want one of %v)", name, allAgents)
	}
	return gateway.New(gc), nil
}

// webhooks lets an external trigger start a run with
// {"event":"weekly_preview","payload":{"next_week":true}}.
func (a *app) webhooks(wf *orchestrator.Workflow, secret string) *scheduler.WebhookHandler {
	wh := scheduler.NewWebhookHandler(secret)
	wh.On("weekly_preview", func(ctx context.Context, p scheduler.WebhookPayload) error {
		var params struct {
			NextWeek bool `json:"next_week"`
		}
		if len(p.Payload) > 0 {
			if err := json.Unmarshal(p.Payload, &params); err != nil {
				return fmt.Errorf("invalid payload: %w", err)
			}
		}
		_, err := wf.Run(ctx, params.NextWeek)
		return err
	})
	return wh
}

// Schedule registers the periodic workflow run.
func (a *app) Schedule(spec string, nextWeek bool) (*scheduler.Scheduler, error) {
	wf, err := a.Workflow("")
	if err != nil {
		return nil, err
	}
	s := scheduler.New(scheduler.Config{AuditLog: a.auditLog, Logger: a.logger})
	err = s.Add(scheduler.Job{
		Name:     "weekly-preview",
		Schedule: spec,
		Func: func(ctx context.Context) error {
			_, err := wf.Run(ctx, nextWeek)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// selectAgents resolves the serve argument to agent names.
func selectAgents(arg string) ([]string, error) {
	switch arg {
	case "", "all":
		return allAgents, nil
	}
	for _, name := range allAgents {
		if name == arg {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("unknown agent %q (want all or one of %v)", arg, allAgents)
}
