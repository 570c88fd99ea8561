package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/calendar"
	"github.com/igorsilveira/weeklypreview/pkg/telegram"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

// wednesday is mid-week so the current week runs 2025-02-17..23.
var wednesday = time.Date(2025, 2, 19, 10, 30, 0, 0, time.UTC)

type fakeAgent struct {
	srv *httptest.Server

	mu     sync.Mutex
	calls  int
	params []byte
}

func (fa *fakeAgent) Calls() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.calls
}

func (fa *fakeAgent) LastParams() string {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return string(fa.params)
}

func newFakeAgent(t *testing.T, name, skill string, run a2a.ActionFunc) *fakeAgent {
	t.Helper()
	fa := &fakeAgent{}
	h := a2a.NewHandler(a2a.HandlerConfig{
		AgentID: strings.ToLower(name),
		Card: func() a2a.AgentCard {
			return a2a.NewAgentCard(name, name+" for tests.", fa.srv.URL, "",
				a2a.NewSkill(skill, skill, "test skill", nil))
		},
		Actions: []a2a.Action{{
			Name: skill,
			Run: func(ctx context.Context, req *a2a.ActionRequest) (*a2a.Outcome, error) {
				fa.mu.Lock()
				fa.calls++
				fa.params = req.Parameters
				fa.mu.Unlock()
				return run(ctx, req)
			},
		}},
		Logger: telemetry.Discard(),
	})
	fa.srv = httptest.NewUnstartedServer(h)
	fa.srv.Start()
	t.Cleanup(fa.srv.Close)
	return fa
}

func calendarAgent(t *testing.T) *fakeAgent {
	return newFakeAgent(t, "Calendar Agent", SkillFetchWeek, func(_ context.Context, req *a2a.ActionRequest) (*a2a.Outcome, error) {
		var p struct {
			StartDate string `json:"start_date"`
		}
		if err := req.Bind(&p); err != nil {
			return nil, err
		}
		if p.StartDate != "2025-02-17" {
			return nil, errors.New("unexpected start_date " + p.StartDate)
		}
		week := calendar.Summarize([]calendar.Event{{
			Day: "Monday", Date: "2025-02-17", Time: "9:00 AM", Title: "Standup", Duration: "30 min", CalendarSource: "You",
		}})
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("calendar-events", "", a2a.NewDataPart(week)),
			Summary:  "Retrieved 1 events.",
		}, nil
	})
}

func formatterAgent(t *testing.T) *fakeAgent {
	return newFakeAgent(t, "Formatter Agent", SkillFormat, func(context.Context, *a2a.ActionRequest) (*a2a.Outcome, error) {
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("weekly-preview", "",
				a2a.NewTextPart("Preview"),
				a2a.NewDataPart(map[string]any{"format": "chat", "word_count": 1}),
			),
			Summary: "Generated weekly preview (1 words).",
		}, nil
	})
}

func testWorkflow(t *testing.T, urls ...string) (*Workflow, string) {
	t.Helper()
	dir := t.TempDir()
	w := New(Config{
		AgentURLs: urls,
		Calendars: []calendar.Ref{{CalendarID: "primary", Label: "You"}},
		OutputDir: dir,
		Location:  time.UTC,
		Client:    a2a.NewClient(a2a.ClientConfig{Caller: AgentID, Logger: telemetry.Discard(), MaxRetries: -1}),
		Logger:    telemetry.Discard(),
		Now:       func() time.Time { return wednesday },
	})
	return w, dir
}

func TestRunWithoutTelegram(t *testing.T) {
	cal := calendarAgent(t)
	fmtr := formatterAgent(t)
	w, _ := testWorkflow(t, cal.srv.URL, fmtr.srv.URL)

	res, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d, want 1", res.TotalEvents)
	}
	if res.TelegramSent {
		t.Error("TelegramSent = true, want false without a telegram agent")
	}
	if res.WeekStart != "2025-02-17" || res.WeekEnd != "2025-02-23" {
		t.Errorf("week = %s..%s", res.WeekStart, res.WeekEnd)
	}
	if res.Format != "chat" || res.WordCount != 1 {
		t.Errorf("format fields = %q/%d", res.Format, res.WordCount)
	}

	b, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	if string(b) != "Preview" {
		t.Errorf("file content = %q, want %q", b, "Preview")
	}
	if want := "2025-02-17_created-2025-02-19-103000.md"; filepath.Base(res.FilePath) != want {
		t.Errorf("file name = %q, want %q", filepath.Base(res.FilePath), want)
	}
}

func TestRunLogsMalformedFormatterData(t *testing.T) {
	cal := calendarAgent(t)
	fmtr := newFakeAgent(t, "Formatter Agent", SkillFormat, func(context.Context, *a2a.ActionRequest) (*a2a.Outcome, error) {
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("weekly-preview", "",
				a2a.NewTextPart("Preview"),
				a2a.NewDataPart(map[string]any{"format": "chat", "word_count": "many"}),
			),
		}, nil
	})
	w, _ := testWorkflow(t, cal.srv.URL, fmtr.srv.URL)
	var logs bytes.Buffer
	w.logger = slog.New(slog.NewTextHandler(&logs, nil))

	res, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary != "Preview" {
		t.Errorf("Summary = %q, want %q", res.Summary, "Preview")
	}
	if !strings.Contains(logs.String(), "ignoring malformed formatter data") {
		t.Errorf("logs = %q, want a warning about the data part", logs.String())
	}
}

func TestRunDeliversToTelegram(t *testing.T) {
	cal := calendarAgent(t)
	fmtr := formatterAgent(t)
	tg := newFakeAgent(t, "Telegram Agent", SkillSendTelegram, func(context.Context, *a2a.ActionRequest) (*a2a.Outcome, error) {
		d := telegram.Delivery{MessageID: 7, ChatID: "123", SentAt: "2025-02-19T10:30:00Z"}
		return &a2a.Outcome{Artifact: a2a.NewArtifact("telegram-delivery", "", a2a.NewDataPart(d))}, nil
	})
	w, _ := testWorkflow(t, cal.srv.URL, fmtr.srv.URL, tg.srv.URL)

	res, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TelegramSent {
		t.Error("TelegramSent = false, want true")
	}
	if got := tg.LastParams(); got != `{"text":"Preview"}` {
		t.Errorf("telegram params = %s", got)
	}
}

func TestRunTelegramFailureIsNotFatal(t *testing.T) {
	cal := calendarAgent(t)
	fmtr := formatterAgent(t)
	tg := newFakeAgent(t, "Telegram Agent", SkillSendTelegram, func(context.Context, *a2a.ActionRequest) (*a2a.Outcome, error) {
		return nil, errors.New("chat not found")
	})
	w, dir := testWorkflow(t, cal.srv.URL, fmtr.srv.URL, tg.srv.URL)

	res, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TelegramSent {
		t.Error("TelegramSent = true, want false after failed delivery")
	}
	if tg.Calls() != 1 {
		t.Errorf("telegram calls = %d, want 1", tg.Calls())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("files = %d, want 1", len(entries))
	}
}

func TestRunMissingFormatter(t *testing.T) {
	cal := calendarAgent(t)
	w, dir := testWorkflow(t, cal.srv.URL)

	_, err := w.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected error without a formatter agent")
	}
	want := "Formatter Agent not available (format_weekly_preview skill not found)"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
	if cal.Calls() != 0 {
		t.Errorf("calendar calls = %d, want 0", cal.Calls())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files = %d, want none", len(entries))
	}
}

func TestRunCalendarFailurePropagates(t *testing.T) {
	cal := newFakeAgent(t, "Calendar Agent", SkillFetchWeek, func(context.Context, *a2a.ActionRequest) (*a2a.Outcome, error) {
		return nil, errors.New("token file not found")
	})
	fmtr := formatterAgent(t)
	w, _ := testWorkflow(t, cal.srv.URL, fmtr.srv.URL)

	_, err := w.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected error when the calendar task fails")
	}
	want := "Calendar Agent task failed: Error: token file not found"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
	if fmtr.Calls() != 0 {
		t.Errorf("formatter calls = %d, want 0", fmtr.Calls())
	}
}

func TestRunFormatterWithoutText(t *testing.T) {
	cal := calendarAgent(t)
	fmtr := newFakeAgent(t, "Formatter Agent", SkillFormat, func(context.Context, *a2a.ActionRequest) (*a2a.Outcome, error) {
		return &a2a.Outcome{Artifact: a2a.NewArtifact("weekly-preview", "", a2a.NewDataPart(map[string]any{"format": "chat"}))}, nil
	})
	w, _ := testWorkflow(t, cal.srv.URL, fmtr.srv.URL)

	_, err := w.Run(context.Background(), false)
	if err == nil || err.Error() != "Formatter Agent artifact has no TextPart" {
		t.Errorf("err = %v", err)
	}
}

func TestRunWritesAudit(t *testing.T) {
	cal := calendarAgent(t)
	fmtr := formatterAgent(t)
	auditLog, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	defer auditLog.Close()

	w, _ := testWorkflow(t, cal.srv.URL, fmtr.srv.URL)
	w.cfg.AuditLog = auditLog
	if _, err := w.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := auditLog.Query(context.Background(), audit.Filter{EventType: audit.EventWorkflowDone})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("workflow_done entries = %d, want 1", len(entries))
	}
}
