package weeklypreview

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/config"
	"github.com/igorsilveira/weeklypreview/pkg/orchestrator"
	"github.com/igorsilveira/weeklypreview/pkg/scheduler"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default()
	cfg.MsgLog.Enabled = false
	cfg.Output.Dir = t.TempDir()
	cfg.Calendar.Timezone = "UTC"
	cfg.Agents.Discovery = []string{"http://127.0.0.1:1"}
	a, err := newApp(cfg, telemetry.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestSelectAgents(t *testing.T) {
	tests := []struct {
		arg     string
		want    []string
		wantErr bool
	}{
		{"", allAgents, false},
		{"all", allAgents, false},
		{"calendar", []string{"calendar"}, false},
		{"telegram", []string{"telegram"}, false},
		{"mail", nil, true},
	}
	for _, tt := range tests {
		got, err := selectAgents(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("selectAgents(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("selectAgents(%q) (-want +got):\n%s", tt.arg, diff)
		}
	}
}

func TestAuthCode(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"4/0AbCdEf", "4/0AbCdEf"},
		{"  4/0AbCdEf\n", "4/0AbCdEf"},
		{"http://localhost/?state=xyz&code=4%2F0AbC&scope=calendar", "4/0AbC"},
		{"http://localhost/?state=xyz", ""},
	}
	for _, tt := range tests {
		if got := authCode(tt.input); got != tt.want {
			t.Errorf("authCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestServerServesAgentCards(t *testing.T) {
	a := testApp(t)

	tests := []struct {
		agent string
		name  string
		skill string
	}{
		{agentCalendar, "Calendar Agent", "fetch_week_events"},
		{agentFormatter, "Formatter Agent", "format_weekly_preview"},
		{agentTelegram, "Telegram Agent", "send_telegram_message"},
		{agentOrchestrator, "Orchestrator Agent", "generate_weekly_preview"},
	}
	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			gw, err := a.Server(tt.agent)
			if err != nil {
				t.Fatalf("Server: %v", err)
			}
			w := httptest.NewRecorder()
			gw.Handler().ServeHTTP(w, httptest.NewRequest("GET", a2a.AgentCardPath, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var card a2a.AgentCard
			if err := json.NewDecoder(w.Body).Decode(&card); err != nil {
				t.Fatal(err)
			}
			if card.Name != tt.name || !card.HasSkill(tt.skill) {
				t.Errorf("card = %q %v", card.Name, card.Skills)
			}
			if url, _ := a2a.AgentURL(card); url != a.url(tt.agent) {
				t.Errorf("url = %q, want %q", url, a.url(tt.agent))
			}
		})
	}
}

func TestTelegramServerNotReadyWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	a := testApp(t)
	gw, err := a.Server(agentTelegram)
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestServerRejectsBadTimezone(t *testing.T) {
	a := testApp(t)
	a.cfg.Calendar.Timezone = "Mars/Olympus"
	if _, err := a.Server(agentCalendar); err == nil {
		t.Error("calendar server: expected timezone error")
	}
	if _, err := a.Server(agentOrchestrator); err == nil {
		t.Error("orchestrator server: expected timezone error")
	}
}

func TestWebhookRunsWorkflow(t *testing.T) {
	a := testApp(t)
	wf, err := a.Workflow("")
	if err != nil {
		t.Fatal(err)
	}
	wh := a.webhooks(wf, "s3cret")

	body := []byte(`{"event":"weekly_preview","payload":{"next_week":true}}`)
	req := httptest.NewRequest("POST", "/webhooks", bytes.NewReader(body))
	req.Header.Set(scheduler.SignatureHeader, scheduler.Sign("s3cret", body))
	w := httptest.NewRecorder()
	wh.ServeHTTP(w, req)

	// No agents are reachable, so the run fails on discovery.
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), "Calendar Agent not available") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	a := testApp(t)
	if _, err := a.Schedule("sometimes", false); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := a.Schedule("@weekly sun 18:00", true); err != nil {
		t.Errorf("Schedule: %v", err)
	}
}

func TestPlanChecksScheduleBeforeStarting(t *testing.T) {
	a := testApp(t)

	if _, err := a.plan([]string{agentCalendar}, agentCalendar, "@weekly"); err == nil {
		t.Error("schedule without orchestrator: expected error")
	}
	if _, err := a.plan([]string{agentOrchestrator}, agentOrchestrator, "sometimes"); err == nil {
		t.Error("invalid schedule: expected error")
	}

	a.cfg.Schedule.Spec = "@weekly sun 18:00"
	p, err := a.plan([]string{agentCalendar}, agentCalendar, "")
	if err != nil {
		t.Fatalf("config schedule without orchestrator: %v", err)
	}
	if p.sched != nil || p.spec != "" {
		t.Errorf("plan = %+v, want no schedule without the orchestrator", p)
	}

	p, err = a.plan(allAgents, "", "")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if diff := cmp.Diff([]string{agentOrchestrator, agentCalendar, agentFormatter}, p.started); diff != "" {
		t.Errorf("started (-want +got):\n%s", diff)
	}
	if p.sched == nil || p.spec != "@weekly sun 18:00" {
		t.Errorf("schedule = %q, want the configured one", p.spec)
	}
}

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, &orchestrator.Result{
		Summary:      "📅 *Week of 17-23 Feb*",
		FilePath:     "output/summaries/2025-02-17_created-2025-02-19-103000.md",
		WeekStart:    "2025-02-17",
		WeekEnd:      "2025-02-23",
		TotalEvents:  4,
		TelegramSent: true,
		Format:       "chat",
		WordCount:    5,
	})
	out := buf.String()
	for _, want := range []string{"Week of 17-23 Feb", "2025-02-17 to 2025-02-23", "4", "chat (5 words)", "sent"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	failed := printChecks(&buf, []checkResult{
		{name: "Timezone", ok: true, detail: "UTC"},
		{name: "Calendar token", detail: "missing"},
		{name: "Telegram", detail: "TELEGRAM_BOT_TOKEN not set", optional: true},
	})
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if !strings.Contains(buf.String(), "1 passed, 1 failed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCheckTelegram(t *testing.T) {
	if c := checkTelegram(config.TelegramConfig{}); c.ok {
		t.Error("empty telegram config reported ok")
	}
	if c := checkTelegram(config.TelegramConfig{BotToken: "t", ChatID: "1"}); !c.ok {
		t.Errorf("configured telegram: %+v", c)
	}
}

func TestCheckToken(t *testing.T) {
	if c := checkToken(filepath.Join(t.TempDir(), "token.json")); c.ok {
		t.Error("missing token reported ok")
	}
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	printEntries(&buf, nil)
	if got := buf.String(); got != "No audit entries found.\n" {
		t.Errorf("empty output = %q", got)
	}

	buf.Reset()
	printEntries(&buf, []audit.Entry{{
		Timestamp: time.Date(2025, 2, 19, 10, 30, 0, 0, time.UTC),
		EventType: audit.EventWorkflowDone,
		AgentID:   orchestrator.AgentID,
		Detail:    "week 2025-02-17",
	}})
	out := buf.String()
	if !strings.Contains(out, "[2025-02-19 10:30:00] workflow_done") || !strings.Contains(out, "1 entries") {
		t.Errorf("output = %q", out)
	}
}
