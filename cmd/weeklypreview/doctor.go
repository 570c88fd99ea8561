package weeklypreview

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/calendar"
	"github.com/igorsilveira/weeklypreview/pkg/config"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and agent reachability",
	RunE:  runDoctor,
}

type checkResult struct {
	name     string
	ok       bool
	detail   string
	optional bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Weekly Preview Doctor v%s", version)))
	fmt.Fprintf(out, "%s %s/%s, %s\n\n", labelStyle.Render("Platform:"), runtime.GOOS, runtime.GOARCH, runtime.Version())

	cfg, _, err := loadConfig()
	if err != nil {
		printChecks(out, []checkResult{{name: "Config file", detail: err.Error()}})
		return err
	}

	checks := []checkResult{
		checkConfigFile(configPath()),
		checkTimezone(cfg.Calendar.Timezone),
		checkFile("Google credentials", cfg.Calendar.CredentialsPath),
		checkToken(cfg.Calendar.TokenPath),
		checkTelegram(cfg.Telegram),
	}
	client := &http.Client{Timeout: 2 * time.Second}
	for _, agent := range []struct {
		name string
		port int
	}{
		{"Orchestrator agent", cfg.Agents.OrchestratorPort},
		{"Calendar agent", cfg.Agents.CalendarPort},
		{"Formatter agent", cfg.Agents.FormatterPort},
		{"Telegram agent", cfg.Agents.TelegramPort},
	} {
		c := checkHealth(client, agent.name, cfg.Agents.URL(agent.port))
		c.optional = true
		checks = append(checks, c)
	}

	failed := printChecks(out, checks)
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

// printChecks renders each check and returns how many required ones failed.
func printChecks(w io.Writer, checks []checkResult) int {
	passed, failed := 0, 0
	for _, c := range checks {
		switch {
		case c.ok:
			passed++
		case !c.optional:
			failed++
		}
		detail := c.detail
		if !c.ok && c.optional {
			detail = dimStyle.Render(detail + " (optional)")
		}
		fmt.Fprintf(w, "  %s %s: %s\n", mark(c.ok), c.name, detail)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", passed, failed)
	return failed
}

func checkConfigFile(path string) checkResult {
	if _, err := os.Stat(path); err != nil {
		return checkResult{name: "Config file", ok: true, detail: fmt.Sprintf("%s not found (using defaults)", path)}
	}
	return checkResult{name: "Config file", ok: true, detail: path}
}

func checkTimezone(tz string) checkResult {
	if _, err := time.LoadLocation(tz); err != nil {
		return checkResult{name: "Timezone", detail: fmt.Sprintf("%q: %v", tz, err)}
	}
	return checkResult{name: "Timezone", ok: true, detail: tz}
}

func checkFile(name, path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{name: name, detail: fmt.Sprintf("%s not found", path)}
	}
	if info.IsDir() {
		return checkResult{name: name, detail: fmt.Sprintf("%s is a directory", path)}
	}
	return checkResult{name: name, ok: true, detail: path}
}

func checkToken(path string) checkResult {
	const name = "Calendar token"
	tok, err := calendar.LoadToken(path)
	if err != nil {
		return checkResult{name: name, detail: fmt.Sprintf("%v (run 'weeklypreview calendar-auth')", err)}
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return checkResult{name: name, detail: "expired with no refresh token (run 'weeklypreview calendar-auth')"}
	}
	return checkResult{name: name, ok: true, detail: path}
}

func checkTelegram(tc config.TelegramConfig) checkResult {
	c := checkResult{name: "Telegram", optional: true}
	switch {
	case tc.BotToken == "":
		c.detail = "TELEGRAM_BOT_TOKEN not set"
	case tc.ChatID == "":
		c.detail = "TELEGRAM_CHAT_ID not set"
	default:
		c.ok = true
		c.detail = "chat " + tc.ChatID
	}
	return c
}

func checkHealth(client *http.Client, name, baseURL string) checkResult {
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return checkResult{name: name, detail: "not running at " + baseURL}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return checkResult{name: name, detail: fmt.Sprintf("unhealthy (status %d)", resp.StatusCode)}
	}
	return checkResult{name: name, ok: true, detail: "running at " + baseURL}
}
