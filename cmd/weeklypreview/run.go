package weeklypreview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/orchestrator"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a weekly preview now",
	Long:  "Start the Calendar, Formatter and (when configured) Telegram agents in this process, run the workflow once and stop. With --remote the agents must already be running.",
	RunE:  runRun,
}

var (
	runNext   bool
	runRemote bool
	runStyle  string
)

const agentStartTimeout = 10 * time.Second

func init() {
	runCmd.Flags().BoolVar(&runNext, "next", false, "preview the following week instead of the current one")
	runCmd.Flags().BoolVar(&runRemote, "remote", false, "use agents that are already running")
	runCmd.Flags().StringVar(&runStyle, "style", "", "preview style: chat or markdown (default from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = telemetry.WithLogger(ctx, logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	wf, err := a.Workflow(runStyle)
	if err != nil {
		return err
	}

	agentsCtx, stopAgents := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(agentsCtx)
	if !runRemote {
		names := []string{agentCalendar, agentFormatter}
		if a.telegramConfigured() {
			names = append(names, agentTelegram)
		}
		for _, name := range names {
			srv, err := a.Server(name)
			if err != nil {
				stopAgents()
				return fmt.Errorf("%s agent: %w", name, err)
			}
			g.Go(func() error { return srv.Start(gctx) })
		}
		for _, name := range names {
			if err := waitHealthy(gctx, a.url(name), agentStartTimeout); err != nil {
				stopAgents()
				_ = g.Wait()
				return fmt.Errorf("%s agent did not start: %w", name, err)
			}
		}
	}

	week := "current week"
	if runNext {
		week = "following week"
	}
	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("Weekly Preview")+dimStyle.Render(" - generating preview for "+week))

	res, runErr := wf.Run(ctx, runNext)

	stopAgents()
	if err := g.Wait(); err != nil {
		logger.Warn("agent shutdown", slog.String("err", err.Error()))
	}

	if runErr != nil {
		fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render("✗ "+runErr.Error()))
		return runErr
	}
	renderResult(cmd.OutOrStdout(), res)
	return nil
}

func renderResult(w io.Writer, res *orchestrator.Result) {
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(res.Summary, "\n")))

	rows := [][2]string{
		{"Week", res.WeekStart + " to " + res.WeekEnd},
		{"Events", fmt.Sprintf("%d", res.TotalEvents)},
		{"Saved to", res.FilePath},
	}
	if res.Format != "" {
		rows = append(rows, [2]string{"Format", fmt.Sprintf("%s (%d words)", res.Format, res.WordCount)})
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", r[0]+":")), r[1])
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", "Telegram:")), telegramStatus(res.TelegramSent))
}

func telegramStatus(sent bool) string {
	if sent {
		return okStyle.Render("sent")
	}
	return dimStyle.Render("not sent")
}

// waitHealthy polls baseURL/healthz until it answers 200 or timeout passes.
func waitHealthy(ctx context.Context, baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/healthz", nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
