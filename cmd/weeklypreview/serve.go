package weeklypreview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/igorsilveira/weeklypreview/pkg/config"
	"github.com/igorsilveira/weeklypreview/pkg/gateway"
	"github.com/igorsilveira/weeklypreview/pkg/scheduler"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve [all|orchestrator|calendar|formatter|telegram]",
	Short: "Run agent servers",
	Long:  "Run one agent server, or all of them in this process. The Telegram agent is left out of 'all' when no bot token or chat id is configured.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

var serveSchedule string

func init() {
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", `re-run the workflow on a schedule, e.g. "@weekly sun 18:00" or "@every 24h"`)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	names, err := selectAgents(arg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = telemetry.WithLogger(ctx, logger)

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
		Version:  version,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.plan(names, arg, serveSchedule)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range p.servers {
		srv := srv
		g.Go(func() error { return srv.Start(gctx) })
	}
	if p.sched != nil {
		g.Go(func() error {
			p.sched.Start(gctx)
			return nil
		})
	}

	logger.Info("weekly preview agents started",
		slog.String("version", version),
		slog.Any("agents", p.started),
		slog.String("schedule", p.spec),
	)
	return g.Wait()
}

type servePlan struct {
	started []string
	servers []*gateway.Gateway
	spec    string
	sched   *scheduler.Scheduler
}

// plan builds the servers and the schedule for one serve invocation without
// starting any of them.
func (a *app) plan(names []string, arg, flagSpec string) (*servePlan, error) {
	p := &servePlan{}
	for _, name := range names {
		if name == agentTelegram && arg != agentTelegram && !a.telegramConfigured() {
			a.logger.Info("telegram agent not started: TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set")
			continue
		}
		srv, err := a.Server(name)
		if err != nil {
			return nil, fmt.Errorf("%s agent: %w", name, err)
		}
		p.started = append(p.started, name)
		p.servers = append(p.servers, srv)
	}

	p.spec = flagSpec
	if p.spec == "" && slices.Contains(p.started, agentOrchestrator) {
		p.spec = a.cfg.Schedule.Spec
	}
	if p.spec == "" {
		return p, nil
	}
	if !slices.Contains(p.started, agentOrchestrator) {
		return nil, fmt.Errorf("--schedule needs the orchestrator agent in this process")
	}
	sched, err := a.Schedule(p.spec, a.cfg.Schedule.NextWeek)
	if err != nil {
		return nil, err
	}
	p.sched = sched
	return p, nil
}
