package agents

import (
	"context"
	"fmt"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/orchestrator"
)

func OrchestratorCard(url, version string) a2a.AgentCard {
	return a2a.NewAgentCard(
		"Orchestrator Agent",
		"Coordinates the weekly preview workflow by discovering and delegating to Calendar and Formatter agents via A2A protocol.",
		url, version,
		a2a.NewSkill("generate_weekly_preview", "Generate Weekly Preview",
			"Orchestrate calendar fetch and formatting to produce a weekly preview.",
			[]string{"orchestrator", "workflow", "weekly", "preview"},
			"Generate my weekly preview", "What's my week look like?"),
	)
}

// Runner runs the weekly preview workflow.
type Runner interface {
	Run(ctx context.Context, nextWeek bool) (*orchestrator.Result, error)
}

func NewOrchestrator(url string, wf Runner, deps Deps) *a2a.Handler {
	generate := func(ctx context.Context, req *a2a.ActionRequest) (*a2a.Outcome, error) {
		var p struct {
			NextWeek bool `json:"next_week"`
		}
		if err := req.Bind(&p); err != nil {
			return nil, err
		}
		res, err := wf.Run(ctx, p.NextWeek)
		if err != nil {
			return nil, err
		}
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("weekly-preview",
				fmt.Sprintf("Weekly preview for %s to %s", res.WeekStart, res.WeekEnd),
				a2a.NewTextPart(res.Summary),
				a2a.NewDataPart(map[string]any{
					"file_path":     res.FilePath,
					"week_start":    res.WeekStart,
					"week_end":      res.WeekEnd,
					"total_events":  res.TotalEvents,
					"telegram_sent": res.TelegramSent,
				})),
			Summary: "Weekly preview saved to " + res.FilePath,
		}, nil
	}

	return deps.handler(OrchestratorID, OrchestratorCard(url, deps.Version), a2a.Action{
		Name:     "generate_weekly_preview",
		Progress: "Generating weekly preview...",
		Run:      generate,
	})
}
