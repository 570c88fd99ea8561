package agents

import (
	"context"
	"fmt"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/formatter"
)

func FormatterCard(url, version string) a2a.AgentCard {
	return a2a.NewAgentCard(
		"Formatter Agent",
		"Formats structured calendar data into a human-friendly weekly preview using a local LLM (Ollama). Groups events by day and calendar source.",
		url, version,
		a2a.NewSkill("format_weekly_preview", "Format Weekly Preview",
			"Generate a formatted markdown weekly preview from calendar event data.",
			[]string{"formatter", "summary", "markdown", "llm", "ollama"},
			"Format my weekly calendar", "Generate a weekly preview"),
	)
}

func NewFormatter(url string, f *formatter.Formatter, deps Deps) *a2a.Handler {
	format := func(ctx context.Context, req *a2a.ActionRequest) (*a2a.Outcome, error) {
		var p formatter.Params
		if err := req.Bind(&p); err != nil {
			return nil, err
		}
		res, err := f.Format(ctx, p)
		if err != nil {
			return nil, err
		}
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("weekly-preview",
				"Weekly preview for week of "+p.WeekStart,
				a2a.NewTextPart(res.FormattedSummary),
				a2a.NewDataPart(map[string]any{
					"format":     res.Format,
					"word_count": res.WordCount,
				})),
			Summary: fmt.Sprintf("Generated weekly preview (%d words).", res.WordCount),
		}, nil
	}

	return deps.handler(FormatterID, FormatterCard(url, deps.Version), a2a.Action{
		Name:     "format_weekly_preview",
		Progress: "Generating weekly preview...",
		Run:      format,
	})
}
