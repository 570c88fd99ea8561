// Package formatter turns a week of calendar events into a readable preview.
package formatter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/calendar"
)

const (
	StyleChat     = "chat"
	StyleMarkdown = "markdown"
)

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Params is the input of the format_weekly_preview action.
type Params struct {
	Events      []calendar.Event    `json:"events"`
	Conflicts   []calendar.Conflict `json:"conflicts"`
	WeekStart   string              `json:"week_start"`
	TotalEvents int                 `json:"total_events"`
	BusiestDay  string              `json:"busiest_day"`
	Style       string              `json:"style,omitempty"`
}

type Result struct {
	FormattedSummary string `json:"formatted_summary"`
	Format           string `json:"format"`
	WordCount        int    `json:"word_count"`
}

type Formatter struct {
	style     string
	generator TextGenerator
	logger    *slog.Logger
}

// New returns a Formatter. defaultStyle applies when a request names none;
// generator may be nil, in which case markdown drafts are returned as is.
func New(defaultStyle string, generator TextGenerator, logger *slog.Logger) *Formatter {
	if defaultStyle == "" {
		defaultStyle = StyleChat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{style: defaultStyle, generator: generator, logger: logger}
}

func (f *Formatter) Format(ctx context.Context, p Params) (*Result, error) {
	start, err := time.Parse(dateLayout, p.WeekStart)
	if err != nil {
		return nil, fmt.Errorf("invalid week_start %q: expected YYYY-MM-DD", p.WeekStart)
	}

	style := p.Style
	if style == "" {
		style = f.style
	}

	var summary string
	switch style {
	case StyleChat:
		summary = BuildChat(p.Events, p.Conflicts, start)
	case StyleMarkdown:
		draft := BuildMarkdown(p.Events, p.Conflicts, start)
		if f.generator == nil {
			summary = draft
			break
		}
		summary, err = f.generator.Generate(ctx, rewritePrompt(draft, p))
		if err != nil {
			return nil, fmt.Errorf("generating preview: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown style %q", style)
	}

	f.logger.Info("weekly preview built",
		slog.String("week_start", p.WeekStart),
		slog.String("format", style),
		slog.Int("chars", len(summary)),
	)
	return &Result{
		FormattedSummary: summary,
		Format:           style,
		WordCount:        len(strings.Fields(summary)),
	}, nil
}

func rewritePrompt(draft string, p Params) string {
	var b strings.Builder
	b.WriteString("You are writing a weekly calendar preview. Rewrite the draft below into a friendly, ")
	b.WriteString("well organized markdown summary. Keep every day heading, every event with its time, ")
	b.WriteString("and every conflict warning. Do not invent events.\n\n")
	fmt.Fprintf(&b, "Total events: %d\n", p.TotalEvents)
	if p.BusiestDay != "" {
		fmt.Fprintf(&b, "Busiest day: %s\n", p.BusiestDay)
	}
	b.WriteString("\nDraft:\n\n")
	b.WriteString(draft)
	return b.String()
}
