package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

// Generator turns a Provider into a single-prompt text generator.
type Generator struct {
	provider Provider
	model    string
	system   string
	logger   *slog.Logger
}

func NewGenerator(p Provider, model, system string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: p, model: model, system: system, logger: logger}
}

// NewProvider builds the provider named in configuration.
func NewProvider(name, baseURL, apiKey, model string) (Provider, error) {
	switch name {
	case "", "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "openai":
		p, err := NewOpenAIProvider(apiKey, baseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.model
	if model == "" {
		if models := g.provider.Models(); len(models) > 0 {
			model = models[0].ID
		}
	}

	start := time.Now()
	telemetry.Metrics.LLMRequestsTotal.WithLabelValues(g.provider.Name(), model).Inc()
	defer func() {
		telemetry.Metrics.LLMLatency.WithLabelValues(g.provider.Name(), model).Observe(time.Since(start).Seconds())
	}()

	events, err := g.provider.Chat(ctx, ChatRequest{
		Model:    model,
		System:   g.system,
		Messages: []ChatMessage{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		telemetry.Metrics.ErrorsTotal.WithLabelValues("llm").Inc()
		return "", err
	}

	var b strings.Builder
	for ev := range events {
		switch ev.Type {
		case EventToken:
			b.WriteString(ev.Token)
		case EventError:
			telemetry.Metrics.ErrorsTotal.WithLabelValues("llm").Inc()
			return "", ev.Error
		case EventDone:
			if ev.Usage != nil {
				g.logger.Debug("llm generation done",
					slog.String("provider", g.provider.Name()),
					slog.String("model", model),
					slog.Int("input_tokens", ev.Usage.InputTokens),
					slog.Int("output_tokens", ev.Usage.OutputTokens),
				)
			}
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("llm: %s returned no text", g.provider.Name())
	}
	return text, nil
}
