package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	ollamaDefaultHost  = "http://localhost:11434"
	ollamaDefaultModel = "llama3.2"
	ollamaTimeout      = 60 * time.Second
)

// OllamaProvider calls the native /api/generate endpoint of a local Ollama
// server without streaming.
type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
}

func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = ollamaDefaultHost
	}
	if model == "" {
		model = ollamaDefaultModel
	}
	return &OllamaProvider{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: ollamaTimeout},
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

func (o *OllamaProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: o.model, Name: o.model, MaxContextTokens: 8192},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate sends a single prompt and returns the full response text.
func (o *OllamaProvider) Generate(ctx context.Context, model, system, prompt string) (string, *Usage, error) {
	if model == "" {
		model = o.model
	}
	resp, err := doLLMRequest(ctx, o.httpClient, "ollama", o.host+"/api/generate", nil, ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: system,
		Stream: false,
	})
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, fmt.Errorf("ollama: decoding response: %w", err)
	}
	if out.Response == "" {
		return "", nil, errors.New("ollama: returned an empty response")
	}
	return out.Response, &Usage{InputTokens: out.PromptEvalCount, OutputTokens: out.EvalCount}, nil
}

// Chat flattens the conversation into one prompt for /api/generate.
func (o *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (<-chan ChatEvent, error) {
	var prompt strings.Builder
	for i, m := range req.Messages {
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		if m.Role != RoleUser {
			prompt.WriteString(m.Role + ": ")
		}
		prompt.WriteString(m.Content)
	}

	text, usage, err := o.Generate(ctx, req.Model, req.System, prompt.String())
	if err != nil {
		return nil, err
	}

	ch := make(chan ChatEvent, 2)
	ch <- ChatEvent{Type: EventToken, Token: text}
	ch <- ChatEvent{Type: EventDone, Usage: usage}
	close(ch)
	return ch, nil
}
