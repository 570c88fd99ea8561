package a2a

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

const (
	AgentCardPath           = "/.well-known/agent.json"
	DefaultDiscoveryTimeout = 5 * time.Second
)

// FetchAgentCard retrieves and validates the card published at baseURL.
// Unreachable agents and invalid cards both report ok=false.
func (c *Client) FetchAgentCard(ctx context.Context, baseURL string, timeout time.Duration) (*AgentCard, bool) {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}
	target := strings.TrimRight(baseURL, "/") + AgentCardPath

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.discoveryFailed("request", target, err.Error())
		return nil, false
	}
	raw, err := c.do(req)
	if err != nil {
		c.discoveryFailed("unreachable", target, err.Error())
		return nil, false
	}
	if verr := ValidateAgentCard(raw); verr != nil {
		c.discoveryFailed("invalid", target, verr.Error())
		return nil, false
	}

	var card AgentCard
	if err := json.Unmarshal(raw, &card); err != nil {
		c.discoveryFailed("invalid", target, err.Error())
		return nil, false
	}
	c.logger.Info("discovered agent", slog.String("name", card.Name), slog.String("url", baseURL))
	return &card, true
}

func (c *Client) discoveryFailed(reason, target, detail string) {
	telemetry.Metrics.DiscoveryFailures.WithLabelValues(reason).Inc()
	c.logger.Warn("agent card unavailable",
		slog.String("url", target),
		slog.String("reason", reason),
		slog.String("error", detail),
	)
}

// DiscoverAgents fetches the card of each base URL in order, skipping agents
// that are unreachable or publish an invalid card.
func (c *Client) DiscoverAgents(ctx context.Context, baseURLs []string) []AgentCard {
	cards := make([]AgentCard, 0, len(baseURLs))
	for _, u := range baseURLs {
		if card, ok := c.FetchAgentCard(ctx, u, 0); ok {
			cards = append(cards, *card)
		}
	}
	return cards
}

// FindAgentBySkill returns the first card advertising skillID.
func FindAgentBySkill(cards []AgentCard, skillID string) (*AgentCard, bool) {
	for i := range cards {
		if cards[i].HasSkill(skillID) {
			return &cards[i], true
		}
	}
	return nil, false
}

// AgentURL returns the URL of the card's first supported interface.
func AgentURL(card AgentCard) (string, bool) {
	if len(card.SupportedInterfaces) == 0 {
		return "", false
	}
	return card.SupportedInterfaces[0].URL, true
}

// SkillMap indexes cards by skill id. Later cards win for duplicate ids.
func SkillMap(cards []AgentCard) map[string]AgentCard {
	m := make(map[string]AgentCard)
	for _, card := range cards {
		for _, s := range card.Skills {
			m[s.ID] = card
		}
	}
	return m
}
