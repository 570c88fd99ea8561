package a2a

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

func discoveryClient() *Client {
	return NewClient(ClientConfig{Logger: telemetry.Discard()})
}

func TestDiscoverAgentsSkipsUnreachable(t *testing.T) {
	live := httptest.NewServer(testHandler(t))
	defer live.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	cards := discoveryClient().DiscoverAgents(context.Background(), []string{live.URL, deadURL})
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
	if cards[0].Name != "Test Agent" {
		t.Errorf("Name = %q, want %q", cards[0].Name, "Test Agent")
	}
}

func TestDiscoverAgentsSkipsInvalidCards(t *testing.T) {
	invalid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"name": "Broken", "version": "1"})
	}))
	defer invalid.Close()

	notJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer notJSON.Close()

	live := httptest.NewServer(testHandler(t))
	defer live.Close()

	cards := discoveryClient().DiscoverAgents(context.Background(), []string{invalid.URL, notJSON.URL, live.URL})
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
}

func TestDiscoverAgentsPreservesOrder(t *testing.T) {
	first := httptest.NewServer(testHandler(t))
	defer first.Close()
	second := httptest.NewServer(NewHandler(HandlerConfig{
		AgentID: "other",
		Card: func() AgentCard {
			return NewAgentCard("Other Agent", "Other.", "http://other", "",
				NewSkill("echo", "Echo", "Also echoes.", []string{}))
		},
	}))
	defer second.Close()

	cards := discoveryClient().DiscoverAgents(context.Background(), []string{second.URL, first.URL})
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	if cards[0].Name != "Other Agent" || cards[1].Name != "Test Agent" {
		t.Errorf("order = [%s %s]", cards[0].Name, cards[1].Name)
	}

	card, ok := FindAgentBySkill(cards, "echo")
	if !ok || card.Name != "Other Agent" {
		t.Errorf("FindAgentBySkill = %v, %v; want first match", card, ok)
	}
	if _, ok := FindAgentBySkill(cards, "missing"); ok {
		t.Error("expected no agent for unknown skill")
	}
}

func TestAgentURL(t *testing.T) {
	card := NewAgentCard("A", "B", "http://localhost:5001", "")
	u, ok := AgentURL(card)
	if !ok || u != "http://localhost:5001" {
		t.Errorf("AgentURL = %q, %v", u, ok)
	}

	card.SupportedInterfaces = nil
	if _, ok := AgentURL(card); ok {
		t.Error("expected not found for card without interfaces")
	}
}

func TestSkillMap(t *testing.T) {
	a := NewAgentCard("A", "a", "http://a", "", NewSkill("s1", "S1", "d", nil), NewSkill("s2", "S2", "d", nil))
	b := NewAgentCard("B", "b", "http://b", "", NewSkill("s3", "S3", "d", nil))

	m := SkillMap([]AgentCard{a, b})
	if len(m) != 3 {
		t.Fatalf("len = %d, want 3", len(m))
	}
	if m["s2"].Name != "A" || m["s3"].Name != "B" {
		t.Errorf("unexpected mapping: %v", m)
	}
}
