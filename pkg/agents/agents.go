// Package agents assembles the four weekly-preview agents on top of the a2a
// task lifecycle: each one is an agent card plus the actions behind its
// skills.
package agents

import (
	"log/slog"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/msglog"
	"github.com/igorsilveira/weeklypreview/pkg/orchestrator"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

const (
	CalendarID     = "calendar-001"
	FormatterID    = "formatter-001"
	TelegramID     = "telegram-001"
	OrchestratorID = orchestrator.AgentID
)

// Deps are the collaborators shared by every agent server.
type Deps struct {
	Version    string
	MessageLog *msglog.Logger
	AuditLog   *audit.Logger
	Logger     *slog.Logger
}

func (d Deps) handler(agentID string, card a2a.AgentCard, actions ...a2a.Action) *a2a.Handler {
	return a2a.NewHandler(a2a.HandlerConfig{
		AgentID:    agentID,
		Card:       func() a2a.AgentCard { return card },
		Actions:    actions,
		MessageLog: d.MessageLog,
		AuditLog:   d.AuditLog,
		Logger:     telemetry.ForAgent(d.Logger, agentID),
	})
}
