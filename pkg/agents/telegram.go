package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/igorsilveira/weeklypreview/pkg/a2a"
	"github.com/igorsilveira/weeklypreview/pkg/telegram"
)

// Sender delivers text and reports where it went.
type Sender interface {
	Send(ctx context.Context, text string) (*telegram.Delivery, error)
}

var errTelegramNotConfigured = errors.New("telegram is not configured (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)")

func TelegramCard(url, version string) a2a.AgentCard {
	return a2a.NewAgentCard(
		"Telegram Agent",
		"Sends formatted text messages to a Telegram chat via Bot API.",
		url, version,
		a2a.NewSkill("send_telegram_message", "Send Telegram Message",
			"Send a text message to a configured Telegram chat.",
			[]string{"telegram", "delivery", "notification"},
			"Send weekly preview to Telegram"),
	)
}

// NewTelegram serves send_telegram_message. A nil sender still publishes
// the card but fails every delivery.
func NewTelegram(url string, sender Sender, deps Deps) *a2a.Handler {
	send := func(ctx context.Context, req *a2a.ActionRequest) (*a2a.Outcome, error) {
		var p struct {
			Text string `json:"text"`
		}
		if err := req.Bind(&p); err != nil {
			return nil, err
		}
		if p.Text == "" {
			return nil, errors.New("no text provided to send")
		}
		if sender == nil {
			return nil, errTelegramNotConfigured
		}

		d, err := sender.Send(ctx, p.Text)
		if err != nil {
			return nil, err
		}
		return &a2a.Outcome{
			Artifact: a2a.NewArtifact("telegram-delivery", "Telegram message delivery result", a2a.NewDataPart(d)),
			Summary:  fmt.Sprintf("Message sent to Telegram (message_id: %d).", d.MessageID),
		}, nil
	}

	return deps.handler(TelegramID, TelegramCard(url, deps.Version), a2a.Action{
		Name:     "send_telegram_message",
		Progress: "Sending Telegram message...",
		Run:      send,
	})
}
