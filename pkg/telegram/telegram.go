// Package telegram delivers text to a Telegram chat through the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"

	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

type Config struct {
	Token  string
	ChatID string
	// ServerURL overrides the Bot API endpoint.
	ServerURL string
	Logger    *slog.Logger
}

// Delivery describes a sent message. Long texts go out as several messages;
// MessageID is the first one.
type Delivery struct {
	MessageID int    `json:"message_id"`
	ChatID    string `json:"chat_id"`
	SentAt    string `json:"sent_at"`
	Parts     int    `json:"parts,omitempty"`
}

type Sender struct {
	bot    *bot.Bot
	chatID string
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg Config) (*Sender, error) {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if token == "" {
		return nil, errors.New("telegram: bot token not set")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("telegram: chat id not set")
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating bot: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{bot: b, chatID: cfg.ChatID, logger: logger, now: time.Now}, nil
}

// Send posts text to the configured chat, splitting it when it exceeds the
// message size limit.
func (s *Sender) Send(ctx context.Context, text string) (*Delivery, error) {
	if text == "" {
		return nil, errors.New("no text provided to send")
	}

	chunks := Split(text, MaxMessageLength)
	first := 0
	for i, chunk := range chunks {
		msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: s.chatID,
			Text:   chunk,
		})
		if err != nil {
			telemetry.Metrics.TelegramDeliveries.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("telegram: sending part %d/%d: %w", i+1, len(chunks), err)
		}
		if i == 0 {
			first = msg.ID
		}
	}
	telemetry.Metrics.TelegramDeliveries.WithLabelValues("sent").Inc()

	s.logger.Info("telegram message sent",
		slog.String("chat_id", s.chatID),
		slog.Int("message_id", first),
		slog.Int("parts", len(chunks)),
	)
	d := &Delivery{
		MessageID: first,
		ChatID:    s.chatID,
		SentAt:    s.now().UTC().Format(time.RFC3339),
	}
	if len(chunks) > 1 {
		d.Parts = len(chunks)
	}
	return d, nil
}
