package scheduler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-WeeklyPreview-Signature"

type WebhookPayload struct {
	Event   string          `json:"event"`
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload"`
}

type WebhookFunc func(ctx context.Context, payload WebhookPayload) error

// WebhookHandler lets an external cron or automation trigger jobs over
// HTTP.
type WebhookHandler struct {
	secret   string
	handlers map[string]WebhookFunc
	mu       sync.RWMutex
}

func NewWebhookHandler(secret string) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		handlers: make(map[string]WebhookFunc),
	}
}

func (wh *WebhookHandler) On(event string, fn WebhookFunc) {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	wh.handlers[event] = fn
}

func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResult(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeResult(w, http.StatusBadRequest, map[string]any{"error": "failed to read body"})
		return
	}

	if wh.secret != "" && !wh.verifySignature(body, r.Header.Get(SignatureHeader)) {
		writeResult(w, http.StatusUnauthorized, map[string]any{"error": "invalid signature"})
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeResult(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON"})
		return
	}

	logger := telemetry.FromContext(r.Context())
	logger.Info("webhook received",
		slog.String("event", payload.Event),
		slog.String("source", payload.Source),
	)

	wh.mu.RLock()
	handler, ok := wh.handlers[payload.Event]
	wh.mu.RUnlock()

	if !ok {
		writeResult(w, http.StatusAccepted, map[string]any{"status": "accepted", "handled": false})
		return
	}

	if err := handler(r.Context(), payload); err != nil {
		logger.Error("webhook handler failed",
			slog.String("event", payload.Event),
			slog.String("err", err.Error()),
		)
		writeResult(w, http.StatusInternalServerError, map[string]any{"status": "error", "error": err.Error()})
		return
	}

	writeResult(w, http.StatusOK, map[string]any{"status": "ok", "handled": true})
}

// Sign returns the signature header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (wh *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(wh.secret, body)), []byte(signature))
}

func writeResult(w http.ResponseWriter, status int, v map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
