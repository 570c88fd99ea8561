// Package msglog appends every exchanged protocol message to a daily NDJSON
// file so an exchange can be reconstructed from either side.
package msglog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	Incoming = "incoming"
	Outgoing = "outgoing"
)

type Entry struct {
	LoggedAt  string          `json:"logged_at"`
	Direction string          `json:"direction"`
	LoggedBy  string          `json:"logged_by"`
	Message   json.RawMessage `json:"message"`
}

type Logger struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
}

func New(dir string, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{dir: dir, now: time.Now, logger: logger}
}

// Record appends one entry for payload. Failures are reported on the
// operational logger and never returned.
func (l *Logger) Record(direction, agentID string, payload any) {
	if l == nil {
		return
	}
	if agentID == "" {
		agentID = "unknown"
	}
	if err := l.write(direction, agentID, payload); err != nil {
		l.logger.Error("failed to write a2a message log", slog.String("error", err.Error()))
	}
}

func (l *Logger) write(direction, agentID string, payload any) error {
	msg, err := encodePayload(payload)
	if err != nil {
		return err
	}

	ts := l.now().UTC()
	line, err := json.Marshal(Entry{
		LoggedAt:  ts.Format("2006-01-02T15:04:05Z"),
		Direction: direction,
		LoggedBy:  agentID,
		Message:   msg,
	})
	if err != nil {
		return fmt.Errorf("msglog: encoding entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("msglog: creating directory: %w", err)
	}
	f, err := os.OpenFile(l.Path(ts), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("msglog: opening file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("msglog: writing entry: %w", err)
	}
	return nil
}

// Path returns the file that holds entries logged on t's UTC day.
func (l *Logger) Path(t time.Time) string {
	return filepath.Join(l.dir, t.UTC().Format("2006-01-02")+".log")
}

// encodePayload keeps raw JSON bodies verbatim and falls back to a quoted
// string for bodies that are not valid JSON.
func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		if json.Valid(v) {
			return v, nil
		}
		return json.Marshal(string(v))
	case []byte:
		if json.Valid(v) {
			return json.RawMessage(v), nil
		}
		return json.Marshal(string(v))
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("msglog: encoding payload: %w", err)
	}
	return b, nil
}
