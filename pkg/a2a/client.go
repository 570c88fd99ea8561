package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/igorsilveira/weeklypreview/pkg/msglog"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultSendTimeout = 15 * time.Second
	DefaultMaxRetries  = 2
)

type ClientConfig struct {
	HTTPClient *http.Client
	// Caller identifies the sending agent in the message log.
	Caller     string
	MessageLog *msglog.Logger
	Logger     *slog.Logger
	// MaxRetries is the number of retries after the first attempt. Zero
	// means DefaultMaxRetries; a negative value disables retries.
	MaxRetries int
	// Sleep, when set, replaces the timer between attempts. It must return
	// nil once d has passed, or ctx.Err() when ctx is done first.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client talks to agent servers over the HTTP+JSON binding.
type Client struct {
	http       *http.Client
	caller     string
	msgLog     *msglog.Logger
	logger     *slog.Logger
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Caller == "" {
		cfg.Caller = "client"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	return &Client{
		http:       cfg.HTTPClient,
		caller:     cfg.Caller,
		msgLog:     cfg.MessageLog,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		sleep:      cfg.Sleep,
	}
}

// SendMessage posts req to the agent at agentURL. Timeouts and transport
// failures (including non-2xx responses) are retried with a backoff of
// 2^(attempt+1) seconds. Every failure is returned as an *Error.
func (c *Client) SendMessage(ctx context.Context, agentURL string, req SendMessageRequest, timeout time.Duration) (resp *SendMessageResponse, err error) {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	target := strings.TrimRight(agentURL, "/") + "/message/send"

	ctx, span := telemetry.StartSpan(ctx, "a2a.send_message",
		attribute.String("a2a.url", target),
		attribute.String("a2a.caller", c.caller),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if verr := ValidateSendMessageRequest(req); verr != nil {
		c.logger.Error("outgoing request validation failed", slog.String("error", verr.Error()))
		return nil, NewError(CodeInvalidMessage, verr.Error())
	}

	body, merr := json.Marshal(req)
	if merr != nil {
		return nil, NewError(CodeInvalidMessage, merr.Error())
	}
	c.msgLog.Record(msglog.Outgoing, c.caller, json.RawMessage(body))

	attempt := 0
	var lastErr error
	op := func() error {
		attempt++
		out, aerr := c.post(ctx, target, body, timeout)
		if aerr != nil {
			lastErr = aerr
			outcome := "failed"
			if isTimeout(aerr) {
				outcome = "timeout"
			}
			telemetry.Metrics.ClientAttempts.WithLabelValues(outcome).Inc()
			c.logger.Warn("send message attempt failed",
				slog.String("url", target),
				slog.Int("attempt", attempt),
				slog.Int("attempts", c.maxRetries+1),
				slog.String("error", aerr.Error()),
			)
			return aerr
		}
		telemetry.Metrics.ClientAttempts.WithLabelValues("ok").Inc()
		resp = out
		return nil
	}
	notify := func(_ error, wait time.Duration) {
		telemetry.Metrics.ClientRetries.WithLabelValues(c.caller).Inc()
		c.logger.Info("retrying", slog.String("url", target), slog.Duration("wait", wait))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(retrySchedule(), uint64(c.maxRetries)), ctx)
	if rerr := backoff.RetryNotifyWithTimer(op, b, notify, c.timer(ctx)); rerr != nil {
		if ctx.Err() != nil || lastErr == nil {
			return nil, NewError(CodeRequestFailed, rerr.Error())
		}
		code, msg := CodeRequestFailed, lastErr.Error()
		if isTimeout(lastErr) {
			code, msg = CodeTimeout, "Timeout calling "+target
		}
		c.logger.Error("send message failed", slog.String("url", target), slog.Int("retries", c.maxRetries), slog.String("code", code))
		return nil, NewError(code, msg)
	}
	span.SetAttributes(attribute.Int("a2a.attempts", attempt))
	return resp, nil
}

func (c *Client) post(ctx context.Context, target string, body []byte, timeout time.Duration) (*SendMessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var out SendMessageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", target, err)
	}
	c.msgLog.Record(msglog.Incoming, c.caller, json.RawMessage(raw))
	return &out, nil
}

// GetTask fetches a task by id with a single attempt.
func (c *Client) GetTask(ctx context.Context, agentURL, taskID string, timeout time.Duration) (*Task, error) {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	target := strings.TrimRight(agentURL, "/") + "/tasks/" + url.PathEscape(taskID)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.msgLog.Record(msglog.Outgoing, c.caller, map[string]string{"task_id": taskID})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewError(CodeRequestFailed, err.Error())
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, NewError(CodeRequestFailed, err.Error())
	}

	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, NewError(CodeRequestFailed, fmt.Sprintf("decoding task from %s: %v", target, err))
	}
	c.msgLog.Record(msglog.Incoming, c.caller, json.RawMessage(raw))
	return &task, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(req, resp.Status, raw)
	}
	return raw, nil
}

func statusError(req *http.Request, status string, body []byte) error {
	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != nil {
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL, status, er.Error.Message)
	}
	return fmt.Errorf("%s %s: %s", req.Method, req.URL, status)
}

// retrySchedule waits 2^(n+1) seconds before retry n.
func retrySchedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	return b
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// timer returns nil when no Sleep was configured so backoff uses its own.
func (c *Client) timer(ctx context.Context) backoff.Timer {
	if c.sleep == nil {
		return nil
	}
	return &sleepTimer{ctx: ctx, sleep: c.sleep}
}

// sleepTimer runs backoff waits through a Sleep func. The wait happens in
// Start; C only fires when the sleep completed.
type sleepTimer struct {
	ctx   context.Context
	sleep func(ctx context.Context, d time.Duration) error
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	if err := t.sleep(t.ctx, d); err == nil {
		t.c <- time.Now()
	}
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }
