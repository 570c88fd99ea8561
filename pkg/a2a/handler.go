package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/igorsilveira/weeklypreview/pkg/msglog"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const maxBodyBytes = 10 << 20

// Outcome is what a successful action hands back to the task lifecycle.
type Outcome struct {
	Artifact Artifact
	Summary  string
}

type ActionFunc func(ctx context.Context, req *ActionRequest) (*Outcome, error)

// Action binds a skill id to the domain operation that serves it.
type Action struct {
	Name     string
	Progress string
	Run      ActionFunc
}

// Handler serves one agent: its card, the send-message RPC and task lookup.
type Handler struct {
	router   chi.Router
	agentID  string
	card     func() AgentCard
	actions  map[string]Action
	store    *TaskStore
	msgLog   *msglog.Logger
	auditLog *audit.Logger
	logger   *slog.Logger
}

type HandlerConfig struct {
	AgentID    string
	Card       func() AgentCard
	Actions    []Action
	Store      *TaskStore
	MessageLog *msglog.Logger
	AuditLog   *audit.Logger
	Logger     *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Store == nil {
		cfg.Store = NewTaskStore()
	}
	actions := make(map[string]Action, len(cfg.Actions))
	for _, a := range cfg.Actions {
		if a.Progress == "" {
			a.Progress = fmt.Sprintf("Running %s...", a.Name)
		}
		actions[a.Name] = a
	}
	h := &Handler{
		agentID:  cfg.AgentID,
		card:     cfg.Card,
		actions:  actions,
		store:    cfg.Store,
		msgLog:   cfg.MessageLog,
		auditLog: cfg.AuditLog,
		logger:   cfg.Logger,
	}
	h.buildRouter()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) Store() *TaskStore {
	return h.store
}

func (h *Handler) buildRouter() {
	r := chi.NewRouter()
	r.Get(AgentCardPath, h.handleAgentCard)
	r.Post("/message/send", h.handleSendMessage)
	r.Get("/tasks/{id}", h.handleGetTask)
	r.Post("/rpc", h.handleJSONRPC)
	h.router = r
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.card())
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: NewError(CodeInvalidMessage, "unreadable request body")})
		return
	}
	h.msgLog.Record(msglog.Incoming, h.agentID, json.RawMessage(raw))

	task, perr := h.Send(r.Context(), raw)
	if perr != nil {
		h.logger.Error("invalid send message request", slog.String("error", perr.Message))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: perr})
		return
	}

	resp := SendMessageResponse{Task: task}
	h.msgLog.Record(msglog.Outgoing, h.agentID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := h.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: NewError(CodeTaskNotFound, fmt.Sprintf("Task %s not found", id)),
		})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Send validates a raw SendMessageRequest and runs it through the task
// lifecycle. A non-nil *Error means the request never became a task.
func (h *Handler) Send(ctx context.Context, raw []byte) (*Task, *Error) {
	if verr := ValidateSendMessageRequest(raw); verr != nil {
		return nil, NewError(CodeInvalidMessage, verr.Error())
	}
	var req SendMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, NewError(CodeInvalidMessage, err.Error())
	}
	return h.process(ctx, req.Message), nil
}

func (h *Handler) process(ctx context.Context, msg Message) *Task {
	ctx, span := telemetry.StartSpan(ctx, "a2a.handle_message", attribute.String("a2a.agent", h.agentID))
	defer span.End()

	task := NewTask(msg.ContextID)
	task.History = append(task.History, msg)
	h.store.Put(task)
	h.auditLogEvent(ctx, audit.EventA2ATaskNew, task.ID, "")
	span.SetAttributes(attribute.String("a2a.task_id", task.ID))

	req, ok := ExtractAction(msg)
	if !ok {
		return h.fail(ctx, task, "No action parameters found in message.")
	}
	span.SetAttributes(attribute.String("a2a.action", req.Action))

	action, ok := h.actions[req.Action]
	if !ok {
		return h.fail(ctx, task, fmt.Sprintf("Unsupported action %q.", req.Action))
	}

	task.Status = NewTaskStatus(TaskStateWorking, NewAgentText(action.Progress))
	h.store.Put(task)

	start := time.Now()
	out, err := h.run(ctx, action, req)
	telemetry.Metrics.TaskDuration.WithLabelValues(h.agentID, action.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error("action failed",
			slog.String("action", action.Name),
			slog.String("task_id", task.ID),
			slog.String("error", err.Error()),
		)
		return h.fail(ctx, task, "Error: "+err.Error())
	}

	task.Artifacts = []Artifact{out.Artifact}
	task.Status = NewTaskStatus(TaskStateCompleted, NewAgentText(out.Summary))
	h.store.Put(task)
	telemetry.Metrics.TasksTotal.WithLabelValues(h.agentID, string(TaskStateCompleted)).Inc()
	h.auditLogEvent(ctx, audit.EventA2ATaskDone, task.ID, action.Name)
	return task
}

func (h *Handler) run(ctx context.Context, action Action, req *ActionRequest) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out, err = action.Run(ctx, req)
	if err == nil && out == nil {
		err = errors.New("action produced no result")
	}
	return out, err
}

func (h *Handler) fail(ctx context.Context, task *Task, text string) *Task {
	task.Status = NewTaskStatus(TaskStateFailed, NewAgentText(text))
	h.store.Put(task)
	telemetry.Metrics.TasksTotal.WithLabelValues(h.agentID, string(TaskStateFailed)).Inc()
	h.auditLogEvent(ctx, audit.EventA2ATaskFail, task.ID, text)
	return task
}

func (h *Handler) auditLogEvent(ctx context.Context, eventType, taskID, detail string) {
	if h.auditLog == nil {
		return
	}
	if err := h.auditLog.Log(ctx, eventType, taskID, h.agentID, "a2a", detail); err != nil {
		h.logger.Warn("audit log write failed", slog.String("error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
