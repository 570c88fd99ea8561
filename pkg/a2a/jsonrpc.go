package a2a

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/igorsilveira/weeklypreview/pkg/msglog"
)

// JSON-RPC 2.0 binding of the same two verbs served over plain HTTP+JSON.
const (
	MethodSendMessage = "message/send"
	MethodGetTask     = "tasks/get"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	ErrCodeParse         = -32700
	ErrCodeInvalidReq    = -32600
	ErrCodeNotFound      = -32601
	ErrCodeInvalidParams = -32602
	ErrCodeInternal      = -32603
	ErrCodeTaskNotFound  = -32001
)

func NewJSONRPCResponse(id any, result any) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

func NewJSONRPCError(id any, code int, e *Error) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: e.Message, Data: e},
	}
}

func (h *Handler) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, NewJSONRPCError(nil, ErrCodeParse, NewError(CodeInvalidMessage, "unreadable request body")))
		return
	}
	h.msgLog.Record(msglog.Incoming, h.agentID, json.RawMessage(raw))

	resp := h.dispatchRPC(r, raw)
	h.msgLog.Record(msglog.Outgoing, h.agentID, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) dispatchRPC(r *http.Request, raw []byte) JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewJSONRPCError(nil, ErrCodeParse, NewError(CodeInvalidMessage, "parse error"))
	}
	if req.JSONRPC != "2.0" {
		return NewJSONRPCError(req.ID, ErrCodeInvalidReq, NewError(CodeInvalidMessage, "invalid jsonrpc version"))
	}

	switch req.Method {
	case MethodSendMessage:
		task, perr := h.Send(r.Context(), req.Params)
		if perr != nil {
			return NewJSONRPCError(req.ID, ErrCodeInvalidParams, perr)
		}
		return NewJSONRPCResponse(req.ID, SendMessageResponse{Task: task})
	case MethodGetTask:
		var params struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewJSONRPCError(req.ID, ErrCodeInvalidParams, NewError(CodeInvalidMessage, "invalid params"))
		}
		task, err := h.store.Get(params.ID)
		if err != nil {
			return NewJSONRPCError(req.ID, ErrCodeTaskNotFound, NewError(CodeTaskNotFound, fmt.Sprintf("Task %s not found", params.ID)))
		}
		return NewJSONRPCResponse(req.ID, task)
	default:
		return NewJSONRPCError(req.ID, ErrCodeNotFound, NewError(CodeUnsupportedOperation, fmt.Sprintf("method %q not found", req.Method)))
	}
}
