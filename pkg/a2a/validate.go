package a2a

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// The Validate functions accept a typed entity, a generic JSON value or raw
// JSON bytes. They return nil when v is well formed and a *ValidationError
// naming the first violation otherwise. Checks run in a fixed order so the
// message is deterministic.

func ValidatePart(v any) error {
	return check(v, "Part", validatePart)
}

func ValidateMessage(v any) error {
	return check(v, "Message", validateMessage)
}

func ValidateTaskStatus(v any) error {
	return check(v, "TaskStatus", validateTaskStatus)
}

func ValidateTask(v any) error {
	return check(v, "Task", validateTask)
}

func ValidateSendMessageRequest(v any) error {
	return check(v, "SendMessageRequest", validateSendMessageRequest)
}

func ValidateAgentCard(v any) error {
	return check(v, "AgentCard", validateAgentCard)
}

func check(v any, entity string, fn func(map[string]any) string) error {
	obj, ok := normalize(v)
	if !ok {
		return &ValidationError{Message: entity + " must be a JSON object."}
	}
	if msg := fn(obj); msg != "" {
		return &ValidationError{Message: msg}
	}
	return nil
}

func normalize(v any) (map[string]any, bool) {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return nil, false
	case []byte:
		raw = x
	case json.RawMessage:
		raw = x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, false
		}
		raw = b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	obj, ok := out.(map[string]any)
	return obj, ok
}

func validatePart(p map[string]any) string {
	kind, _ := p["type"].(string)
	_, hasType := p["type"]
	switch {
	case !hasType:
		return "Part must include 'type' field."
	case kind == string(PartText):
		if !has(p, "text") {
			return "TextPart must include 'text' field."
		}
	case kind == string(PartData):
		if !has(p, "data") {
			return "DataPart must include 'data' field."
		}
	case kind == string(PartFile):
		if !has(p, "url") && !has(p, "raw") {
			return "FilePart must include 'url' or 'raw' field."
		}
		if raw, ok := p["raw"]; ok && raw != nil {
			s, isStr := raw.(string)
			if _, err := base64.StdEncoding.DecodeString(s); !isStr || err != nil {
				return "FilePart 'raw' must be base64-encoded bytes."
			}
		}
	default:
		return fmt.Sprintf("Unknown part type: %v", p["type"])
	}
	return ""
}

func validateMessage(m map[string]any) string {
	if !present(m, "message_id") {
		return "Message must include 'message_id'."
	}
	role, _ := m["role"].(string)
	if role != string(RoleUser) && role != string(RoleAgent) {
		return fmt.Sprintf("Message 'role' must be one of [user, agent], got: %s", describe(m["role"]))
	}
	parts, ok := m["parts"].([]any)
	if !ok || len(parts) == 0 {
		return "Message 'parts' must be a non-empty list."
	}
	for i, raw := range parts {
		part, ok := raw.(map[string]any)
		if !ok {
			return fmt.Sprintf("parts[%d]: Part must be a JSON object.", i)
		}
		if msg := validatePart(part); msg != "" {
			return fmt.Sprintf("parts[%d]: %s", i, msg)
		}
	}
	return ""
}

func validateTaskStatus(s map[string]any) string {
	state, _ := s["state"].(string)
	if !knownState(state) {
		names := make([]string, len(allStates))
		for i, st := range allStates {
			names[i] = string(st)
		}
		return fmt.Sprintf("TaskStatus 'state' must be one of [%s], got: %s",
			strings.Join(names, ", "), describe(s["state"]))
	}
	if !present(s, "timestamp") {
		return "TaskStatus must include 'timestamp'."
	}
	return ""
}

func validateTask(t map[string]any) string {
	if !present(t, "id") {
		return "Task must include 'id'."
	}
	if !present(t, "context_id") {
		return "Task must include 'context_id'."
	}
	status, ok := t["status"].(map[string]any)
	if !ok || len(status) == 0 {
		return "Task must include 'status'."
	}
	if msg := validateTaskStatus(status); msg != "" {
		return "Task status: " + msg
	}
	return ""
}

func validateSendMessageRequest(r map[string]any) string {
	msg, ok := r["message"].(map[string]any)
	if !ok || len(msg) == 0 {
		return "SendMessageRequest must include 'message'."
	}
	return validateMessage(msg)
}

func validateAgentCard(c map[string]any) string {
	for _, field := range []string{"name", "description", "version"} {
		if !truthy(c[field]) {
			return fmt.Sprintf("AgentCard must include '%s'.", field)
		}
	}
	ifaces, ok := c["supported_interfaces"].([]any)
	if !ok || len(ifaces) == 0 {
		return "AgentCard must include non-empty 'supported_interfaces'."
	}
	for i, raw := range ifaces {
		iface, _ := raw.(map[string]any)
		for _, field := range []string{"url", "protocol_binding", "protocol_version"} {
			if !truthy(iface[field]) {
				return fmt.Sprintf("supported_interfaces[%d] must include '%s'.", i, field)
			}
		}
	}
	skills, ok := c["skills"].([]any)
	if !ok {
		return "AgentCard must include 'skills' list."
	}
	for i, raw := range skills {
		skill, _ := raw.(map[string]any)
		for _, field := range []string{"id", "name", "description", "tags"} {
			if !has(skill, field) {
				return fmt.Sprintf("skills[%d] must include '%s'.", i, field)
			}
		}
	}
	return ""
}

func knownState(s string) bool {
	for _, st := range allStates {
		if string(st) == s {
			return true
		}
	}
	return false
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// present reports whether key holds a non-empty value.
func present(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

func describe(v any) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprint(v)
}
