package a2a

import (
	"encoding/json"
	"fmt"
)

// ActionRequest is the {action, parameters} envelope carried in a data part.
// It is how a caller names the skill it wants an agent to run.
type ActionRequest struct {
	Action     string          `json:"action"`
	Parameters json.RawMessage `json:"parameters"`
}

// NewActionPart wraps action and params into a data part.
func NewActionPart(action string, params any) Part {
	if params == nil {
		params = map[string]any{}
	}
	return NewDataPart(map[string]any{
		"action":     action,
		"parameters": params,
	})
}

// NewActionRequest builds a user SendMessageRequest carrying one action part.
func NewActionRequest(action string, params any) SendMessageRequest {
	return NewSendMessageRequest(NewMessage(RoleUser, NewActionPart(action, params)))
}

// ExtractAction returns the first data part of msg whose payload is an
// object holding both "action" and "parameters".
func ExtractAction(msg Message) (*ActionRequest, bool) {
	for _, p := range msg.Parts {
		if p.Kind != PartData {
			continue
		}
		obj, ok := p.Data.(map[string]any)
		if !ok {
			continue
		}
		action, hasAction := obj["action"]
		params, hasParams := obj["parameters"]
		if !hasAction || !hasParams {
			continue
		}
		name, _ := action.(string)
		raw, err := json.Marshal(params)
		if err != nil {
			continue
		}
		return &ActionRequest{Action: name, Parameters: raw}, true
	}
	return nil, false
}

// Bind decodes the parameters into v.
func (a *ActionRequest) Bind(v any) error {
	if len(a.Parameters) == 0 || string(a.Parameters) == "null" {
		return nil
	}
	if err := json.Unmarshal(a.Parameters, v); err != nil {
		return fmt.Errorf("invalid parameters for %s: %w", a.Action, err)
	}
	return nil
}

// DataAs re-decodes a data part payload into v.
func DataAs(p Part, v any) error {
	raw, err := json.Marshal(p.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
