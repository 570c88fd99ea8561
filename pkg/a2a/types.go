package a2a

import (
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateInputRequired TaskState = "input_required"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth_required"
)

var allStates = []TaskState{
	TaskStateSubmitted,
	TaskStateWorking,
	TaskStateCompleted,
	TaskStateFailed,
	TaskStateCanceled,
	TaskStateInputRequired,
	TaskStateRejected,
	TaskStateAuthRequired,
}

// IsTerminal reports whether no further transition can happen from s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

type PartKind string

const (
	PartText PartKind = "text"
	PartData PartKind = "data"
	PartFile PartKind = "file"
)

// Part is one unit of content. Kind selects which of the remaining fields
// carry the payload.
type Part struct {
	Kind      PartKind
	Text      string
	Data      any
	MediaType string
	File      *FileContent
	Metadata  map[string]any
}

type FileContent struct {
	URL  string
	Raw  []byte
	Name string
}

type wirePart struct {
	Type      PartKind        `json:"type"`
	Text      *string         `json:"text,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	MediaType string          `json:"media_type,omitempty"`
	URL       string          `json:"url,omitempty"`
	Raw       []byte          `json:"raw,omitempty"`
	Name      string          `json:"name,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

func (p Part) MarshalJSON() ([]byte, error) {
	w := wirePart{Type: p.Kind, Metadata: p.Metadata}
	switch p.Kind {
	case PartText:
		text := p.Text
		w.Text = &text
	case PartData:
		raw, err := json.Marshal(p.Data)
		if err != nil {
			return nil, fmt.Errorf("a2a: marshaling data part: %w", err)
		}
		w.Data = raw
		w.MediaType = p.MediaType
	case PartFile:
		if p.File != nil {
			w.URL = p.File.URL
			w.Raw = p.File.Raw
			w.Name = p.File.Name
		}
		w.MediaType = p.MediaType
	}
	return json.Marshal(w)
}

func (p *Part) UnmarshalJSON(b []byte) error {
	var w wirePart
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Part{Kind: w.Type, MediaType: w.MediaType, Metadata: w.Metadata}
	switch w.Type {
	case PartText:
		if w.Text != nil {
			p.Text = *w.Text
		}
	case PartData:
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &p.Data); err != nil {
				return fmt.Errorf("a2a: decoding data part: %w", err)
			}
		}
	case PartFile:
		p.File = &FileContent{URL: w.URL, Raw: w.Raw, Name: w.Name}
	}
	return nil
}

type Message struct {
	MessageID string         `json:"message_id"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	TaskID    string         `json:"task_id,omitempty"`
	ContextID string         `json:"context_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Text joins the payloads of all text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind != PartText || p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

type TaskStatus struct {
	State     TaskState `json:"state"`
	Timestamp string    `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
}

type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"context_id"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts"`
	History   []Message      `json:"history"`
	Metadata  map[string]any `json:"metadata"`
}

// StatusText returns the text of the current status message, if any.
func (t *Task) StatusText() string {
	if t.Status.Message == nil {
		return ""
	}
	return t.Status.Message.Text()
}

type Artifact struct {
	ArtifactID  string `json:"artifact_id"`
	Parts       []Part `json:"parts"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type AgentCard struct {
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Version             string           `json:"version"`
	SupportedInterfaces []AgentInterface `json:"supported_interfaces"`
	Capabilities        Capabilities     `json:"capabilities"`
	DefaultInputModes   []string         `json:"default_input_modes"`
	DefaultOutputModes  []string         `json:"default_output_modes"`
	Skills              []AgentSkill     `json:"skills"`
}

type AgentInterface struct {
	URL             string `json:"url"`
	ProtocolBinding string `json:"protocol_binding"`
	ProtocolVersion string `json:"protocol_version"`
}

type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"push_notifications"`
}

type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples,omitempty"`
}

// HasSkill reports whether the card advertises a skill with the given id.
func (c AgentCard) HasSkill(id string) bool {
	for _, s := range c.Skills {
		if s.ID == id {
			return true
		}
	}
	return false
}

type SendMessageRequest struct {
	Message       Message        `json:"message"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// SendMessageResponse carries either the task created for the request or a
// direct reply message.
type SendMessageResponse struct {
	Task    *Task    `json:"task,omitempty"`
	Message *Message `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error *Error `json:"error"`
}
