package a2a

import (
	"time"

	"github.com/google/uuid"
)

const (
	TimestampLayout = "2006-01-02T15:04:05Z"

	ProtocolBinding = "HTTP+JSON"
	ProtocolVersion = "0.3"

	defaultMediaType = "application/json"
	defaultVersion   = "1.0.0"
)

func NewID() string {
	return uuid.NewString()
}

// Timestamp formats t in UTC with second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func now() string {
	return Timestamp(time.Now())
}

func NewTextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

func NewDataPart(data any) Part {
	return Part{Kind: PartData, Data: data, MediaType: defaultMediaType}
}

func NewFilePart(url, mediaType string) Part {
	return Part{Kind: PartFile, File: &FileContent{URL: url}, MediaType: mediaType}
}

func NewRawFilePart(raw []byte, name, mediaType string) Part {
	return Part{Kind: PartFile, File: &FileContent{Raw: raw, Name: name}, MediaType: mediaType}
}

func NewMessage(role Role, parts ...Part) Message {
	return Message{
		MessageID: NewID(),
		Role:      role,
		Parts:     parts,
	}
}

// NewAgentText builds the single-text-part agent message used for status
// updates.
func NewAgentText(text string) *Message {
	m := NewMessage(RoleAgent, NewTextPart(text))
	return &m
}

func NewTaskStatus(state TaskState, msg *Message) TaskStatus {
	return TaskStatus{State: state, Timestamp: now(), Message: msg}
}

// NewTask creates a submitted task with a fresh id. A new context id is
// generated when contextID is empty.
func NewTask(contextID string) *Task {
	if contextID == "" {
		contextID = NewID()
	}
	return &Task{
		ID:        NewID(),
		ContextID: contextID,
		Status:    NewTaskStatus(TaskStateSubmitted, nil),
		Artifacts: []Artifact{},
		History:   []Message{},
		Metadata:  map[string]any{},
	}
}

func NewArtifact(name, description string, parts ...Part) Artifact {
	return Artifact{
		ArtifactID:  NewID(),
		Parts:       parts,
		Name:        name,
		Description: description,
	}
}

func NewSendMessageRequest(msg Message) SendMessageRequest {
	return SendMessageRequest{Message: msg}
}

func NewAgentCard(name, description, url, version string, skills ...AgentSkill) AgentCard {
	if version == "" {
		version = defaultVersion
	}
	if skills == nil {
		skills = []AgentSkill{}
	}
	return AgentCard{
		Name:        name,
		Description: description,
		Version:     version,
		SupportedInterfaces: []AgentInterface{{
			URL:             url,
			ProtocolBinding: ProtocolBinding,
			ProtocolVersion: ProtocolVersion,
		}},
		DefaultInputModes:  []string{defaultMediaType},
		DefaultOutputModes: []string{defaultMediaType},
		Skills:             skills,
	}
}

func NewSkill(id, name, description string, tags []string, examples ...string) AgentSkill {
	if tags == nil {
		tags = []string{}
	}
	return AgentSkill{
		ID:          id,
		Name:        name,
		Description: description,
		Tags:        tags,
		Examples:    examples,
	}
}
