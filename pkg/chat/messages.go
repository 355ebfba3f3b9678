package chat

import (
	"strings"
	"time"
)

// Message is one turn in a conversation. Assistant content grows while a
// response is streaming; Sources and Metadata are attached only after the
// content for that turn is final.
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Sources   []SourceRef     `json:"sources,omitempty"`
	Metadata  *AnswerMetadata `json:"metadata,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleError     = "error"
)

// SourceRef is a structured citation attached to an assistant answer.
// SourceNumber is 1-based and matches the ordinal used in the answer text
// ("Source 1", "Source 2", ...).
type SourceRef struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	DocumentType   string   `json:"document_type"`
	Jurisdiction   string   `json:"jurisdiction"`
	LawStatus      string   `json:"law_status"`
	RelevanceScore float64  `json:"relevance_score"`
	Section        string   `json:"section"`
	Citations      []string `json:"citations,omitempty"`
	ContentPreview string   `json:"content_preview,omitempty"`
	SourceNumber   int      `json:"source_number"`
	Filename       string   `json:"filename,omitempty"`
	DownloadURL    string   `json:"download_url,omitempty"`
}

// AnswerMetadata carries the safety assessment the backend returns with a
// completed answer. SafetyWarnings is opaque to this client.
type AnswerMetadata struct {
	ConfidenceScore float64        `json:"confidence_score"`
	SafetyWarnings  map[string]any `json:"safety_warnings,omitempty"`
}

func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
	}
}

func NewAssistantMessage(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewErrorMessage(content string) Message {
	return Message{
		Role:      RoleError,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsError() bool {
	return m.Role == RoleError
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}
