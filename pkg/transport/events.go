package transport

import "time"

// EventType identifies the kind of a streamed event.
type EventType string

const (
	EventContent  EventType = "content"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is a single server-sent event from the chat stream.
type Event struct {
	Type      EventType
	Content   string           // incremental answer text for content events
	Response  *CompletePayload // final payload for complete events
	Err       error            // transport or backend error for error events
	StreamID  string
	Timestamp time.Time
}

// CompletePayload is the structured payload delivered once an answer has
// finished streaming.
type CompletePayload struct {
	Answer          string          `json:"answer,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
	SafetyWarnings  map[string]any  `json:"safety_warnings,omitempty"`
	Metadata        PayloadMetadata `json:"metadata"`
	ModelUsed       string          `json:"model_used,omitempty"`
	Timestamp       string          `json:"timestamp,omitempty"`
}

// PayloadMetadata holds the retrieval details attached to a completed answer.
type PayloadMetadata struct {
	SourceDocuments []RawSource `json:"source_documents,omitempty"`
	CitationsFound  []string    `json:"citations_found,omitempty"`
}

// RawSource is a source descriptor exactly as the backend emits it. Fields
// are optional and duck-typed on the wire; normalization into a SourceRef
// happens in the session manager.
type RawSource struct {
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title,omitempty"`
	ModuleTitle    string   `json:"module_title,omitempty"`
	DocumentType   string   `json:"document_type,omitempty"`
	Jurisdiction   string   `json:"jurisdiction,omitempty"`
	LawStatus      string   `json:"law_status,omitempty"`
	RelevanceScore float64  `json:"relevance_score,omitempty"`
	Section        string   `json:"section,omitempty"`
	Citations      []string `json:"citations,omitempty"`
	ContentPreview string   `json:"content_preview,omitempty"`
	SourceNumber   int      `json:"source_number,omitempty"`
	FileName       string   `json:"file_name,omitempty"`
	DownloadURL    string   `json:"download_url,omitempty"`
}
