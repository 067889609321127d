package domain

import "time"

// Outcome итог обработки запроса.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// CaptionEvent событие аудита, публикуется после каждого запроса к /caption.
type CaptionEvent struct {
	EventID        string    `json:"event_id"`
	RequestID      string    `json:"request_id"`
	Outcome        Outcome   `json:"outcome"`
	FailureKind    string    `json:"failure_kind,omitempty"`
	RetrievedCount int       `json:"retrieved_count"`
	RagGenerated   bool      `json:"rag_generated"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
