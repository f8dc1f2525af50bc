package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeWatchDraft = "watch_draft"
	TypePing       = "ping"

	// Server -> Client
	TypeDraftUpdated = "draft_updated"
	TypeError        = "error"
	TypePong         = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type WatchDraftPayload struct {
	DraftID string `json:"draft_id"`
}

// Server Messages (outgoing)

// DraftUpdatedPayload carries what the editor preview re-renders after a mutation.
type DraftUpdatedPayload struct {
	DraftID       string         `json:"draft_id"`
	PaperID       string         `json:"paper_id,omitempty"`
	Sections      map[string]int `json:"sections"`
	GrandTotal    int            `json:"grand_total"`
	QuestionCount int            `json:"question_count"`
	Notes         []SectionNote  `json:"notes"`
	Selection     string         `json:"selection"`
}

type SectionNote struct {
	Category   string `json:"category"`
	BatchIndex int    `json:"batch_index"`
	Note       string `json:"note"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
