package gateway

import "time"

// InboundPayload is the raw webhook body delivered by the messaging gateway.
// The gateway is loose about which fields are present per content type; the
// normalizer degrades gracefully instead of rejecting.
type InboundPayload struct {
	From      string `json:"from"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	PushName  string `json:"push_name"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Filename  string `json:"filename"`
}

// Inbound is the canonical inbound message the pipeline works with.
type Inbound struct {
	From        string
	ChatID      string
	DisplayName string
	Body        string
	ExternalID  string
	Timestamp   time.Time
}

// SendResult is the gateway's acknowledgment of an outbound send. ExternalID
// may be empty; correlation is best-effort.
type SendResult struct {
	ExternalID string `json:"message_id"`
}
