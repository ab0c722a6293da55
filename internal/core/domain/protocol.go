package domain

import "time"

const (
	StatusOK    = "OK"
	StatusError = "error"
)

// MessageCreate is the inbound client payload on a messaging connection.
// The sender is always the authenticated user of the connection, never
// client-supplied.
type MessageCreate struct {
	RecipientID int64  `json:"recipient_id"`
	TextContent string `json:"text_content"`
}

// MessageRead is the read-only projection of a persisted message. It is what
// gets cached, published on the fan-out channel and returned from history
// queries. Status is set only on broker-relayed copies.
type MessageRead struct {
	ID          int64      `json:"id"`
	SenderID    int64      `json:"sender_id"`
	RecipientID int64      `json:"recipient_id"`
	TextContent string     `json:"text_content"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// MessageEcho is the original inbound payload echoed back to the sending
// client with an error status when the message could not be processed.
type MessageEcho struct {
	RecipientID int64  `json:"recipient_id"`
	TextContent string `json:"text_content"`
	Status      string `json:"status"`
}

// NewMessageRead builds the projection of a persisted message.
func NewMessageRead(m *Message) MessageRead {
	return MessageRead{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		TextContent: m.TextContent,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
