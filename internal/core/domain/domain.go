package domain

import (
	"fmt"
	"time"
)

// Message is a persisted chat entry. The ID is assigned by the store and is
// strictly increasing, which is what pagination and cache windows rely on.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	TextContent string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// ConversationKey is the unordered pair of participants of a dialog.
type ConversationKey struct {
	A int64
	B int64
}

// NewConversationKey canonicalizes the pair as (min, max) so both
// participants resolve to the same key regardless of who is sending.
func NewConversationKey(first, second int64) ConversationKey {
	if first > second {
		first, second = second, first
	}
	return ConversationKey{A: first, B: second}
}

// Channel is the fan-out channel name for this conversation. Sessions of
// both participants on every instance subscribe to the same channel.
func (k ConversationKey) Channel() string {
	return fmt.Sprintf("chat:%d:%d", k.A, k.B)
}
