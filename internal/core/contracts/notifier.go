package contracts

import "context"

// Notifier is the external notification channel invoked when a recipient has
// no open presence connection. Best-effort and one-way: failures are logged
// by the caller and never surfaced to the chat flow.
type Notifier interface {
	Notify(ctx context.Context, recipientID, senderID int64) error
}
