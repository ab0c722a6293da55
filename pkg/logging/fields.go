package logging

import "log/slog"

// Domain identifiers

func User(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

func Sender(id int64) slog.Attr {
	return slog.Int64("sender_id", id)
}

func Recipient(id int64) slog.Attr {
	return slog.Int64("recipient_id", id)
}

func MessageID(id int64) slog.Attr {
	return slog.Int64("message_id", id)
}

func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

func Session(id string) slog.Attr {
	return slog.String("session_id", id)
}

// Request / tracing

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
