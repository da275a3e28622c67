// Package bot routes Telegram updates into wallet operations. Handlers
// depend on the Conversation capability only, so tests and alternative
// transports plug in without touching the flow logic.
package bot

import "time"

// Button is one inline keyboard choice. Data round-trips through the
// transport and comes back via HandleCallback.
type Button struct {
	Label string
	Data  string
}

// Conversation is one inbound message plus the means to answer it.
type Conversation interface {
	// UserID identifies the sender.
	UserID() int64
	// IsPrivate reports whether the message arrived in a direct chat.
	IsPrivate() bool
	// Text is the message body with the command prefix stripped.
	Text() string

	Reply(text string) error
	// ReplyKeyboard answers with inline buttons attached.
	ReplyKeyboard(text string, buttons []Button) error
	// ReplyEphemeral answers with a message the transport deletes after ttl.
	// Used for secret material so keys do not linger in chat history.
	ReplyEphemeral(text string, ttl time.Duration) error
}
