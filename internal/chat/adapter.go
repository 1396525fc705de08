// Package chat bridges the report workflow to chat platforms (Discord,
// Slack). Adapters translate platform events into the common Event type and
// expose the small delivery surface the workflow needs: send text, send a
// photo with a caption and buttons, edit a caption, delete a message.
package chat

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound events from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan Event, error)

	// SendText delivers a text message. topicID may be empty.
	SendText(ctx context.Context, channelID, topicID, text string, controls []Control) (MessageRef, error)

	// SendPhoto delivers a photo with a caption and optional buttons.
	SendPhoto(ctx context.Context, channelID, topicID string, photo PhotoRef, caption string, controls []Control) (MessageRef, error)

	// EditCaption replaces the caption and buttons of a delivered photo
	// message.
	EditCaption(ctx context.Context, ref MessageRef, caption string, controls []Control) error

	// DeleteMessage removes a delivered message.
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// AnswerAction acknowledges a button press with a short notice.
	// alert requests a more prominent presentation where the platform
	// supports one.
	AnswerAction(ctx context.Context, ev Event, text string, alert bool) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// UserLinker is an optional interface for adapters that can produce a
// deep link opening a direct conversation with a user.
type UserLinker interface {
	UserLink(userID string) string
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}

// EventKind classifies inbound events.
type EventKind int

const (
	// KindText is a plain text message from a user.
	KindText EventKind = iota
	// KindPhoto is a message carrying a photo (Photo is set).
	KindPhoto
	// KindAction is a button press on a message the bot sent.
	KindAction
)

// Event represents an inbound message or button press.
type Event struct {
	Kind      EventKind
	Platform  string // e.g. "discord", "slack"
	ChannelID string
	TopicID   string
	UserID    string
	UserName  string
	MessageID string    // the user's message (text/photo events)
	Text      string    // raw message text
	Photo     *PhotoRef // set for photo events
	Timestamp time.Time

	// Action fields (Kind == KindAction).
	Action     string     // action identifier of the pressed button
	CallbackID string     // platform handle for acknowledging the press
	Ref        MessageRef // the message the button was attached to
	Caption    string     // that message's current caption, if any
}

// MessageRef identifies a delivered message.
type MessageRef struct {
	ChannelID string
	TopicID   string
	MessageID string
}

// IsZero reports whether the ref identifies no message.
func (r MessageRef) IsZero() bool {
	return r.MessageID == ""
}

// PhotoRef is a platform file handle for a photo. FileID is the platform's
// identifier for re-sending without re-uploading; URL is set when the
// platform exposes a fetchable location instead.
type PhotoRef struct {
	FileID string
	URL    string
}

// Control is a button attached to a message. Action buttons carry an action
// identifier delivered back as a KindAction event; URL buttons open a link.
type Control struct {
	Label  string
	Action string
	URL    string
}
