// Package session stores per-user conversational state: a state tag plus a
// key-value bag of draft fields. Implementations must expire idle sessions
// after the configured TTL.
package session

import "context"

// State is the conversational state tag. An empty State means the user has
// no active conversation.
type State string

// Bag holds the scratch fields collected during one conversation. Empty
// values are treated as unset.
type Bag map[string]string

// Store is the session store consumed by the conversation flow. All writes
// refresh the session TTL.
type Store interface {
	// State returns the user's current state tag, or "" when none.
	State(ctx context.Context, userID string) (State, error)

	// SetState sets the user's state tag.
	SetState(ctx context.Context, userID string, s State) error

	// Data returns a copy of the user's bag.
	Data(ctx context.Context, userID string) (Bag, error)

	// Update merges partial into the user's bag. Values are stored
	// verbatim; writing "" effectively unsets a key.
	Update(ctx context.Context, userID string, partial Bag) error

	// Clear removes the user's state tag and bag.
	Clear(ctx context.Context, userID string) error
}
