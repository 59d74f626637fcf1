package mtproto

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthorized means the session file holds no logged-in account; run the session command first
	ErrNotAuthorized = errors.New("telegram session is not authorized")
	// ErrNoReply means the chat has no incoming message yet
	ErrNoReply = errors.New("no incoming message in chat")
)

// Client defines the interface for a Telegram user account session
type Client interface {
	// Connect runs fn inside a connected, authorized session. The session is
	// released when fn returns; a session already connected is reused.
	Connect(ctx context.Context, fn func(ctx context.Context, conv Conversation) error) error

	// CreateSession logs the account in if needed and persists the session
	CreateSession(ctx context.Context, prompt CodePrompt) error
}

// Conversation is the set of chat calls available while connected
type Conversation interface {
	// SendText sends a plain text message to a user or bot by username
	SendText(ctx context.Context, username, text string) error

	// LastIncoming returns the text of the newest message received from username
	// after our own last message in that chat, or ErrNoReply
	LastIncoming(ctx context.Context, username string) (string, error)
}

// CodePrompt supplies the login code Telegram sent to the account
type CodePrompt func(ctx context.Context) (string, error)

// Credentials are the parameters of the Telegram user account
type Credentials struct {
	AppID       int
	AppHash     string
	PhoneNumber string
	Password    string
	SessionPath string
}
