package mtproto

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// historyDepth is how many recent messages are scanned for the bot's answer
const historyDepth = 10

// gotdClient implements the Client interface using gotd/td
type gotdClient struct {
	creds Credentials
	log   *zap.Logger

	mu     sync.Mutex
	active Conversation
}

// NewClient creates a new Telegram user client. No connection is made until Connect.
func NewClient(creds Credentials, log *zap.Logger) (Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(creds.SessionPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	return &gotdClient{
		creds: creds,
		log:   log.Named("mtproto"),
	}, nil
}

func (c *gotdClient) newTelegramClient() *telegram.Client {
	return telegram.NewClient(c.creds.AppID, c.creds.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.creds.SessionPath},
		Logger:         c.log.Named("gotd"),
	})
}

// Connect opens a session, checks authorization and runs fn.
// Errors raised while closing the session are logged and swallowed.
func (c *gotdClient) Connect(ctx context.Context, fn func(ctx context.Context, conv Conversation) error) error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if active != nil {
		return fn(ctx, active)
	}

	client := c.newTelegramClient()
	var (
		entered bool
		fnErr   error
	)

	c.log.Debug("[Connect] START")
	runErr := client.Run(ctx, func(ctx context.Context) error {
		entered = true

		status, err := client.Auth().Status(ctx)
		if err != nil {
			fnErr = fmt.Errorf("failed to get auth status: %w", err)
			return fnErr
		}
		if !status.Authorized {
			fnErr = ErrNotAuthorized
			return fnErr
		}

		conv := newConversation(client.API())
		c.setActive(conv)
		defer c.setActive(nil)

		fnErr = fn(ctx, conv)
		return fnErr
	})

	if fnErr != nil {
		c.log.Debug("[Connect] ERROR", zap.Error(fnErr))
		return fnErr
	}
	if runErr != nil {
		if !entered {
			c.log.Error("[Connect] ERROR connecting", zap.Error(runErr))
			return fmt.Errorf("failed to connect to telegram: %w", runErr)
		}
		c.log.Warn("[Connect] session teardown failed", zap.Error(runErr))
	}
	c.log.Debug("[Connect] SUCCESS")
	return nil
}

func (c *gotdClient) setActive(conv Conversation) {
	c.mu.Lock()
	c.active = conv
	c.mu.Unlock()
}

// CreateSession starts the client, logs in when the stored session is not
// authorized and stops again, leaving the session file behind.
func (c *gotdClient) CreateSession(ctx context.Context, prompt CodePrompt) error {
	client := c.newTelegramClient()

	codeAuth := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
		code, err := prompt(ctx)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(code), nil
	})
	flow := auth.NewFlow(
		auth.Constant(c.creds.PhoneNumber, c.creds.Password, codeAuth),
		auth.SendCodeOptions{},
	)

	c.log.Info("[CreateSession] START", zap.String("session", c.creds.SessionPath))
	err := client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("failed to authorize: %w", err)
		}
		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		c.log.Info("[CreateSession] SUCCESS", zap.Int64("user_id", self.ID), zap.String("username", self.Username))
		return nil
	})
	if err != nil {
		c.log.Error("[CreateSession] ERROR", zap.Error(err))
		return err
	}
	return nil
}

// conversation implements Conversation over a connected tg.Client
type conversation struct {
	api    *tg.Client
	sender *message.Sender
}

func newConversation(api *tg.Client) *conversation {
	return &conversation{
		api:    api,
		sender: message.NewSender(api),
	}
}

// SendText sends text to username
func (c *conversation) SendText(ctx context.Context, username, text string) error {
	if _, err := c.sender.Resolve(strings.TrimPrefix(username, "@")).Text(ctx, text); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", username, err)
	}
	return nil
}

// LastIncoming returns the answer of username to our last message
func (c *conversation) LastIncoming(ctx context.Context, username string) (string, error) {
	peer, err := c.sender.Resolve(strings.TrimPrefix(username, "@")).AsInputPeer(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", username, err)
	}

	history, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: historyDepth,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get history of %s: %w", username, err)
	}

	return replyText(historyMessages(history))
}

// replyText returns the newest incoming message that is newer than our own
// last message. messages are ordered newest first.
func replyText(messages []tg.MessageClass) (string, error) {
	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}
		if msg.Out {
			break
		}
		return msg.Message, nil
	}
	return "", ErrNoReply
}

func historyMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	default:
		return nil
	}
}
