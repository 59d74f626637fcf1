package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cheque-bot/external_resource/mtproto"
	"cheque-bot/internal/domain"

	"go.uber.org/zap"
)

// chatRepository implements ChatRepository using a Telegram user client
type chatRepository struct {
	client     mtproto.Client
	sendDelay  time.Duration
	replyDelay time.Duration
	log        *zap.Logger
}

// NewChatRepository creates a new chat repository. sendDelay is waited after
// connecting, replyDelay after sending, to give the bot time to answer.
func NewChatRepository(client mtproto.Client, sendDelay, replyDelay time.Duration, log *zap.Logger) ChatRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &chatRepository{
		client:     client,
		sendDelay:  sendDelay,
		replyDelay: replyDelay,
		log:        log.Named("chat"),
	}
}

// Exchange sends the /start command and reads the reply
func (r *chatRepository) Exchange(ctx context.Context, profile domain.BotProfile, code domain.Code) (string, error) {
	r.log.Info("[Exchange] START", zap.String("bot", profile.Handle), zap.String("code", string(code)))

	var reply string
	err := r.client.Connect(ctx, func(ctx context.Context, conv mtproto.Conversation) error {
		if err := sleep(ctx, r.sendDelay); err != nil {
			return err
		}
		if err := conv.SendText(ctx, profile.Handle, profile.Command(code)); err != nil {
			return err
		}
		if err := sleep(ctx, r.replyDelay); err != nil {
			return err
		}

		text, err := conv.LastIncoming(ctx, profile.Handle)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if errors.Is(err, mtproto.ErrNoReply) {
		r.log.Warn("[Exchange] no reply", zap.String("bot", profile.Handle))
		return "", nil
	}
	if err != nil {
		r.log.Error("[Exchange] ERROR", zap.String("bot", profile.Handle), zap.Error(err))
		return "", fmt.Errorf("failed to talk to %s: %w", profile.Handle, err)
	}
	r.log.Info("[Exchange] SUCCESS", zap.String("bot", profile.Handle), zap.Int("reply_len", len(reply)))

	return reply, nil
}

// CreateSession logs the account in
func (r *chatRepository) CreateSession(ctx context.Context, prompt func(ctx context.Context) (string, error)) error {
	return r.client.CreateSession(ctx, prompt)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
