package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cheque-bot/internal/domain"
	"cheque-bot/internal/usecase"
	"cheque-bot/pkg/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	redeemTimeout = 2 * time.Minute
	historyLimit  = 10
)

// sender is the part of tgbotapi.BotAPI the handlers use
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot implements handler.BotHandler for Telegram with button-based UI
type Bot struct {
	redeemUsecase usecase.RedeemUsecase
	bot           *tgbotapi.BotAPI
	api           sender
	token         string
	allowedIDs    map[int64]bool
	userStorage   storage.AllowedUserStorage
	stateManager  *StateManager
	log           *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBot creates a new Telegram bot handler. allowedUsers are the operators
// from the environment; they may also grant access with /allow. userStorage
// may be nil.
func NewBot(redeemUsecase usecase.RedeemUsecase, token string, allowedUsers []int64, userStorage storage.AllowedUserStorage, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}

	allowedIDs := make(map[int64]bool)
	for _, id := range allowedUsers {
		allowedIDs[id] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		redeemUsecase: redeemUsecase,
		token:         token,
		allowedIDs:    allowedIDs,
		userStorage:   userStorage,
		stateManager:  NewStateManager(),
		log:           log.Named("telegram"),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the bot and blocks until Stop is called
func (b *Bot) Start() error {
	bot, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = bot
	b.api = bot
	b.log.Info("Authorized on account", zap.String("username", bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil && update.Message.From != nil {
			if !b.isAuthorized(update.Message.From.ID) {
				b.log.Warn("[Bot] rejected user", zap.Int64("user_id", update.Message.From.ID))
				b.sendMessage(update.Message.Chat.ID, "⛔ You are not authorized to use this bot.")
				continue
			}
			go func(msg *tgbotapi.Message) {
				defer func() {
					if r := recover(); r != nil {
						b.log.Error("[Panic] handleMessage", zap.Any("panic", r))
					}
				}()
				b.handleMessage(msg)
			}(update.Message)
		} else if update.CallbackQuery != nil {
			if !b.isAuthorized(update.CallbackQuery.From.ID) {
				b.answerCallback(update.CallbackQuery.ID, "⛔ Not authorized")
				continue
			}
			go func(cb *tgbotapi.CallbackQuery) {
				defer func() {
					if r := recover(); r != nil {
						b.log.Error("[Panic] handleCallback", zap.Any("panic", r))
					}
				}()
				b.handleCallback(cb)
			}(update.CallbackQuery)
		}
	}

	return nil
}

// Stop stops the bot and aborts running redemptions
func (b *Bot) Stop() error {
	b.cancel()
	b.stateManager.Close()
	if b.bot != nil {
		b.bot.StopReceivingUpdates()
	}
	return nil
}

// isAuthorized checks if a user is authorized. With no operators configured
// anywhere the bot is open to everyone.
func (b *Bot) isAuthorized(userID int64) bool {
	if b.allowedIDs[userID] {
		return true
	}
	if b.userStorage == nil {
		return len(b.allowedIDs) == 0
	}
	if b.userStorage.IsUserAllowed(userID) {
		return true
	}
	if len(b.allowedIDs) > 0 {
		return false
	}
	stored, err := b.userStorage.GetAllowedUsers()
	return err == nil && len(stored) == 0
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.allowedIDs[userID]
}

// sendMessage sends a message to a chat
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMessageWithKeyboard sends a message with inline keyboard
func (b *Bot) sendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("Failed to send message with keyboard", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// editMessage edits a message
func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("[editMessage] Failed to edit message", zap.Int("message_id", messageID), zap.Error(err))
	}
}

// answerCallback answers a callback query
func (b *Bot) answerCallback(callbackID string, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.log.Warn("Failed to answer callback", zap.Error(err))
	}
}

// handleMessage handles incoming text messages
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch b.stateManager.GetCurrentStep(userID) {
	case StepAwaitCheque:
		profile := b.stateManager.GetString(userID, "profile")
		b.stateManager.ClearState(userID)
		b.redeem(chatID, profile, text)
	case StepAwaitAmount:
		b.stateManager.ClearState(userID)
		b.convert(chatID, text)
	default:
		if _, ok := domain.DetectProfile(b.redeemUsecase.Profiles(), text); ok {
			b.redeem(chatID, "", text)
			return
		}
		b.showMainMenu(chatID)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "menu", "cancel":
		b.stateManager.ClearState(userID)
		b.showMainMenu(chatID)
	case "rate":
		if args == "" {
			b.askAmount(chatID, userID)
			return
		}
		b.convert(chatID, args)
	case "redeem":
		if args == "" {
			b.sendMessage(chatID, "Usage: `/redeem <link>` or `/redeem <bot> <code>`")
			return
		}
		fields := strings.Fields(args)
		if len(fields) == 2 {
			b.redeem(chatID, fields[0], fields[1])
			return
		}
		b.redeem(chatID, "", args)
	case "history":
		b.showHistory(chatID)
	case "bots":
		b.sendMessage(chatID, formatProfiles(b.redeemUsecase.Profiles()))
	case "allow", "deny":
		b.handleAccess(chatID, userID, msg.Command(), args)
	default:
		b.showMainMenu(chatID)
	}
}

// handleCallback handles inline keyboard callbacks
func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		b.answerCallback(callback.ID, "")
		return
	}

	data := callback.Data
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	messageID := callback.Message.MessageID

	b.log.Debug("[Callback]", zap.Int64("user_id", userID), zap.String("data", data))

	// Answer callback to remove loading state
	b.answerCallback(callback.ID, "")

	action, arg, _ := strings.Cut(data, ":")
	switch action {
	case "menu":
		b.stateManager.ClearState(userID)
		b.showMainMenu(chatID)
	case "redeem":
		b.askCheque(chatID, userID, messageID, arg)
	case "rate":
		b.askAmount(chatID, userID)
	case "history":
		b.showHistory(chatID)
	case "bots":
		b.editMessage(chatID, messageID, formatProfiles(b.redeemUsecase.Profiles()), backKeyboard())
	}
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(chatID int64) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range b.redeemUsecase.Profiles() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Redeem "+p.Title, "redeem:"+p.Name),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💱 BTC to RUB", "rate"),
			tgbotapi.NewInlineKeyboardButtonData("🧾 History", "history"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤖 Supported bots", "bots"),
		),
	)

	b.sendMessageWithKeyboard(chatID, "*🏠 Main Menu*\n\nPaste a cheque link or pick an action:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) askCheque(chatID, userID int64, messageID int, profileName string) {
	profile, ok := domain.FindProfile(b.redeemUsecase.Profiles(), profileName)
	if !ok {
		b.sendMessage(chatID, formatError(domain.ErrUnknownProfile))
		return
	}

	b.stateManager.SetStep(userID, StepAwaitCheque)
	b.stateManager.SetData(userID, "profile", profile.Name)
	b.editMessage(chatID, messageID, askChequeText(profile), cancelKeyboard())
}

func (b *Bot) askAmount(chatID, userID int64) {
	b.stateManager.SetStep(userID, StepAwaitAmount)
	b.sendMessageWithKeyboard(chatID, "*💱 BTC to RUB*\n\nSend the amount in BTC, e.g. `0.0015`:", *cancelKeyboard())
}

// redeem activates cheque and reports the result. An empty profile picks
// the bot from the link.
func (b *Bot) redeem(chatID int64, profile, cheque string) {
	ctx, cancel := context.WithTimeout(b.ctx, redeemTimeout)
	defer cancel()

	b.sendMessage(chatID, "⏳ Activating cheque...")
	b.log.Info("[Bot] Redeem START", zap.Int64("chat_id", chatID), zap.String("profile", profile))

	var (
		result *domain.Result
		err    error
	)
	if profile == "" {
		if p, ok := domain.DetectProfile(b.redeemUsecase.Profiles(), cheque); ok {
			profile = p.Name
		}
		result, err = b.redeemUsecase.ActivateAuto(ctx, cheque)
	} else {
		result, err = b.redeemUsecase.Activate(ctx, profile, cheque)
	}
	if err != nil {
		b.log.Warn("[Bot] Redeem ERROR", zap.String("profile", profile), zap.Error(err))
		b.sendMessageWithKeyboard(chatID, formatError(err), *backKeyboard())
		return
	}

	b.log.Info("[Bot] Redeem SUCCESS", zap.String("profile", profile), zap.Float64("btc", result.BTC))
	b.sendMessageWithKeyboard(chatID, formatResult(profile, result), *backKeyboard())
}

func (b *Bot) convert(chatID int64, input string) {
	btc, err := parseBTC(input)
	if err != nil {
		b.sendMessage(chatID, formatError(err))
		return
	}

	rub, err := b.redeemUsecase.ToRub(b.ctx, btc)
	if err != nil {
		b.sendMessage(chatID, formatError(err))
		return
	}
	b.sendMessageWithKeyboard(chatID, formatRate(btc, rub), *backKeyboard())
}

func (b *Bot) showHistory(chatID int64) {
	entries, err := b.redeemUsecase.History(b.ctx, historyLimit)
	if err != nil {
		b.sendMessage(chatID, formatError(err))
		return
	}
	b.sendMessageWithKeyboard(chatID, formatHistory(entries), *backKeyboard())
}

// handleAccess grants or revokes access for another user. Only operators
// from the environment may do this.
func (b *Bot) handleAccess(chatID, userID int64, command, args string) {
	if !b.isAdmin(userID) || b.userStorage == nil {
		b.sendMessage(chatID, "⛔ Only operators can manage access.")
		return
	}

	target, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("Usage: `/%s <user id>`", command))
		return
	}

	if command == "allow" {
		err = b.userStorage.AddAllowedUser(target)
	} else {
		err = b.userStorage.RemoveAllowedUser(target)
	}
	if err != nil {
		b.sendMessage(chatID, formatError(err))
		return
	}

	b.log.Info("[Bot] access changed", zap.String("command", command), zap.Int64("target", target), zap.Int64("by", userID))
	b.sendMessage(chatID, fmt.Sprintf("✅ Done: `%s %d`", command, target))
}

func backKeyboard() *tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Back to Menu", "menu"),
		),
	)
	return &keyboard
}

func cancelKeyboard() *tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "menu"),
		),
	)
	return &keyboard
}
