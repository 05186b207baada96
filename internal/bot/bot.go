package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"outage_bot/internal/config"
	"outage_bot/internal/storage"
)

// sendRate keeps outbound traffic under Telegram's global bot limit.
const sendRate = 20

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Checker runs the one-off page checks requested by commands.
type Checker interface {
	CheckNow(ctx context.Context, chatID int64, keywords []string) (int, error)
	ForceNext(ctx context.Context) error
}

// Bot is the Telegram bot that handles group and admin commands and
// delivers notifications.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	cfg     *config.Config
	checker Checker
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Bot with the token and proxy from cfg.
func New(store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	client := &http.Client{}
	if cfg.TelegramProxyURL != "" {
		proxy, err := url.Parse(cfg.TelegramProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized", "username", api.Self.UserName)

	return &Bot{
		api:     api,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(sendRate), 1),
		log:     log,
	}, nil
}

// SetChecker attaches the component that serves /check and friends. It must
// be called before Run.
func (b *Bot) SetChecker(c Checker) {
	b.checker = c
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.ChannelPost != nil:
		b.handleMessage(ctx, update.ChannelPost)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.IsCommand() {
		return
	}

	switch {
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() || msg.Chat.IsChannel():
		b.handleGroupCommand(ctx, msg)
	case msg.Chat.IsPrivate() && msg.From != nil && b.cfg.IsAdmin(msg.From.ID):
		b.handleAdminCommand(ctx, msg)
	default:
		b.log.Debug("ignored command", "cmd", msg.Command(), "chat_id", msg.Chat.ID)
	}
}

// SendMessage sends text to a chat as plain text, split into parts when it
// is longer than one Telegram message.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, part := range SplitMessage(text, maxMessageLen) {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.SendMessage(ctx, chatID, text); err != nil {
		b.log.Error("reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyHTML(ctx context.Context, chatID int64, text string) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("reply", "chat_id", chatID, "error", err)
	}
}

// chatTitle resolves a display name for a chat, "?" when Telegram does not
// know it.
func (b *Bot) chatTitle(chatID int64) string {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		b.log.Debug("get chat", "chat_id", chatID, "error", err)
		return "?"
	}
	switch {
	case chat.Title != "":
		return chat.Title
	case chat.FirstName != "":
		return chat.FirstName
	}
	return "?"
}
