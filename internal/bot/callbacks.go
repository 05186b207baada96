package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"outage_bot/internal/storage"
)

const cbDeleteKeyword = "delkw"

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		b.answer(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID

	action, idStr, found := strings.Cut(cb.Data, ":")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if !found || err != nil {
		b.answer(cb.ID, "")
		return
	}

	var userID int64
	var username string
	if cb.From != nil {
		userID, username = cb.From.ID, cb.From.UserName
	}
	b.log.Info("callback",
		"action", action,
		"id", id,
		"chat_id", chatID,
		"user_id", userID,
		"username", username,
	)

	switch action {
	case cbDeleteKeyword:
		b.handleDeleteKeywordButton(ctx, cb, chatID, id)
	default:
		b.answer(cb.ID, "")
	}
}

func (b *Bot) handleDeleteKeywordButton(ctx context.Context, cb *tgbotapi.CallbackQuery, chatID, id int64) {
	value, err := b.store.DeleteKeywordByID(ctx, chatID, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.answer(cb.ID, "پیدا نشد.")
		return
	case err != nil:
		b.log.Error("delete keyword", "chat_id", chatID, "id", id, "error", err)
		b.answer(cb.ID, "خطا")
		return
	}
	b.log.Info("keyword deleted", "chat_id", chatID, "keyword", value)
	b.answer(cb.ID, "«"+value+"» حذف شد ✅")

	kws, err := b.store.ListKeywords(ctx, chatID)
	if err != nil {
		b.log.Error("list keywords", "chat_id", chatID, "error", err)
		return
	}

	text := FormatKeywordList(kws)
	var edit tgbotapi.Chattable
	if len(kws) == 0 {
		edit = tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, text)
	} else {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, text, keywordKeyboard(kws))
	}
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("refresh keyword list", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Error("answer callback", "error", err)
	}
}
