package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"outage_bot/internal/filter"
	"outage_bot/internal/model"
	"outage_bot/internal/scheduler"
)

func (b *Bot) handleGroupCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.replyHTML(ctx, chatID, groupHelp)
	case "addkw":
		b.handleAddKeyword(ctx, chatID, args)
	case "delkw":
		b.handleDeleteKeyword(ctx, chatID, args)
	case "listkw":
		b.handleListKeywords(ctx, chatID)
	case "check":
		b.handleCheck(ctx, chatID)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	if err := b.store.UpsertChat(ctx, chatID); err != nil {
		b.log.Error("register chat", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("خطا: %v", err))
		return
	}
	b.log.Info("group registered", "chat_id", chatID)
	b.reply(ctx, chatID, "ربات برای این گروه فعال شد. برای راهنما: /help")
}

func (b *Bot) handleAddKeyword(ctx context.Context, chatID int64, kw string) {
	if kw == "" {
		b.reply(ctx, chatID, "استفاده: /addkw <کلیدواژه>")
		return
	}

	added, err := b.addKeyword(ctx, chatID, kw)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("خطا: %v", err))
		return
	}
	if !added {
		b.reply(ctx, chatID, "از قبل وجود دارد یا نامعتبر بود.")
		return
	}

	n, err := b.checker.CheckNow(ctx, chatID, []string{kw})
	switch {
	case errors.Is(err, scheduler.ErrNoSections):
		b.reply(ctx, chatID, "افزوده شد ✅\n(موردی در صفحه یافت نشد)")
	case err != nil:
		b.log.Error("immediate check", "chat_id", chatID, "keyword", kw, "error", err)
		b.reply(ctx, chatID, "افزوده شد ✅\n(بررسی فوری ناموفق بود)")
	case n > 0:
		b.reply(ctx, chatID, fmt.Sprintf("افزوده شد ✅\n%d مورد مطابق «%s» ارسال شد.", n, kw))
	default:
		b.reply(ctx, chatID, fmt.Sprintf("افزوده شد ✅\n(موردی مطابق «%s» پیدا نشد)", kw))
	}
}

// addKeyword registers the chat if needed and stores the keyword.
func (b *Bot) addKeyword(ctx context.Context, chatID int64, kw string) (bool, error) {
	if err := b.store.UpsertChat(ctx, chatID); err != nil {
		b.log.Error("register chat", "chat_id", chatID, "error", err)
		return false, err
	}
	added, err := b.store.AddKeyword(ctx, chatID, kw)
	if err != nil {
		b.log.Error("add keyword", "chat_id", chatID, "keyword", kw, "error", err)
		return false, err
	}
	if added {
		b.log.Info("keyword added", "chat_id", chatID, "keyword", kw)
	}
	return added, nil
}

func (b *Bot) handleDeleteKeyword(ctx context.Context, chatID int64, kw string) {
	if kw == "" {
		b.reply(ctx, chatID, "استفاده: /delkw <کلیدواژه>")
		return
	}

	deleted, err := b.store.DeleteKeyword(ctx, chatID, kw)
	if err != nil {
		b.log.Error("delete keyword", "chat_id", chatID, "keyword", kw, "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("خطا: %v", err))
		return
	}
	if !deleted {
		b.reply(ctx, chatID, "پیدا نشد.")
		return
	}
	b.log.Info("keyword deleted", "chat_id", chatID, "keyword", kw)
	b.reply(ctx, chatID, "حذف شد ✅")
}

func (b *Bot) handleListKeywords(ctx context.Context, chatID int64) {
	kws, err := b.store.ListKeywords(ctx, chatID)
	if err != nil {
		b.log.Error("list keywords", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("خطا: %v", err))
		return
	}
	if len(kws) == 0 {
		b.reply(ctx, chatID, FormatKeywordList(kws))
		return
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, FormatKeywordList(kws))
	msg.ReplyMarkup = keywordKeyboard(kws)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send keyword list", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64) {
	kws, err := b.store.ListKeywords(ctx, chatID)
	if err != nil {
		b.log.Error("list keywords", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("خطا: %v", err))
		return
	}
	if len(kws) == 0 {
		b.reply(ctx, chatID, "کلیدواژه\u200cای ثبت نشده.")
		return
	}

	n, err := b.checker.CheckNow(ctx, chatID, model.KeywordValues(kws))
	var deliveryErr *filter.DeliveryError
	switch {
	case errors.Is(err, scheduler.ErrNoSections):
		b.reply(ctx, chatID, "موردی یافت نشد.")
	case errors.As(err, &deliveryErr):
		b.log.Error("check", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("خطا: %v", deliveryErr.Err))
	case err != nil:
		b.log.Error("check: crawl failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("خطا در دریافت داده: %v", err))
	case n == 0:
		b.reply(ctx, chatID, "موردی مطابق کلیدواژه\u200cها پیدا نشد.")
	}
}
