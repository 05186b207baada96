package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"outage_bot/internal/model"
	"outage_bot/internal/scheduler"
)

const noBroadcastText = "متنی برای ارسال پیدا نشد. یا بعد از دستور بنویسید یا روی پیام ریپلای کنید."

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Info("admin command", "cmd", cmd, "args", args, "user_id", msg.From.ID)

	switch cmd {
	case "admin", "start", "help":
		b.reply(ctx, chatID, adminHelp)
	case "stats":
		b.handleStats(ctx, chatID)
	case "lastupdate":
		b.handleLastUpdate(ctx, chatID)
	case "listchats":
		b.handleListChats(ctx, chatID)
	case "groups":
		b.handleGroups(ctx, chatID)
	case "showchat":
		b.handleShowChat(ctx, chatID, args)
	case "listkw_chat":
		b.handleListKeywordsFor(ctx, chatID, args)
	case "addkw_chat":
		b.handleAddKeywordFor(ctx, chatID, args)
	case "delkw_chat":
		b.handleDeleteKeywordFor(ctx, chatID, args)
	case "forcecrawl":
		b.handleForceCrawl(ctx, chatID)
	case "dumpdb":
		b.handleDumpDB(ctx, chatID)
	case "broadcast_all":
		b.handleBroadcastAll(ctx, msg, args)
	case "broadcast":
		b.handleBroadcast(ctx, msg, args)
	default:
		b.reply(ctx, chatID, "Unknown command. Use /admin for a list of commands.")
	}
}

func (b *Bot) lastSeen(ctx context.Context) (string, error) {
	v, _, err := b.store.GetSetting(ctx, model.SettingLastUpdateSeen)
	return v, err
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	last, err := b.lastSeen(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	st, err := b.store.Stats(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, FormatStats(last, len(chats), st))
}

func (b *Bot) handleLastUpdate(ctx context.Context, chatID int64) {
	last, err := b.lastSeen(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, "LastUpdateKey: "+orDash(last))
}

func (b *Bot) handleListChats(ctx context.Context, chatID int64) {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(chats) == 0 {
		b.reply(ctx, chatID, "No chats registered.")
		return
	}

	lines := make([]string, 0, len(chats))
	for _, c := range chats {
		lines = append(lines, FormatChatLine(b.chatTitle(c.ID), c))
	}
	b.reply(ctx, chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleGroups(ctx context.Context, chatID int64) {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(chats) == 0 {
		b.reply(ctx, chatID, "هیچ گروهی ثبت نشده.")
		return
	}

	lines := make([]string, 0, len(chats))
	for _, c := range chats {
		lines = append(lines, fmt.Sprintf("• %s (%d)", b.chatTitle(c.ID), c.ID))
	}
	b.reply(ctx, chatID, FormatGroups(lines))
}

func (b *Bot) handleShowChat(ctx context.Context, chatID int64, args string) {
	target, err := ParseChatID(args)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /showchat <chat_id>")
		return
	}
	kws, err := b.store.ListKeywords(ctx, target)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("Chat: %d\n%s", target, FormatAdminKeywords(kws)))
}

func (b *Bot) handleListKeywordsFor(ctx context.Context, chatID int64, args string) {
	target, err := ParseChatID(args)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /listkw_chat <chat_id>")
		return
	}
	kws, err := b.store.ListKeywords(ctx, target)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, FormatAdminKeywords(kws))
}

func (b *Bot) handleAddKeywordFor(ctx context.Context, chatID int64, args string) {
	target, kw, err := ParseChatKeywordArgs(args)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /addkw_chat <chat_id> <kw>")
		return
	}

	added, err := b.addKeyword(ctx, target, kw)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !added {
		b.reply(ctx, chatID, "Already exists or invalid.")
		return
	}

	n, err := b.checker.CheckNow(ctx, target, []string{kw})
	switch {
	case errors.Is(err, scheduler.ErrNoSections):
		b.reply(ctx, chatID, "Added ✅\n(No sections found)")
	case err != nil:
		b.log.Error("immediate check", "chat_id", target, "keyword", kw, "error", err)
		b.reply(ctx, chatID, "Added ✅\n(Immediate check failed)")
	case n > 0:
		b.reply(ctx, chatID, fmt.Sprintf("Added ✅\n%d section(s) sent to %d for keyword «%s».", n, target, kw))
	default:
		b.reply(ctx, chatID, fmt.Sprintf("Added ✅\n(No matches found for «%s»)", kw))
	}
}

func (b *Bot) handleDeleteKeywordFor(ctx context.Context, chatID int64, args string) {
	target, kw, err := ParseChatKeywordArgs(args)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /delkw_chat <chat_id> <kw>")
		return
	}
	deleted, err := b.store.DeleteKeyword(ctx, target, kw)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !deleted {
		b.reply(ctx, chatID, "Not found.")
		return
	}
	b.log.Info("keyword deleted", "chat_id", target, "keyword", kw)
	b.reply(ctx, chatID, "Deleted ✅")
}

func (b *Bot) handleForceCrawl(ctx context.Context, chatID int64) {
	if err := b.checker.ForceNext(ctx); err != nil {
		b.log.Error("force crawl", "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.log.Info("last update cleared")
	b.reply(ctx, chatID, "Next cycle will treat as new update. ✅")
}

func (b *Bot) handleDumpDB(ctx context.Context, chatID int64) {
	dir, err := os.MkdirTemp("", "outage-bot-dump-")
	if err != nil {
		b.log.Error("dump db: temp dir", "error", err)
		b.reply(ctx, chatID, "DB file not found.")
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "bot.db")
	if err := b.store.Backup(ctx, path); err != nil {
		b.log.Error("dump db: backup", "error", err)
		b.reply(ctx, chatID, "DB file not found.")
		return
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = "bot.db"
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("dump db: send", "error", err)
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
	}
}

func (b *Bot) handleBroadcastAll(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	text := broadcastText(msg, args)
	if text == "" {
		b.reply(ctx, chatID, noBroadcastText)
		return
	}

	chats, err := b.store.ListChats(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(chats) == 0 {
		b.reply(ctx, chatID, "هیچ گروهی ثبت نشده.")
		return
	}

	ids := make([]int64, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	ok, fail := b.broadcast(ctx, ids, text)
	b.reply(ctx, chatID, fmt.Sprintf("ارسال به همه انجام شد. موفق: %d | ناموفق: %d", ok, fail))
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	ids, inline := ParseBroadcastArgs(args)
	text := broadcastText(msg, inline)
	if text == "" {
		b.reply(ctx, chatID, noBroadcastText)
		return
	}
	if len(ids) == 0 {
		b.reply(ctx, chatID, "هیچ chat_id معتبری ارائه نشد.")
		return
	}

	ok, fail := b.broadcast(ctx, ids, text)
	b.reply(ctx, chatID, fmt.Sprintf("ارسال انجام شد. موفق: %d | ناموفق: %d", ok, fail))
}

func (b *Bot) broadcast(ctx context.Context, ids []int64, text string) (ok, fail int) {
	for _, id := range ids {
		if err := b.SendMessage(ctx, id, text); err != nil {
			b.log.Warn("broadcast", "chat_id", id, "error", err)
			fail++
			continue
		}
		ok++
	}
	b.log.Info("broadcast done", "ok", ok, "fail", fail)
	return ok, fail
}

// broadcastText prefers the inline text and falls back to the text or
// caption of the message being replied to.
func broadcastText(msg *tgbotapi.Message, inline string) string {
	if t := strings.TrimSpace(inline); t != "" {
		return t
	}
	if r := msg.ReplyToMessage; r != nil {
		if t := strings.TrimSpace(r.Text); t != "" {
			return t
		}
		return strings.TrimSpace(r.Caption)
	}
	return ""
}
