package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"outage_bot/internal/config"
	"outage_bot/internal/model"
)

const (
	maxMessageLen = 3500
	noValue       = "—"
)

var groupHelp = "دستورات گروه:\n" +
	"• /start — فعال\u200cسازی ربات برای این گروه\n" +
	"• /help — نمایش راهنما\n" +
	"• /addkw &lt;کلیدواژه&gt; — افزودن کلیدواژه برای این گروه\n" +
	"• /delkw &lt;کلیدواژه&gt; — حذف کلیدواژه\n" +
	"• /listkw — نمایش کلیدواژه\u200cهای ثبت\u200cشده\n" +
	"• /check — اجرای بررسی دستی\n" +
	"\n" +
	"جهت پیدا کردن کلید واژه باید از <a href='" + config.DefaultPageURL + "'>این صفحه</a> اقدام کنید."

const adminHelp = "دستورات مدیریت (فقط PV ادمین):\n" +
	"• /admin — نمایش این راهنما\n" +
	"• /stats — آمار کلی (آخرین کلید، تعداد گروه\u200cها، تعداد ارسال\u200cها)\n" +
	"• /lastupdate — نمایش آخرین کلید به\u200cروزرسانی ثبت\u200cشده\n" +
	"• /listchats — فهرست گروه\u200cهای ثبت\u200cشده\n" +
	"• /groups — نام و شناسه گروه\u200cها\n" +
	"• /showchat <chat_id> — نمایش وضعیت یک گروه (کلیدواژه\u200cها)\n" +
	"• /listkw_chat <chat_id> — لیست کلیدواژه\u200cهای یک گروه\n" +
	"• /addkw_chat <chat_id> <kw> — افزودن کلیدواژه برای گروه\n" +
	"• /delkw_chat <chat_id> <kw> — حذف کلیدواژه از گروه\n" +
	"• /forcecrawl — مجبور کردن دور بعدی برای بررسی به عنوان به\u200cروزرسانی جدید\n" +
	"• /dumpdb — دریافت فایل پایگاه داده (bot.db)\n" +
	"• /broadcast_all [متن] — ارسال پیام به همه گروه\u200cها\n" +
	"• /broadcast <ids> [متن] — ارسال پیام به گروه\u200cهای مشخص"

// SplitMessage packs whole lines into chunks of at most limit characters.
// When more than one chunk is produced each gets a "(part i/N)" suffix. A
// line longer than limit is kept intact in a chunk of its own.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks, buf []string
	size := 0
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line) + 1
		if size+n > limit && len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, "\n"))
			buf, size = nil, 0
		}
		buf = append(buf, line)
		size += n
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, "\n"))
	}

	if len(chunks) > 1 {
		for i := range chunks {
			chunks[i] += fmt.Sprintf("\n(بخش پیام %d/%d)", i+1, len(chunks))
		}
	}
	return chunks
}

// FormatKeywordList formats a group's keywords for /listkw.
func FormatKeywordList(kws []model.Keyword) string {
	if len(kws) == 0 {
		return "هنوز کلیدواژه\u200cای ثبت نشده."
	}
	return "کلیدواژه\u200cها:\n- " + strings.Join(model.KeywordValues(kws), "\n- ")
}

// FormatAdminKeywords formats keywords for the admin views. An empty list
// shows "(none)".
func FormatAdminKeywords(kws []model.Keyword) string {
	if len(kws) == 0 {
		return "Keywords:\n- (none)"
	}
	return "Keywords:\n- " + strings.Join(model.KeywordValues(kws), "\n- ")
}

// FormatStats renders the /stats report.
func FormatStats(lastKey string, chats int, st model.Stats) string {
	lines := []string{
		"LastUpdateKey: " + orDash(lastKey),
		fmt.Sprintf("Total chats: %d", chats),
		fmt.Sprintf("Total sent sections: %d", st.TotalSent),
		"Per chat:",
	}
	if len(st.PerChat) == 0 {
		lines = append(lines, "(none)")
	}
	for _, c := range st.PerChat {
		lines = append(lines, fmt.Sprintf("- %d: %d", c.ChatID, c.Count))
	}
	return strings.Join(lines, "\n")
}

// FormatChatLine renders one /listchats row.
func FormatChatLine(name string, chat model.Chat) string {
	return fmt.Sprintf("%s (%d) | joined=%s", name, chat.ID, chat.CreatedAt.Local().Format(time.DateTime))
}

// FormatGroups renders the /groups listing, truncated to one message.
func FormatGroups(lines []string) string {
	text := "گروه\u200cهای ثبت\u200cشده:\n" + strings.Join(lines, "\n")
	if utf8.RuneCountInString(text) > maxMessageLen {
		text = string([]rune(text)[:maxMessageLen]) + "\n..."
	}
	return text
}

func orDash(s string) string {
	if s == "" {
		return noValue
	}
	return s
}

// keywordKeyboard has one delete button per keyword.
func keywordKeyboard(kws []model.Keyword) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kws))
	for _, k := range kws {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ "+k.Value, fmt.Sprintf("%s:%d", cbDeleteKeyword, k.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
