package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"outage_bot/internal/model"
)

func TestParseChatID(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{name: "supergroup id", args: "-1001234567890", want: -1001234567890},
		{name: "with whitespace", args: "  42  ", want: 42},
		{name: "empty", args: "", wantErr: true},
		{name: "not a number", args: "abc", wantErr: true},
		{name: "extra tokens", args: "42 43", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChatID(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseChatKeywordArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantID  int64
		wantKW  string
		wantErr bool
	}{
		{name: "single word", args: "-100 آزادی", wantID: -100, wantKW: "آزادی"},
		{name: "multi-word keyword", args: "-100 خیابان  آزادی ", wantID: -100, wantKW: "خیابان  آزادی"},
		{name: "tab separated", args: "7\tبهار", wantID: 7, wantKW: "بهار"},
		{name: "missing keyword", args: "-100", wantErr: true},
		{name: "invalid id", args: "abc آزادی", wantErr: true},
		{name: "empty", args: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, kw, err := ParseChatKeywordArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantID, id); diff != "" {
				t.Errorf("id mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantKW, kw); diff != "" {
				t.Errorf("keyword mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBroadcastArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		wantIDs  []int64
		wantText string
	}{
		{
			name:     "comma list and text",
			args:     "-100123,-100456 سلام به همه",
			wantIDs:  []int64{-100123, -100456},
			wantText: "سلام به همه",
		},
		{
			name:    "space list without text",
			args:    "-100123 -100456",
			wantIDs: []int64{-100123, -100456},
		},
		{
			name:     "mixed separators",
			args:     "1, 2 ,3 hello",
			wantIDs:  []int64{1, 2, 3},
			wantText: "hello",
		},
		{
			name:     "invalid tokens skipped",
			args:     "-100,--,5- 12 text",
			wantIDs:  []int64{-100, 12},
			wantText: "text",
		},
		{
			name:     "text starting with digits glued to letters",
			args:     "-100 2apples",
			wantIDs:  []int64{-100},
			wantText: "2apples",
		},
		{
			name:     "multi-line text kept",
			args:     "-100 line one\nline two",
			wantIDs:  []int64{-100},
			wantText: "line one\nline two",
		},
		{
			name:     "no ids",
			args:     "just text",
			wantText: "just text",
		},
		{
			name: "empty",
			args: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, text := ParseBroadcastArgs(tt.args)
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantText, text); diff != "" {
				t.Errorf("text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{
			name:  "fits in one message",
			text:  "line one\nline two",
			limit: 100,
			want:  []string{"line one\nline two"},
		},
		{
			name:  "exactly at limit",
			text:  "abcde",
			limit: 5,
			want:  []string{"abcde"},
		},
		{
			name:  "packs whole lines",
			text:  "aaaa\nbbbb\ncccc",
			limit: 10,
			want: []string{
				"aaaa\nbbbb\n(بخش پیام 1/2)",
				"cccc\n(بخش پیام 2/2)",
			},
		},
		{
			name:  "long line gets its own chunk",
			text:  "ab\n" + strings.Repeat("x", 12) + "\ncd",
			limit: 8,
			want: []string{
				"ab\n(بخش پیام 1/3)",
				strings.Repeat("x", 12) + "\n(بخش پیام 2/3)",
				"cd\n(بخش پیام 3/3)",
			},
		},
		{
			name:  "counts characters not bytes",
			text:  "آزادی\nبهار",
			limit: 10,
			want:  []string{"آزادی\nبهار"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitMessage(tt.text, tt.limit)); diff != "" {
				t.Errorf("SplitMessage() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitMessage_KeepsEveryLine(t *testing.T) {
	var lines []string
	for i := range 400 {
		lines = append(lines, fmt.Sprintf("📌 کلیدواژه شماره %d", i))
	}
	text := strings.Join(lines, "\n")

	chunks := SplitMessage(text, maxMessageLen)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	var rebuilt []string
	for i, c := range chunks {
		suffix := fmt.Sprintf("\n(بخش پیام %d/%d)", i+1, len(chunks))
		if !strings.HasSuffix(c, suffix) {
			t.Fatalf("chunk %d missing suffix %q", i, suffix)
		}
		body := strings.TrimSuffix(c, suffix)
		if n := utf8.RuneCountInString(body); n > maxMessageLen {
			t.Errorf("chunk %d has %d characters, limit %d", i, n, maxMessageLen)
		}
		rebuilt = append(rebuilt, body)
	}
	if diff := cmp.Diff(text, strings.Join(rebuilt, "\n")); diff != "" {
		t.Errorf("rebuilt text mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatKeywordList(t *testing.T) {
	if diff := cmp.Diff("هنوز کلیدواژه\u200cای ثبت نشده.", FormatKeywordList(nil)); diff != "" {
		t.Errorf("empty list mismatch (-want +got):\n%s", diff)
	}
	got := FormatKeywordList([]model.Keyword{{Value: "آزادی"}, {Value: "بهار"}})
	if diff := cmp.Diff("کلیدواژه\u200cها:\n- آزادی\n- بهار", got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatAdminKeywords(t *testing.T) {
	if diff := cmp.Diff("Keywords:\n- (none)", FormatAdminKeywords(nil)); diff != "" {
		t.Errorf("empty mismatch (-want +got):\n%s", diff)
	}
	got := FormatAdminKeywords([]model.Keyword{{Value: "Azadi"}, {Value: "بهار"}})
	if diff := cmp.Diff("Keywords:\n- Azadi\n- بهار", got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatStats(t *testing.T) {
	tests := []struct {
		name  string
		last  string
		chats int
		stats model.Stats
		want  string
	}{
		{
			name: "empty database",
			want: "LastUpdateKey: —\nTotal chats: 0\nTotal sent sections: 0\nPer chat:\n(none)",
		},
		{
			name:  "with deliveries",
			last:  "J1404-06-02",
			chats: 3,
			stats: model.Stats{
				TotalSent: 5,
				PerChat:   []model.ChatSentCount{{ChatID: -100, Count: 4}, {ChatID: -200, Count: 1}},
			},
			want: "LastUpdateKey: J1404-06-02\nTotal chats: 3\nTotal sent sections: 5\nPer chat:\n- -100: 4\n- -200: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatStats(tt.last, tt.chats, tt.stats)); diff != "" {
				t.Errorf("FormatStats() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatChatLine(t *testing.T) {
	created := time.Date(2025, 8, 24, 9, 30, 0, 0, time.Local)
	got := FormatChatLine("محله آزادی", model.Chat{ID: -100, CreatedAt: created})
	if diff := cmp.Diff("محله آزادی (-100) | joined=2025-08-24 09:30:00", got); diff != "" {
		t.Errorf("FormatChatLine() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatGroups(t *testing.T) {
	short := FormatGroups([]string{"• A (-1)", "• B (-2)"})
	if diff := cmp.Diff("گروه\u200cهای ثبت\u200cشده:\n• A (-1)\n• B (-2)", short); diff != "" {
		t.Errorf("short list mismatch (-want +got):\n%s", diff)
	}

	var lines []string
	for i := range 300 {
		lines = append(lines, fmt.Sprintf("• گروه شماره %d (-100%d)", i, i))
	}
	long := FormatGroups(lines)
	if !strings.HasSuffix(long, "\n...") {
		t.Errorf("long list not truncated: ...%s", long[len(long)-20:])
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(long, "\n...")); n != maxMessageLen {
		t.Errorf("truncated length = %d, want %d", n, maxMessageLen)
	}
}
