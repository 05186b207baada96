package textnorm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type dateResult struct {
	Display string
	Key     string
	OK      bool
}

func TestExtractAnnounceDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want dateResult
	}{
		{
			name: "numeric day with month word",
			text: "جدول خاموشی مورخ ۲۲ مرداد ماه ۱۴۰۴",
			want: dateResult{Display: "22 مرداد 1404", Key: "J1404-05-22", OK: true},
		},
		{
			name: "ordinal day",
			text: "برنامه قطعی برق مورخ دوم شهریور ماه ۱۴۰۴",
			want: dateResult{Display: "2 شهریور 1404", Key: "J1404-06-02", OK: true},
		},
		{
			name: "without month word",
			text: "مورخ 5 دی 1403",
			want: dateResult{Display: "5 دی 1403", Key: "J1403-10-05", OK: true},
		},
		{
			name: "compound ordinal with spaces",
			text: "مورخ بیست و یکم اسفند ۱۴۰۳",
			want: dateResult{Display: "21 اسفند 1403", Key: "J1403-12-21", OK: true},
		},
		{
			name: "compound ordinal with zwnj",
			text: "مورخ بیست\u200cو\u200cدوم آبان ماه ۱۴۰۴",
			want: dateResult{Display: "22 آبان 1404", Key: "J1404-08-22", OK: true},
		},
		{
			name: "thirtieth split by zwnj",
			text: "مورخ سی\u200cام فروردین ۱۴۰۴",
			want: dateResult{Display: "30 فروردین 1404", Key: "J1404-01-30", OK: true},
		},
		{
			name: "first as awal",
			text: "مورخ اول مهر ۱۴۰۴",
			want: dateResult{Display: "1 مهر 1404", Key: "J1404-07-01", OK: true},
		},
		{
			name: "arabic-indic digits",
			text: "مورخ ١٠ تیر ماه ١٤٠٤",
			want: dateResult{Display: "10 تیر 1404", Key: "J1404-04-10", OK: true},
		},
		{
			name: "numeric preferred over later ordinal",
			text: "مورخ دوم شهریور ۱۴۰۴ و مورخ ۳ شهریور ۱۴۰۴",
			want: dateResult{Display: "3 شهریور 1404", Key: "J1404-06-03", OK: true},
		},
		{name: "missing marker", text: "۲۲ مرداد ماه ۱۴۰۴", want: dateResult{}},
		{name: "unknown month", text: "مورخ ۲۲ ژوئن ۱۴۰۴", want: dateResult{}},
		{name: "unknown ordinal", text: "مورخ چندم مرداد ۱۴۰۴", want: dateResult{}},
		{name: "day out of range", text: "مورخ ۴۵ مرداد ۱۴۰۴", want: dateResult{}},
		{name: "empty", text: "", want: dateResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, key, ok := ExtractAnnounceDate(tt.text)
			got := dateResult{Display: display, Key: key, OK: ok}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractAnnounceDate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDateKeyFromTimestamp(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want dateResult
	}{
		{
			name: "ascii timestamp",
			ts:   "1404/06/02 12:54",
			want: dateResult{Display: "2 شهریور 1404", Key: "J1404-06-02", OK: true},
		},
		{
			name: "persian digits with prefix",
			ts:   "آخرین بروزرسانی: ۱۴۰۴/۰۵/۲۲ ۰۸:۱۰",
			want: dateResult{Display: "22 مرداد 1404", Key: "J1404-05-22", OK: true},
		},
		{name: "invalid month", ts: "1404/13/02 12:54", want: dateResult{}},
		{name: "no date", ts: "12:54", want: dateResult{}},
		{name: "empty", ts: "", want: dateResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, key, ok := DateKeyFromTimestamp(tt.ts)
			got := dateResult{Display: display, Key: key, OK: ok}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DateKeyFromTimestamp() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDateKeyFormatsAgree(t *testing.T) {
	_, fromTitle, ok := ExtractAnnounceDate("مورخ دوم شهریور ماه ۱۴۰۴")
	if !ok {
		t.Fatal("expected announce date")
	}
	_, fromTimestamp, ok := DateKeyFromTimestamp("1404/06/02 12:54")
	if !ok {
		t.Fatal("expected timestamp date")
	}
	if diff := cmp.Diff(fromTitle, fromTimestamp); diff != "" {
		t.Errorf("keys differ (-title +timestamp):\n%s", diff)
	}
}

func TestOrdinalDayTable(t *testing.T) {
	seen := make(map[int]bool)
	for word, day := range ordinalDays {
		if day < 1 || day > 31 {
			t.Errorf("ordinal %q maps to %d", word, day)
		}
		seen[day] = true
	}
	for day := 1; day <= 31; day++ {
		if !seen[day] {
			t.Errorf("no ordinal word for day %d", day)
		}
	}

	got, ok := OrdinalDay("سی و یکم")
	if !ok || got != 31 {
		t.Errorf("OrdinalDay(سی و یکم) = %d, %v; want 31, true", got, ok)
	}
}
