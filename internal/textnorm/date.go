package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// announceMarker introduces the announcement date in a title ("dated").
const announceMarker = "مورخ"

// Months lists the solar-Hijri month names, Farvardin first.
var Months = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

var monthNumbers = func() map[string]int {
	m := make(map[string]int, len(Months))
	for i, name := range Months {
		m[name] = i + 1
	}
	return m
}()

// ordinalDays maps compacted ordinal day words to day numbers. Keys have
// spaces, ZWNJ and tatweel removed, so "بیست و دوم", "بیست<ZWNJ>ودوم" and
// "بیستودوم" all resolve to the same entry.
var ordinalDays = map[string]int{
	"یکم": 1,
	"اول": 1,
	"دوم": 2,
	"سوم": 3,
	"چهارم": 4,
	"پنجم": 5,
	"ششم": 6,
	"هفتم": 7,
	"هشتم": 8,
	"نهم": 9,
	"دهم": 10,
	"یازدهم": 11,
	"دوازدهم": 12,
	"سیزدهم": 13,
	"چهاردهم": 14,
	"پانزدهم": 15,
	"پونزدهم": 15,
	"شانزدهم": 16,
	"هفدهم": 17,
	"هیفدهم": 17,
	"هجدهم": 18,
	"هیجدهم": 18,
	"نوزدهم": 19,
	"بیستم": 20,
	"بیستویکم": 21,
	"بیستواول": 21,
	"بیستودوم": 22,
	"بیستوسوم": 23,
	"بیستوچهارم": 24,
	"بیستوپنجم": 25,
	"بیستوششم": 26,
	"بیستوهفتم": 27,
	"بیستوهشتم": 28,
	"بیستونهم": 29,
	"سیام": 30,
	"سیم": 30,
	"سیویکم": 31,
}

var (
	monthAlt = strings.Join(Months[:], "|")

	numericDateRe = regexp.MustCompile(announceMarker + `\s+(\d{1,2})\s+(` + monthAlt + `)\s+(?:ماه\s+)?(\d{4})`)
	ordinalDateRe = regexp.MustCompile(announceMarker + `\s+(\S+(?:\s+\S+){0,2}?)\s+(` + monthAlt + `)\s+(?:ماه\s+)?(\d{4})`)
	timestampRe   = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})`)
)

// OrdinalDay resolves a spelled-out ordinal day ("دوم", "بیست و یکم").
func OrdinalDay(word string) (int, bool) {
	day, ok := ordinalDays[compact(word)]
	return day, ok
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', zwnj, '\u200d', '\u0640', nbsp:
			return -1
		}
		return r
	}, s)
}

// ExtractAnnounceDate finds "مورخ <day> <month> [ماه] <year>" and returns
// a display string and a sortable key such as ("22 مرداد 1404",
// "J1404-05-22"). A numeric day is tried before a spelled-out one.
func ExtractAnnounceDate(text string) (display, key string, ok bool) {
	s := NormalizeDigits(CleanText(text))

	for _, m := range numericDateRe.FindAllStringSubmatch(s, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if display, key, ok := dateKey(day, m[2], m[3]); ok {
			return display, key, true
		}
	}

	for _, m := range ordinalDateRe.FindAllStringSubmatch(s, -1) {
		day, found := OrdinalDay(m[1])
		if !found {
			continue
		}
		if display, key, ok := dateKey(day, m[2], m[3]); ok {
			return display, key, true
		}
	}

	return "", "", false
}

// DateKeyFromTimestamp maps a "YYYY/MM/DD HH:MM" timestamp to the same
// display/key scheme as ExtractAnnounceDate.
func DateKeyFromTimestamp(ts string) (display, key string, ok bool) {
	m := timestampRe.FindStringSubmatch(NormalizeDigits(ts))
	if m == nil {
		return "", "", false
	}
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > len(Months) {
		return "", "", false
	}
	day, _ := strconv.Atoi(m[3])
	return dateKey(day, Months[month-1], m[1])
}

func dateKey(day int, monthName, yearStr string) (display, key string, ok bool) {
	month, found := monthNumbers[monthName]
	if !found || day < 1 || day > 31 {
		return "", "", false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", "", false
	}
	display = fmt.Sprintf("%d %s %d", day, monthName, year)
	key = fmt.Sprintf("J%04d-%02d-%02d", year, month, day)
	return display, key, true
}
