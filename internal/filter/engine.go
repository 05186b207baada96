// Package filter implements the section matching engine.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"outage_bot/internal/metrics"
	"outage_bot/internal/model"
	"outage_bot/internal/textnorm"
	"outage_bot/internal/version"
)

const (
	header      = "\u26a1\ufe0f قطعی احتمالی برق"
	datePrefix  = "📅 "
	hourPrefix  = "⏰ "
	kwPrefix    = "📌 "
	noHourRange = "—"

	// unknownHour sorts sections without a parseable start hour last.
	unknownHour = 999
)

// Ordering controls the order of sections in a notification.
type Ordering string

const (
	OrderDocument    Ordering = "document"
	OrderByStartHour Ordering = "byStartHour"
)

// ParseOrdering validates an ordering name. Empty means document order.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "", OrderDocument:
		return OrderDocument, nil
	case OrderByStartHour:
		return OrderByStartHour, nil
	}
	return "", fmt.Errorf("unknown section order %q", s)
}

// Ledger records which sections a chat has already received.
type Ledger interface {
	HasSent(ctx context.Context, chatID int64, versionKey, fingerprint string) (bool, error)
	MarkSent(ctx context.Context, chatID int64, versionKey, fingerprint, title string) error
}

// Sender delivers one logical message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Request is one matching run for one chat.
type Request struct {
	ChatID          int64
	Keywords        []string
	Sections        []model.Section
	VersionKey      string
	AnnounceDisplay string
	// Force skips the ledger lookup. Delivered sections are still recorded.
	Force bool
}

// Match is a section selected for delivery.
type Match struct {
	Section     model.Section
	Fingerprint string
	HourRange   string
	Keywords    []string
}

// DeliveryError wraps a transport failure for one chat.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to chat %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Engine matches sections against chat keywords and delivers new matches.
type Engine struct {
	ledger   Ledger
	sender   Sender
	ordering Ordering
	metrics  metrics.Recorder
	log      *slog.Logger
}

// New creates an Engine. A nil recorder disables metrics.
func New(ledger Ledger, sender Sender, ordering Ordering, rec metrics.Recorder, log *slog.Logger) *Engine {
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Engine{
		ledger:   ledger,
		sender:   sender,
		ordering: ordering,
		metrics:  rec,
		log:      log,
	}
}

// Select returns the matched sections that the chat has not received under
// req.VersionKey. Ledger read errors are logged and the section is treated
// as not yet sent.
func (e *Engine) Select(ctx context.Context, req Request) []Match {
	keywords := prepareKeywords(req.Keywords)
	if len(keywords) == 0 {
		return nil
	}

	var matches []Match
	for _, s := range Order(req.Sections, e.ordering) {
		matched := matchKeywords(sectionText(s), keywords)
		if len(matched) == 0 {
			continue
		}

		fp := version.Fingerprint(s)
		if !req.Force {
			sent, err := e.ledger.HasSent(ctx, req.ChatID, req.VersionKey, fp)
			if err != nil {
				e.log.Warn("check sent", "chat_id", req.ChatID, "version", req.VersionKey, "fingerprint", fp, "error", err)
			}
			if sent {
				e.log.Debug("skip sent", "chat_id", req.ChatID, "version", req.VersionKey, "fingerprint", fp)
				continue
			}
		}

		hr, _ := textnorm.HourRange(s.Title)
		matches = append(matches, Match{
			Section:     s,
			Fingerprint: fp,
			HourRange:   hr,
			Keywords:    matched,
		})
	}
	return matches
}

// Deliver sends all new matches as one message and records them in the
// ledger. It returns the number of sections included. When the send fails
// nothing is recorded and a *DeliveryError is returned.
func (e *Engine) Deliver(ctx context.Context, req Request) (int, error) {
	matches := e.Select(ctx, req)
	if len(matches) == 0 {
		return 0, nil
	}

	text := FormatBatch(req.AnnounceDisplay, matches)
	if err := e.sender.SendMessage(ctx, req.ChatID, text); err != nil {
		e.metrics.IncDeliveryFailure()
		return 0, &DeliveryError{ChatID: req.ChatID, Err: err}
	}

	for _, m := range matches {
		if err := e.ledger.MarkSent(ctx, req.ChatID, req.VersionKey, m.Fingerprint, m.Section.Title); err != nil {
			e.metrics.IncLedgerFailure()
			e.log.Warn("mark sent", "chat_id", req.ChatID, "version", req.VersionKey, "fingerprint", m.Fingerprint, "error", err)
		}
	}

	e.metrics.AddDelivered(len(matches))
	e.log.Info("batched send", "chat_id", req.ChatID, "sections", len(matches))
	return len(matches), nil
}

// FormatBatch renders matches as one notification text.
func FormatBatch(announce string, matches []Match) string {
	lines := []string{header}
	if announce != "" {
		lines = append(lines, datePrefix+announce)
	}
	lines = append(lines, "")

	for _, m := range matches {
		hr := m.HourRange
		if hr == "" {
			hr = noHourRange
		}
		lines = append(lines, hourPrefix+hr)
		for _, kw := range displayKeywords(m.Keywords) {
			lines = append(lines, kwPrefix+kw)
		}
		lines = append(lines, "")
	}

	return strings.TrimRightFunc(strings.Join(lines, "\n"), unicode.IsSpace)
}

// Order returns the sections in the requested order. The input is not
// modified. Hour ordering is stable and puts sections without an hour last.
func Order(sections []model.Section, ordering Ordering) []model.Section {
	out := slices.Clone(sections)
	if ordering != OrderByStartHour {
		return out
	}
	slices.SortStableFunc(out, func(a, b model.Section) int {
		return startHour(a) - startHour(b)
	})
	return out
}

// MatchKeywords returns the keywords, in the given order, whose normalized
// form occurs in the normalized section text. Overlapping keywords are all
// reported.
func MatchKeywords(s model.Section, keywords []string) []string {
	return matchKeywords(sectionText(s), prepareKeywords(keywords))
}

type keyword struct {
	original   string
	normalized string
}

func prepareKeywords(raw []string) []keyword {
	out := make([]keyword, 0, len(raw))
	for _, k := range raw {
		if strings.TrimSpace(k) == "" {
			continue
		}
		norm := textnorm.NormalizeForMatch(k)
		if norm == "" {
			continue
		}
		out = append(out, keyword{original: k, normalized: norm})
	}
	return out
}

func matchKeywords(text string, keywords []keyword) []string {
	var matched []string
	for _, k := range keywords {
		if strings.Contains(text, k.normalized) {
			matched = append(matched, k.original)
		}
	}
	return matched
}

func sectionText(s model.Section) string {
	return textnorm.NormalizeForMatch(s.Title + "\n" + strings.Join(s.Body, "\n"))
}

func startHour(s model.Section) int {
	if h, ok := textnorm.ParseStartHour(s.Title); ok {
		return h
	}
	return unknownHour
}

// displayKeywords removes duplicates and sorts case-insensitively.
func displayKeywords(kws []string) []string {
	seen := make(map[string]bool, len(kws))
	out := make([]string, 0, len(kws))
	for _, k := range kws {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}
