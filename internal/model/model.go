// Package model defines the domain types used across the application.
package model

import "time"

// Section is one outage announcement block: the line that opened it and the
// detail lines that follow, in document order.
type Section struct {
	Title string
	Body  []string
}

// CrawlResult is everything extracted from a single fetch of the page.
// Empty strings mean the value was not found on the page.
type CrawlResult struct {
	LastUpdate      string
	Sections        []Section
	AnnounceDisplay string
	AnnounceKey     string
}

// Chat is a registered group or channel.
type Chat struct {
	ID        int64
	CreatedAt time.Time
}

// Keyword is a case-preserving match term registered by a chat.
type Keyword struct {
	ID        int64
	ChatID    int64
	Value     string
	CreatedAt time.Time
}

// SentRecord marks a section as delivered to a chat under a version key.
type SentRecord struct {
	ChatID      int64
	VersionKey  string
	Fingerprint string
	Title       string
	SentAt      time.Time
}

// ChatSentCount is the number of delivered sections for one chat.
type ChatSentCount struct {
	ChatID int64
	Count  int
}

// Stats summarizes the delivery ledger.
type Stats struct {
	TotalSent int
	PerChat   []ChatSentCount
}

// SettingLastUpdateSeen stores the version key of the last announced page.
const SettingLastUpdateSeen = "last_update_seen"

// KeywordValues returns the keyword strings in order.
func KeywordValues(kws []Keyword) []string {
	out := make([]string, 0, len(kws))
	for _, k := range kws {
		out = append(out, k.Value)
	}
	return out
}
