// Package version derives the key that identifies one published edition of
// the outage page and the fingerprints of its sections.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"outage_bot/internal/model"
)

// Placeholder is shown when a key carries no human readable date.
const Placeholder = "نامشخص (شناسه محتوا)"

const signaturePrefix = "sig:"

// Source tells which page element produced a key.
type Source string

const (
	SourceAnnounce   Source = "announce"
	SourceLastUpdate Source = "last_update"
	SourceSignature  Source = "signature"
)

// Key identifies a page edition.
type Key struct {
	Value   string
	Source  Source
	Display string
}

// Transition describes how the stored key relates to the current one.
type Transition struct {
	Previous string
	Current  string
	Changed  bool
}

// Signature hashes all section titles and bodies in order. Reordering the
// sections changes the result.
func Signature(sections []model.Section) string {
	h := sha256.New()
	for _, s := range sections {
		h.Write([]byte(s.Title))
		h.Write([]byte(strings.Join(s.Body, "\n")))
	}
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))[:16]
}

// Fingerprint identifies one section independent of its position.
func Fingerprint(s model.Section) string {
	sum := sha256.Sum256([]byte(s.Title + "\n" + strings.Join(s.Body, "\n")))
	return hex.EncodeToString(sum[:])[:24]
}

// Resolve picks the version key for a crawl: the announcement date first,
// then the last update stamp, then the content signature. Display is the
// last update stamp whenever the page has one.
func Resolve(cr *model.CrawlResult) Key {
	key := Key{Display: cr.LastUpdate}
	if key.Display == "" {
		key.Display = Placeholder
	}

	switch {
	case cr.AnnounceKey != "":
		key.Value, key.Source = cr.AnnounceKey, SourceAnnounce
	case cr.LastUpdate != "":
		key.Value, key.Source = cr.LastUpdate, SourceLastUpdate
	default:
		key.Value, key.Source = Signature(cr.Sections), SourceSignature
	}
	return key
}

// Compare reports whether key differs from the previously stored value.
// An empty previous value counts as a change.
func Compare(previous string, key Key) Transition {
	return Transition{
		Previous: previous,
		Current:  key.Value,
		Changed:  previous != key.Value,
	}
}
