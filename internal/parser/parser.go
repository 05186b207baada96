// Package parser turns the outage announcement page into an ordered list of
// sections. It works on already fetched markup and never touches the network.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"outage_bot/internal/model"
	"outage_bot/internal/textnorm"
)

const (
	lastUpdateSelector    = "#LastUpdatePortalCtrl"
	announceTitleSelector = "span.ItemTitle.AnnTitle"
	lineSelector          = "p, li"
)

// containerSelectors are tried in order; the first match holds the
// announcement text. Without a match the whole document is used.
var containerSelectors = []string{
	"div.AnnDescription",
	"div.dp-module-content",
}

// Words that mark the first line of a section.
const (
	hourWord   = "ساعت"
	outageWord = "قطعی"
	powerWord  = "برق"
)

var timestampRe = regexp.MustCompile(`\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}`)

// Parse extracts the last update stamp, the announcement date and the
// outage sections from the page markup. Missing markers are not errors:
// they produce empty fields or zero sections.
func Parse(markup string) (*model.CrawlResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	res := &model.CrawlResult{
		LastUpdate: lastUpdate(doc),
		Sections:   SplitSections(extractLines(doc)),
	}
	res.AnnounceDisplay, res.AnnounceKey = announceDate(doc)
	return res, nil
}

func lastUpdate(doc *goquery.Document) string {
	node := doc.Find(lastUpdateSelector).First()
	if node.Length() == 0 {
		return ""
	}
	text := textnorm.CleanText(nodeText(node))
	if ts := timestampRe.FindString(textnorm.NormalizeDigits(text)); ts != "" {
		return ts
	}
	return text
}

func announceDate(doc *goquery.Document) (display, key string) {
	doc.Find(announceTitleSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		d, k, ok := textnorm.ExtractAnnounceDate(textnorm.CleanText(nodeText(s)))
		if !ok {
			return true
		}
		display, key = d, k
		return false
	})
	return display, key
}

func container(doc *goquery.Document) *goquery.Selection {
	for _, sel := range containerSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	return doc.Selection
}

// extractLines returns the cleaned paragraph and list item texts of the
// content container in document order, each line kept once.
func extractLines(doc *goquery.Document) []string {
	var lines []string
	seen := make(map[string]bool)

	container(doc).Find(lineSelector).Each(func(_ int, s *goquery.Selection) {
		line := textnorm.StripDecorPrefix(textnorm.CleanText(nodeText(s)))
		if line == "" || seen[line] {
			return
		}
		seen[line] = true
		lines = append(lines, line)
	})
	return lines
}

// IsSectionStart reports whether a line opens a new outage section.
func IsSectionStart(line string) bool {
	return strings.Contains(line, hourWord) &&
		(strings.Contains(line, outageWord) || strings.Contains(line, powerWord))
}

// SplitSections groups lines into sections. Lines before the first section
// start have nothing to attach to and are dropped.
func SplitSections(lines []string) []model.Section {
	var sections []model.Section
	for _, line := range lines {
		if IsSectionStart(line) {
			sections = append(sections, model.Section{Title: line})
			continue
		}
		if len(sections) == 0 {
			continue
		}
		last := &sections[len(sections)-1]
		last.Body = append(last.Body, line)
	}
	return sections
}

// nodeText joins the trimmed descendant text nodes with single spaces.
func nodeText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
