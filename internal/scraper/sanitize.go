package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 500
)

var (
	filePrefixRe = regexp.MustCompile(`^File:`)
	imageExtRe   = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|svg|tiff?)$`)
)

// stripHTML removes markup from metadata fields the sources return as
// HTML fragments and collapses the remaining whitespace.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<>") {
		return collapseWhitespace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(s)
	}
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps a string at max runes without splitting a multi-byte
// character.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// cleanTitle normalizes a source title: drops the "File:" namespace
// prefix and file extension, turns underscores into spaces, strips
// markup and caps the length.
func cleanTitle(title string) string {
	if title == "" {
		return "Untitled"
	}
	title = filePrefixRe.ReplaceAllString(title, "")
	title = imageExtRe.ReplaceAllString(title, "")
	title = strings.ReplaceAll(title, "_", " ")
	title = stripHTML(title)
	if title == "" {
		return "Untitled"
	}
	return truncate(title, maxTitleLen)
}

func cleanDescription(s string) string {
	return truncate(stripHTML(s), maxDescriptionLen)
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
