package scraper

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Term tables are curated data, not logic: each source carries a
// mapping from category slug to an ordered phrase list, highest
// precision first. Editing the yaml files changes recall without
// touching adapter code.

//go:embed terms/wikimedia.yaml
var wikimediaTermsYAML []byte

//go:embed terms/nara.yaml
var naraTermsYAML []byte

//go:embed terms/archiveorg.yaml
var archiveOrgTermsYAML []byte

// TermTable holds one source's category vocabulary.
type TermTable struct {
	// Categories maps a slug to the source's own browse identifiers
	// (e.g. Wikimedia Commons category names). Empty for sources that
	// only support free-text search.
	Categories map[string][]string `yaml:"categories"`
	// SearchTerms maps a slug to recall-widening search phrases.
	SearchTerms map[string][]string `yaml:"search_terms"`
}

// Known reports whether the slug has any entry in this table.
func (t TermTable) Known(slug string) bool {
	if _, ok := t.Categories[slug]; ok {
		return true
	}
	_, ok := t.SearchTerms[slug]
	return ok
}

func mustLoadTerms(name string, raw []byte) TermTable {
	var t TermTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		panic(fmt.Sprintf("invalid embedded term table %s: %v", name, err))
	}
	return t
}

var (
	wikimediaTerms  = mustLoadTerms("wikimedia", wikimediaTermsYAML)
	naraTerms       = mustLoadTerms("nara", naraTermsYAML)
	archiveOrgTerms = mustLoadTerms("archiveorg", archiveOrgTermsYAML)
)
