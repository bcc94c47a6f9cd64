package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Tiger I in Normandy", cleanTitle("File:Tiger_I_in_Normandy.jpg"))
	assert.Equal(t, "Spitfire", cleanTitle("<b>Spitfire</b>.png"))
	assert.Equal(t, "Untitled", cleanTitle(""))
	assert.Equal(t, "Untitled", cleanTitle("File:.jpg"))

	long := cleanTitle("File:" + strings.Repeat("a", 300) + ".jpg")
	assert.Len(t, long, maxTitleLen)
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "Tanks near a river.", cleanDescription("<p>Tanks near\n a   river.</p>"))
	assert.Len(t, cleanDescription(strings.Repeat("x", 1000)), maxDescriptionLen)
	assert.Empty(t, cleanDescription(""))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Someone", stripHTML(`<a href="#">Someone</a>`))
	assert.Equal(t, "plain text", stripHTML("plain   text"))
	assert.Equal(t, "a b", stripHTML("a\n\tb"))
}

func TestTruncateIsRuneSafe(t *testing.T) {
	s := strings.Repeat("ü", 10)
	out := truncate(s, 4)
	assert.Equal(t, "üüüü", out)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", coalesce("", "b", "c"))
	assert.Empty(t, coalesce("", ""))
}
