package subtitle

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	htmlTagRegex = regexp.MustCompile(`<[^>]+>`)
	assTagRegex  = regexp.MustCompile(`\{[^}]+\}`)
)

// Entry is a single timed subtitle line.
type Entry struct {
	// Index is the 1-based position of the entry in its source file.
	Index int `json:"index"`
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
	// Text is the dialogue as it appears in the source, markup included.
	Text string `json:"text"`
	// TextClean is Text without markup and with whitespace collapsed.
	TextClean string `json:"text_clean"`
}

// NewEntry builds an Entry, deriving TextClean from text.
func NewEntry(index int, start, end Timestamp, text string) Entry {
	return Entry{
		Index:     index,
		Start:     start,
		End:       end,
		Text:      text,
		TextClean: CleanText(text),
	}
}

// Midpoint returns the time halfway between Start and End. Frames are keyed by it.
func (e Entry) Midpoint() Timestamp {
	return (e.Start + e.End) / 2
}

// Duration returns End-Start in milliseconds, or 0 when End precedes Start.
func (e Entry) Duration() uint64 {
	if e.End < e.Start {
		return 0
	}
	return uint64(e.End - e.Start)
}

// ID returns the stable quote id for this entry within an episode, e.g. "S01E01-12345".
func (e Entry) ID(episode string) string {
	return fmt.Sprintf("%s-%d", episode, e.Midpoint())
}

// CleanText strips HTML-like and ASS override tags and collapses whitespace.
func CleanText(text string) string {
	text = htmlTagRegex.ReplaceAllString(text, "")
	text = assTagRegex.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
