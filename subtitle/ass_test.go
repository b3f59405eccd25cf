package subtitle

import (
	"errors"
	"strings"
	"testing"
)

const assHeader = "[Script Info]\nTitle: Test\n\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

func TestParseASS(t *testing.T) {
	content := assHeader +
		"Dialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,Hello world\n" +
		"Comment: 0,0:00:04.50,0:00:04.60,Default,,0,0,0,,ignored\n" +
		"Dialogue: 0,0:00:05.00,0:00:08.50,Default,,0,0,0,,Second line\n"

	entries, err := ParseASS(content, "test.ass")
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Index != 1 || entries[0].Start != 1000 || entries[0].End != 4000 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Index != 2 || entries[1].Start != 5000 || entries[1].End != 8500 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseASSKeepsCommasInText(t *testing.T) {
	content := assHeader + "Dialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,Hello, world, how are you?\n"

	entries, err := ParseASS(content, "commas.ass")
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "Hello, world, how are you?" {
		t.Fatalf("text truncated: %q", entries[0].Text)
	}
}

func TestParseASSOverridesAndLineBreaks(t *testing.T) {
	content := assHeader +
		"Dialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,{\\an8}Top text\n" +
		"Dialogue: 0,0:00:05.00,0:00:08.00,Default,,0,0,0,,Line one\\NLine two\\nthree\n"

	entries, err := ParseASS(content, "tags.ass")
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if entries[0].TextClean != "Top text" {
		t.Fatalf("unexpected clean text: %q", entries[0].TextClean)
	}
	if entries[1].Text != "Line one\nLine two\nthree" {
		t.Fatalf("unexpected raw text: %q", entries[1].Text)
	}
	if entries[1].TextClean != "Line one Line two three" {
		t.Fatalf("unexpected clean text: %q", entries[1].TextClean)
	}
}

func TestParseASSCustomFormatOrder(t *testing.T) {
	content := "[Events]\nformat: Text, End, Start\nDialogue: Hi there,0:00:02.00,0:00:01.00\n"

	entries, err := ParseASS(content, "order.ass")
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Start != 1000 || entries[0].End != 2000 || entries[0].Text != "Hi there" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestParseASSIgnoresOtherSections(t *testing.T) {
	content := "[V4+ Styles]\nFormat: Name, Fontname\nDialogue: not,an,event\n\n" + assHeader +
		"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Only\n"

	entries, err := ParseASS(content, "sections.ass")
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "Only" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseASSDialogueBeforeFormat(t *testing.T) {
	content := "[Events]\nDialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,Too early\n"

	_, err := ParseASS(content, "early.ass")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 2 || !strings.Contains(parseErr.Message, "before Format") {
		t.Fatalf("unexpected error: %+v", parseErr)
	}
}

func TestParseASSBadTimestamp(t *testing.T) {
	content := assHeader + "Dialogue: 0,0:00:01.100,0:00:04.00,Default,,0,0,0,,Bad centis\n"

	_, err := ParseASS(content, "bad.ass")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 6 {
		t.Fatalf("expected line 6, got %d", parseErr.Line)
	}
}

func TestParseASSSkipsShortDialogue(t *testing.T) {
	content := assHeader +
		"Dialogue: 0,0:00:01.00\n" +
		"Dialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,Kept\n"

	entries, err := ParseASS(content, "short.ass")
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(entries) != 1 || entries[0].Index != 1 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
