package subtitle

import (
	"errors"
	"testing"
)

func TestParseSRT(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:04,000\nHello world\n\n2\n00:00:05,000 --> 00:00:08,000\n<i>Second line</i>\nwith continuation\n"

	entries, err := ParseSRT(content, "test.srt")
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Index != 1 || entries[0].Start != 1000 || entries[0].End != 4000 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Text != "Hello world" || entries[0].TextClean != "Hello world" {
		t.Fatalf("unexpected first text: %+v", entries[0])
	}
	if entries[1].Index != 2 {
		t.Fatalf("unexpected second index: %d", entries[1].Index)
	}
	if entries[1].Text != "<i>Second line</i>\nwith continuation" {
		t.Fatalf("unexpected raw text: %q", entries[1].Text)
	}
	if entries[1].TextClean != "Second line with continuation" {
		t.Fatalf("unexpected clean text: %q", entries[1].TextClean)
	}
}

func TestParseSRTNormalizesInput(t *testing.T) {
	content := "\ufeff1\r\n00:00:01,000 --> 00:00:04,000\r\nText\r\n\r\n2\r\n00:00:05,000 --> 00:00:06,000\r\nMore\r\n"

	entries, err := ParseSRT(content, "bom.srt")
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "Text" {
		t.Fatalf("unexpected text: %q", entries[0].Text)
	}
}

func TestParseSRTSkipsMalformedBlocks(t *testing.T) {
	content := "garbage\n00:00:01,000 --> 00:00:02,000\nNo index\n\n" +
		"5\n00:00:03,000 --> 00:00:04,000\n\n" +
		"7\n00:00:05,000 --> 00:00:06,000\nKept\n"

	entries, err := ParseSRT(content, "skip.srt")
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(entries) != 1 || entries[0].Index != 7 {
		t.Fatalf("expected only entry 7, got %+v", entries)
	}
}

func TestParseSRTRejectsBadTimestamp(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\nFine\n\n2\n00:61:00,000 --> 00:62:00,000\nBroken\n"

	_, err := ParseSRT(content, "bad.srt")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Path != "bad.srt" || parseErr.Line != 2 {
		t.Fatalf("unexpected error location: %+v", parseErr)
	}
}

func TestParseSRTRequiresArrow(t *testing.T) {
	content := "1\n00:00:01,000 00:00:02,000\nNo arrow\n"
	if _, err := ParseSRT(content, "arrow.srt"); err == nil {
		t.Fatal("expected error for timing line without separator")
	}
}
