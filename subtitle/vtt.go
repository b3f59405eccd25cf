package subtitle

import "strings"

var vttSkippedBlocks = []string{"WEBVTT", "NOTE", "STYLE", "REGION"}

// ParseVTT parses WebVTT content. Header, NOTE, STYLE and REGION blocks are
// ignored, cue identifiers are discarded and cue settings after the end time
// are dropped.
func ParseVTT(content string, path string) ([]Entry, error) {
	var entries []Entry
	blockNum := 0
	for _, block := range strings.Split(normalize(content), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || hasAnyPrefix(block, vttSkippedBlocks) {
			continue
		}
		blockNum++

		lines := strings.Split(block, "\n")
		timing := 0
		if !strings.Contains(lines[0], "-->") {
			timing = 1
		}
		if timing >= len(lines) || !strings.Contains(lines[timing], "-->") {
			continue
		}

		start, end, err := parseTimingLine(lines[timing], ParseVTTTimestamp, parseVTTEnd)
		if err != nil {
			return nil, &ParseError{Path: path, Line: blockNum, Message: err.Error()}
		}

		text := strings.Join(lines[timing+1:], "\n")
		if text == "" {
			continue
		}
		entries = append(entries, NewEntry(len(entries)+1, start, end, text))
	}
	return entries, nil
}

// parseVTTEnd parses the end time, ignoring any trailing cue settings.
func parseVTTEnd(value string) (Timestamp, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ParseVTTTimestamp(value)
	}
	return ParseVTTTimestamp(fields[0])
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
