package subtitle

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSRT parses SubRip content. Blocks that are too short or lack a numeric
// index are skipped; a bad timing line aborts the file.
func ParseSRT(content string, path string) ([]Entry, error) {
	var entries []Entry
	blockNum := 0
	for _, block := range strings.Split(normalize(content), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		blockNum++

		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}
		index, err := strconv.ParseUint(strings.TrimSpace(lines[0]), 10, 64)
		if err != nil {
			continue
		}

		start, end, err := parseTimingLine(lines[1], ParseSRTTimestamp, ParseSRTTimestamp)
		if err != nil {
			return nil, &ParseError{Path: path, Line: blockNum, Message: err.Error()}
		}
		entries = append(entries, NewEntry(int(index), start, end, strings.Join(lines[2:], "\n")))
	}
	return entries, nil
}

type timestampParser func(string) (Timestamp, error)

// parseTimingLine splits "start --> end" and parses both sides.
func parseTimingLine(line string, parseStart, parseEnd timestampParser) (Timestamp, Timestamp, error) {
	parts := strings.Split(strings.TrimSpace(line), "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := parseStart(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start timestamp: %w", err)
	}
	end, err := parseEnd(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end timestamp: %w", err)
	}
	return start, end, nil
}
