package subtitle

import (
	"fmt"
	"strings"
)

// assFormat records where the timing and text columns sit in the [Events] section.
type assFormat struct {
	start int
	end   int
	text  int
	total int
}

func parseASSFormat(line string) assFormat {
	_, names, _ := strings.Cut(line, ":")
	fields := strings.Split(names, ",")
	f := assFormat{start: 1, end: 2, text: len(fields) - 1, total: len(fields)}
	for i, field := range fields {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "start":
			f.start = i
		case "end":
			f.end = i
		case "text":
			f.text = i
		}
	}
	return f
}

// split cuts a Dialogue payload into total fields. The last field keeps the
// rest of the line verbatim, so commas inside dialogue survive.
func (f assFormat) split(payload string) ([]string, bool) {
	fields := make([]string, 0, f.total)
	rest := payload
	for i := 0; i < f.total-1; i++ {
		field, remainder, found := strings.Cut(rest, ",")
		if !found {
			return nil, false
		}
		fields = append(fields, field)
		rest = remainder
	}
	return append(fields, rest), true
}

func (f assFormat) valid() bool {
	return f.total > 0 && f.start < f.total && f.end < f.total && f.text < f.total
}

// ParseASS parses Advanced SubStation Alpha (and SSA) content. Only the
// [Events] section is read; a Dialogue line before any Format line is an error.
func ParseASS(content string, path string) ([]Entry, error) {
	var (
		entries  []Entry
		inEvents bool
		format   *assFormat
	)
	for i, line := range strings.Split(normalize(content), "\n") {
		lineNum := i + 1
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inEvents = strings.EqualFold(line, "[events]")
			continue
		}
		if !inEvents {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "format:"):
			f := parseASSFormat(line)
			format = &f
		case strings.HasPrefix(lower, "dialogue:"):
			if format == nil {
				return nil, &ParseError{Path: path, Line: lineNum, Message: "Dialogue line before Format line"}
			}
			if !format.valid() {
				continue
			}
			_, payload, _ := strings.Cut(line, ":")
			fields, ok := format.split(strings.TrimSpace(payload))
			if !ok {
				continue
			}

			start, err := ParseASSTimestamp(fields[format.start])
			if err != nil {
				return nil, &ParseError{Path: path, Line: lineNum, Message: fmt.Sprintf("invalid start timestamp: %v", err)}
			}
			end, err := ParseASSTimestamp(fields[format.end])
			if err != nil {
				return nil, &ParseError{Path: path, Line: lineNum, Message: fmt.Sprintf("invalid end timestamp: %v", err)}
			}

			text := strings.NewReplacer(`\N`, "\n", `\n`, "\n").Replace(fields[format.text])
			entries = append(entries, NewEntry(len(entries)+1, start, end, text))
		}
	}
	return entries, nil
}
