package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a subtitle file grammar.
type Format int

const (
	FormatSRT Format = iota + 1
	FormatASS
	FormatVTT
)

func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatASS:
		return "ass"
	case FormatVTT:
		return "vtt"
	default:
		return "unknown"
	}
}

// UnsupportedFormatError is returned for files whose extension maps to no parser.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported subtitle format: no extension"
	}
	return fmt.Sprintf("unsupported subtitle format: %s", e.Ext)
}

// ParseError reports a timestamp or structural violation that aborted parsing of a file.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("subtitle parse error in %q at line %d: %s", e.Path, e.Line, e.Message)
}

// FormatFromExtension maps a file extension, with or without the leading dot, to a Format.
func FormatFromExtension(ext string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "srt":
		return FormatSRT, nil
	case "ass", "ssa":
		return FormatASS, nil
	case "vtt":
		return FormatVTT, nil
	default:
		return 0, &UnsupportedFormatError{Ext: strings.TrimPrefix(ext, ".")}
	}
}

// ParseFile reads path and parses it with the grammar selected by its extension.
func ParseFile(path string) ([]Entry, error) {
	format, err := FormatFromExtension(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Line: 0, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return Parse(format, string(data), path)
}

// Parse parses content using the given format. path is only used in errors.
func Parse(format Format, content string, path string) ([]Entry, error) {
	switch format {
	case FormatSRT:
		return ParseSRT(content, path)
	case FormatASS:
		return ParseASS(content, path)
	case FormatVTT:
		return ParseVTT(content, path)
	default:
		return nil, &UnsupportedFormatError{Ext: format.String()}
	}
}

// normalize drops a leading byte order mark and converts CRLF line endings to LF.
func normalize(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	return strings.ReplaceAll(content, "\r\n", "\n")
}
