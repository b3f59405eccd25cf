package subtitle

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a point in time measured in milliseconds from the start of the video.
type Timestamp uint64

// FromHMS builds a Timestamp from hours, minutes, seconds and milliseconds.
func FromHMS(hours, minutes, seconds, millis uint64) Timestamp {
	return Timestamp(hours*3600000 + minutes*60000 + seconds*1000 + millis)
}

// Millis returns the timestamp as a millisecond count.
func (t Timestamp) Millis() uint64 {
	return uint64(t)
}

// Seconds returns the timestamp in fractional seconds.
func (t Timestamp) Seconds() float64 {
	return float64(t) / 1000
}

// String formats the timestamp as HH:MM:SS.mmm.
func (t Timestamp) String() string {
	ms := uint64(t)
	totalSecs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", totalSecs/3600, (totalSecs%3600)/60, totalSecs%60, ms%1000)
}

// SeekTime returns the timestamp in the form ffmpeg accepts for -ss.
func (t Timestamp) SeekTime() string {
	return t.String()
}

// TimestampError reports a timestamp token that does not follow its format
// grammar or has a field out of range.
type TimestampError struct {
	Value   string
	Message string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %s", e.Value, e.Message)
}

type clockLimits struct {
	maxHours  uint64
	maxFrac   uint64
	fracName  string
	fracScale uint64
	// unchecked skips the range checks; fields only need to be numeric.
	unchecked bool
}

var (
	srtLimits = clockLimits{maxHours: 23, maxFrac: 999, fracName: "milliseconds", fracScale: 1}
	assLimits = clockLimits{maxHours: 23, maxFrac: 99, fracName: "centiseconds", fracScale: 10}
	// WebVTT fields are taken as written, so 75:00.000 is 75 minutes.
	vttLimits = clockLimits{fracName: "milliseconds", fracScale: 1, unchecked: true}
)

// ParseSRTTimestamp parses an SRT timestamp of the form HH:MM:SS,mmm.
func ParseSRTTimestamp(value string) (Timestamp, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(strings.Replace(value, ",", ":", 1), ":")
	if len(parts) != 4 {
		return 0, &TimestampError{Value: value, Message: "expected HH:MM:SS,mmm"}
	}
	return clock(value, parts, srtLimits)
}

// ParseASSTimestamp parses an ASS/SSA timestamp of the form H:MM:SS.cc.
func ParseASSTimestamp(value string) (Timestamp, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(strings.Replace(value, ".", ":", 1), ":")
	if len(parts) != 4 {
		return 0, &TimestampError{Value: value, Message: "expected H:MM:SS.cc"}
	}
	return clock(value, parts, assLimits)
}

// ParseVTTTimestamp parses a WebVTT timestamp, either MM:SS.mmm or HH:MM:SS.mmm.
func ParseVTTTimestamp(value string) (Timestamp, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(strings.Replace(value, ".", ":", 1), ":")
	switch len(parts) {
	case 3:
		return clock(value, append([]string{"0"}, parts...), vttLimits)
	case 4:
		return clock(value, parts, vttLimits)
	default:
		return 0, &TimestampError{Value: value, Message: "expected MM:SS.mmm or HH:MM:SS.mmm"}
	}
}

// clock converts [hours, minutes, seconds, fraction] into a Timestamp.
func clock(value string, parts []string, limits clockLimits) (Timestamp, error) {
	names := [4]string{"hours", "minutes", "seconds", limits.fracName}
	var fields [4]uint64
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return 0, &TimestampError{Value: value, Message: fmt.Sprintf("invalid %s %q", names[i], part)}
		}
		fields[i] = n
	}
	hours, minutes, seconds, frac := fields[0], fields[1], fields[2], fields[3]
	switch {
	case limits.unchecked:
	case hours > limits.maxHours:
		return 0, &TimestampError{Value: value, Message: fmt.Sprintf("hours must be 0-%d, got %d", limits.maxHours, hours)}
	case minutes > 59:
		return 0, &TimestampError{Value: value, Message: fmt.Sprintf("minutes must be 0-59, got %d", minutes)}
	case seconds > 60:
		return 0, &TimestampError{Value: value, Message: fmt.Sprintf("seconds must be 0-60, got %d", seconds)}
	case frac > limits.maxFrac:
		return 0, &TimestampError{Value: value, Message: fmt.Sprintf("%s must be 0-%d, got %d", limits.fracName, limits.maxFrac, frac)}
	}
	return FromHMS(hours, minutes, seconds, frac*limits.fracScale), nil
}
