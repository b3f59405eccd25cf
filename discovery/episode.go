package discovery

import (
	"fmt"
	"regexp"
	"strconv"
)

// episodePatterns are tried in order; the first one that yields a season and
// episode both greater than zero wins.
var episodePatterns = []*regexp.Regexp{
	// S01E01, s01e01
	regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,3})`),
	// 1x01, 01x01
	regexp.MustCompile(`(\d{1,2})x(\d{1,3})`),
	// Season 1 Episode 01
	regexp.MustCompile(`(?i)Season\s*(\d{1,2})\s*Episode\s*(\d{1,3})`),
	// [01x01]
	regexp.MustCompile(`\[(\d{1,2})x(\d{1,3})\]`),
}

// EpisodeID identifies one episode by season and episode number.
type EpisodeID struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// InvalidEpisodeFormatError is returned when no pattern yields an episode id.
type InvalidEpisodeFormatError struct {
	Name string
}

func (e *InvalidEpisodeFormatError) Error() string {
	return fmt.Sprintf("invalid episode format in filename %q: expected SXXEXX pattern", e.Name)
}

// ParseEpisodeID extracts the episode id from a filename.
func ParseEpisodeID(name string) (EpisodeID, error) {
	for _, pattern := range episodePatterns {
		matches := pattern.FindStringSubmatch(name)
		if len(matches) != 3 {
			continue
		}
		season, errS := strconv.Atoi(matches[1])
		episode, errE := strconv.Atoi(matches[2])
		if errS != nil || errE != nil || season <= 0 || episode <= 0 {
			continue
		}
		return EpisodeID{Season: season, Episode: episode}, nil
	}
	return EpisodeID{}, &InvalidEpisodeFormatError{Name: name}
}

// String formats the id as SxxEyy.
func (id EpisodeID) String() string {
	return fmt.Sprintf("S%02dE%02d", id.Season, id.Episode)
}

// Less orders ids by season, then episode.
func (id EpisodeID) Less(other EpisodeID) bool {
	if id.Season != other.Season {
		return id.Season < other.Season
	}
	return id.Episode < other.Episode
}

// Compare returns -1, 0 or +1, for use with slices.SortFunc.
func (id EpisodeID) Compare(other EpisodeID) int {
	switch {
	case id.Less(other):
		return -1
	case other.Less(id):
		return 1
	default:
		return 0
	}
}
