package discovery

import (
	"os"
	"path/filepath"
	"strings"
)

// Filename markers for external subtitle language and accessibility variants.
var (
	englishMarkers = []string{
		".en.", ".eng.", ".english.",
		"_en.", "_eng.", "_english.",
		"-en.", "-eng.", "-english.",
		".en-us.", ".en-gb.", ".en_us.", ".en_gb.",
	}
	nonEnglishMarkers = []string{
		".es.", ".spa.", ".spanish.",
		".fr.", ".fra.", ".french.",
		".de.", ".deu.", ".ger.", ".german.",
		".it.", ".ita.", ".italian.",
		".pt.", ".por.", ".portuguese.",
		".ru.", ".rus.", ".russian.",
		".ja.", ".jpn.", ".japanese.",
		".ko.", ".kor.", ".korean.",
		".zh.", ".chi.", ".chinese.",
	}
	hearingImpairedMarkers = []string{
		".sdh.", "_sdh.", "-sdh.",
		".cc.", "_cc.", "-cc.",
		".hi.", "_hi.", "-hi.",
		"[sdh]", "[cc]", "[hi]",
	}
	englishDirs         = []string{"english", "eng", "en"}
	hearingImpairedDirs = []string{"sdh", "cc", "hi"}
)

// ScoreExternalSubtitle ranks an external subtitle path; higher is better.
func ScoreExternalSubtitle(path string) int {
	name := strings.ToLower(filepath.Base(path))
	parent := strings.ToLower(filepath.Base(filepath.Dir(path)))

	score := 0
	if containsAny(name, englishMarkers) {
		score += 1000
	}
	if equalsAny(parent, englishDirs) {
		score += 500
	}
	if containsAny(name, nonEnglishMarkers) {
		score -= 500
	}
	if containsAny(name, hearingImpairedMarkers) || equalsAny(parent, hearingImpairedDirs) {
		score -= 100
	}
	if strings.HasSuffix(name, ".srt") {
		score += 10
	}
	return score
}

// SelectExternalSubtitle returns the highest scoring candidate. Ties go to
// the earliest candidate.
func SelectExternalSubtitle(paths []string) (string, bool) {
	if len(paths) == 0 {
		return "", false
	}
	best := paths[0]
	bestScore := ScoreExternalSubtitle(best)
	for _, path := range paths[1:] {
		if score := ScoreExternalSubtitle(path); score > bestScore {
			best, bestScore = path, score
		}
	}
	return best, true
}

// FindSubtitleForVideo looks for subtitle files next to videoPath that share
// its stem, including language-tagged variants and files under "subs" or
// "English" subdirectories, and returns the best one.
func FindSubtitleForVideo(videoPath string) (string, bool) {
	dir := filepath.Dir(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	var candidates []string
	for _, ext := range subtitleExtensions {
		names := []string{filepath.Join(dir, stem+ext)}
		for _, lang := range []string{"en", "eng", "english"} {
			names = append(names, filepath.Join(dir, stem+"."+lang+ext))
		}
		names = append(names,
			filepath.Join(dir, "subs", stem+ext),
			filepath.Join(dir, "English", stem+ext),
		)
		for _, name := range names {
			if isRegularFile(name) {
				candidates = append(candidates, name)
			}
		}
	}
	return SelectExternalSubtitle(candidates)
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func equalsAny(s string, values []string) bool {
	for _, value := range values {
		if s == value {
			return true
		}
	}
	return false
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
