package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScoreExternalSubtitle(t *testing.T) {
	english := ScoreExternalSubtitle("S01E01.en.srt")
	englishSDH := ScoreExternalSubtitle("S01E01.en.sdh.srt")
	spanish := ScoreExternalSubtitle("S01E01.es.srt")

	if !(english > englishSDH && englishSDH > spanish) {
		t.Fatalf("expected en > en.sdh > es, got %d, %d, %d", english, englishSDH, spanish)
	}
	if english != 1010 {
		t.Fatalf("unexpected english score: %d", english)
	}
}

func TestScoreExternalSubtitleParentDir(t *testing.T) {
	inEnglish := ScoreExternalSubtitle(filepath.Join("show", "English", "S01E01.srt"))
	plain := ScoreExternalSubtitle(filepath.Join("show", "S01E01.srt"))
	inSDH := ScoreExternalSubtitle(filepath.Join("show", "SDH", "S01E01.srt"))

	if inEnglish-plain != 500 {
		t.Fatalf("expected +500 for english parent, got %d vs %d", inEnglish, plain)
	}
	if plain-inSDH != 100 {
		t.Fatalf("expected -100 for sdh parent, got %d vs %d", plain, inSDH)
	}
}

func TestSelectExternalSubtitle(t *testing.T) {
	got, ok := SelectExternalSubtitle([]string{"S01E01.es.srt", "S01E01.en.srt", "S01E01.en.sdh.srt"})
	if !ok || got != "S01E01.en.srt" {
		t.Fatalf("unexpected selection: %q %v", got, ok)
	}

	got, ok = SelectExternalSubtitle([]string{"a/S01E01.srt", "b/S01E01.srt"})
	if !ok || got != "a/S01E01.srt" {
		t.Fatalf("expected first candidate on tie, got %q", got)
	}

	if _, ok := SelectExternalSubtitle(nil); ok {
		t.Fatalf("expected no selection for empty candidates")
	}
}

func TestFindSubtitleForVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "Show.S01E01.mkv")
	writeFile(t, video)
	writeFile(t, filepath.Join(dir, "Show.S01E01.vtt"))
	writeFile(t, filepath.Join(dir, "Show.S01E01.en.srt"))

	got, ok := FindSubtitleForVideo(video)
	if !ok {
		t.Fatalf("expected a subtitle")
	}
	if got != filepath.Join(dir, "Show.S01E01.en.srt") {
		t.Fatalf("unexpected subtitle: %s", got)
	}

	if _, ok := FindSubtitleForVideo(filepath.Join(dir, "Other.S01E02.mkv")); ok {
		t.Fatalf("expected no subtitle for unrelated video")
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
