package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeExtractor struct {
	tracks map[string]string
	err    error
	calls  []string
}

func (f *fakeExtractor) ExtractBest(ctx context.Context, videoPath string, cacheDir string) (string, bool, error) {
	f.calls = append(f.calls, videoPath)
	if f.err != nil {
		return "", false, f.err
	}
	name, ok := f.tracks[filepath.Base(videoPath)]
	if !ok {
		return "", false, nil
	}
	return filepath.Join(cacheDir, name), true, nil
}

func TestScanPairsVideosWithSubtitles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Season 1", "Show.S01E02.mkv"))
	writeFile(t, filepath.Join(root, "Season 1", "Show.S01E02.srt"))
	writeFile(t, filepath.Join(root, "Season 1", "Show.S01E01.mkv"))
	writeFile(t, filepath.Join(root, "Season 1", "Show.S01E01.es.srt"))
	writeFile(t, filepath.Join(root, "Season 1", "Show.S01E01.en.srt"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	episodes, err := NewScanner(root, ScannerConfig{}, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].ID != (EpisodeID{1, 1}) || episodes[1].ID != (EpisodeID{1, 2}) {
		t.Fatalf("unexpected order: %v, %v", episodes[0].ID, episodes[1].ID)
	}
	if filepath.Base(episodes[0].SubtitlePath) != "Show.S01E01.en.srt" {
		t.Fatalf("unexpected subtitle: %s", episodes[0].SubtitlePath)
	}
	source, ok := episodes[0].Source.(ExternalSource)
	if !ok || source.Path != episodes[0].SubtitlePath {
		t.Fatalf("unexpected source: %#v", episodes[0].Source)
	}
}

func TestScanFallsBackToEmbedded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Show.S01E01.mkv"))
	writeFile(t, filepath.Join(root, "Show.S01E02.mkv"))
	writeFile(t, filepath.Join(root, "Show.S01E03.mkv"))
	writeFile(t, filepath.Join(root, "Show.S01E03.srt"))

	extractor := &fakeExtractor{tracks: map[string]string{"Show.S01E01.mkv": "Show.S01E01.srt"}}
	episodes, err := NewScanner(root, ScannerConfig{}, extractor).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected episode without any subtitle to be dropped, got %d episodes", len(episodes))
	}
	if episodes[0].ID != (EpisodeID{1, 1}) || episodes[1].ID != (EpisodeID{1, 3}) {
		t.Fatalf("unexpected episodes: %v, %v", episodes[0].ID, episodes[1].ID)
	}

	embedded, ok := episodes[0].Source.(EmbeddedSource)
	if !ok {
		t.Fatalf("expected embedded source, got %#v", episodes[0].Source)
	}
	wantPath := filepath.Join(root, CacheDirName, "subtitles", "Show.S01E01.srt")
	if embedded.ExtractedPath != wantPath || episodes[0].SubtitlePath != wantPath {
		t.Fatalf("unexpected extracted path: %s", embedded.ExtractedPath)
	}
	if len(extractor.calls) != 2 {
		t.Fatalf("expected extractor to be consulted only for videos without external subtitles, got %v", extractor.calls)
	}
}

func TestScanDropsEpisodesOnExtractionError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Show.S01E01.mkv"))
	writeFile(t, filepath.Join(root, "Show.S01E02.mkv"))
	writeFile(t, filepath.Join(root, "Show.S01E02.srt"))

	extractor := &fakeExtractor{err: errors.New("probe failed")}
	episodes, err := NewScanner(root, ScannerConfig{}, extractor).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 1 || episodes[0].ID != (EpisodeID{1, 2}) {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
}

func TestScanFilters(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"S01E01", "S01E02", "S02E01", "S02E02"} {
		writeFile(t, filepath.Join(root, "Show."+name+".mkv"))
		writeFile(t, filepath.Join(root, "Show."+name+".srt"))
	}

	episodes, err := NewScanner(root, ScannerConfig{Seasons: []int{2}}, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 2 || episodes[0].ID.Season != 2 || episodes[1].ID.Season != 2 {
		t.Fatalf("unexpected season filter result: %+v", episodes)
	}

	episodes, err = NewScanner(root, ScannerConfig{Episodes: []string{"s01e02", "S02E01"}}, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 2 || episodes[0].ID != (EpisodeID{1, 2}) || episodes[1].ID != (EpisodeID{2, 1}) {
		t.Fatalf("unexpected episode filter result: %+v", episodes)
	}
}

func TestScanKeepsFirstDuplicateVideo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Show.S01E01.mkv"))
	writeFile(t, filepath.Join(root, "b", "Show.S01E01.1080p.mkv"))
	writeFile(t, filepath.Join(root, "a", "Show.S01E01.srt"))

	episodes, err := NewScanner(root, ScannerConfig{}, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 1 || episodes[0].VideoPath != filepath.Join(root, "a", "Show.S01E01.mkv") {
		t.Fatalf("unexpected video: %+v", episodes)
	}
}

func TestScanFollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	media := t.TempDir()
	writeFile(t, filepath.Join(media, "Show.S01E01.mkv"))
	writeFile(t, filepath.Join(media, "Show.S01E01.srt"))
	if err := os.Symlink(media, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	// A loop back to the root must not recurse forever.
	if err := os.Symlink(root, filepath.Join(media, "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	episodes, err := NewScanner(root, ScannerConfig{}, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode through symlink, got %d", len(episodes))
	}
}

func TestScanErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	_, err := NewScanner(missing, ScannerConfig{}, nil).Scan(context.Background())
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("expected DiscoveryError, got %v", err)
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "movie.mkv"))
	writeFile(t, filepath.Join(root, "Show.S01E01.mkv"))
	_, err = NewScanner(root, ScannerConfig{}, &fakeExtractor{}).Scan(context.Background())
	if !errors.Is(err, ErrNoVideosFound) {
		t.Fatalf("expected ErrNoVideosFound, got %v", err)
	}
}

func TestEpisodeParseSubtitles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Show.S01E01.srt")
	if err := os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := Episode{SubtitlePath: path}.ParseSubtitles()
	if err != nil {
		t.Fatalf("ParseSubtitles: %v", err)
	}
	if len(entries) != 1 || entries[0].TextClean != "Hi" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
