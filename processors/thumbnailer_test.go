package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/jaym/anytron/discovery"
	"github.com/jaym/anytron/subtitle"
)

type countingProgress struct {
	n atomic.Int64
}

func (p *countingProgress) Add(n int) error {
	p.n.Add(int64(n))
	return nil
}

func testEpisode() discovery.Episode {
	return discovery.Episode{
		ID:        discovery.EpisodeID{Season: 1, Episode: 2},
		VideoPath: "/media/Show.S01E02.mkv",
	}
}

func testEntries() []subtitle.Entry {
	return []subtitle.Entry{
		subtitle.NewEntry(1, 1000, 3000, "one"),
		subtitle.NewEntry(2, 4000, 6000, "two"),
		subtitle.NewEntry(3, 1500, 2500, "same midpoint as one"),
		subtitle.NewEntry(4, 7000, 8001, "three"),
	}
}

func TestTasks(t *testing.T) {
	extractor := NewFrameExtractor(FrameExtractorConfig{}, &fakeRunner{}, ToolsConfig{})
	tasks := extractor.Tasks(testEpisode(), testEntries(), "/out")

	if len(tasks) != 3 {
		t.Fatalf("expected shared midpoints to collapse, got %d tasks", len(tasks))
	}
	first := tasks[0]
	if first.Timestamp != 2000 || first.VideoPath != "/media/Show.S01E02.mkv" {
		t.Fatalf("unexpected task: %+v", first)
	}
	if first.FramePath != filepath.Join("/out", "img", "frames", "S01E02", "2000.jpg") {
		t.Fatalf("unexpected frame path: %s", first.FramePath)
	}
	if first.ThumbPath != filepath.Join("/out", "img", "thumbs", "S01E02", "2000.jpg") {
		t.Fatalf("unexpected thumb path: %s", first.ThumbPath)
	}
	if tasks[2].Timestamp != 7500 {
		t.Fatalf("unexpected midpoint: %d", tasks[2].Timestamp)
	}
}

func TestExecuteIsIdempotent(t *testing.T) {
	out := t.TempDir()
	runner := &fakeRunner{}
	extractor := NewFrameExtractor(FrameExtractorConfig{}, runner, ToolsConfig{})
	task := extractor.Tasks(testEpisode(), testEntries()[:1], out)[0]

	if err := extractor.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if runner.count() != 2 {
		t.Fatalf("expected frame and thumbnail invocations, got %d", runner.count())
	}

	if err := extractor.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if runner.count() != 2 {
		t.Fatalf("expected no invocations for existing outputs, got %d", runner.count()-2)
	}
}

func TestExecuteOnlyMissingOutputs(t *testing.T) {
	out := t.TempDir()
	runner := &fakeRunner{}
	extractor := NewFrameExtractor(FrameExtractorConfig{Quality: 85, ThumbWidth: 240}, runner, ToolsConfig{})
	task := extractor.Tasks(testEpisode(), testEntries()[:1], out)[0]

	if err := os.MkdirAll(filepath.Dir(task.FramePath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(task.FramePath, []byte("jpeg"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := extractor.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if runner.count() != 1 {
		t.Fatalf("expected only the thumbnail to be extracted, got %v", runner.calls)
	}
	args := runner.calls[0]
	if !slices.Contains(args, "scale=240:-1") {
		t.Fatalf("expected thumbnail scaling, got %v", args)
	}
	// quality 85 maps to 6, thumbnails are two steps lower
	if !slices.Contains(args, "8") {
		t.Fatalf("expected thumbnail qscale 8, got %v", args)
	}
	if !slices.Contains(args, "00:00:02.000") {
		t.Fatalf("expected seek to midpoint, got %v", args)
	}
	if _, err := os.Stat(task.ThumbPath); err != nil {
		t.Fatalf("expected thumbnail to exist: %v", err)
	}
}

func TestFrameArgs(t *testing.T) {
	args := frameArgs("in.mkv", 2000, "out.jpg", 0, 6)
	for _, want := range []string{"-ss", "00:00:02.000", "-i", "in.mkv", "-frames:v", "1", "-q:v", "6", "out.jpg", "-y"} {
		if !slices.Contains(args, want) {
			t.Fatalf("expected %q in %v", want, args)
		}
	}
	if slices.Contains(args, "-vf") {
		t.Fatalf("expected no scaling for full frames, got %v", args)
	}
}

func TestExtractFrames(t *testing.T) {
	out := t.TempDir()
	runner := &fakeRunner{}
	extractor := NewFrameExtractor(FrameExtractorConfig{Jobs: 4}, runner, ToolsConfig{})
	progress := &countingProgress{}

	if err := extractor.ExtractFrames(context.Background(), testEpisode(), testEntries(), out, progress); err != nil {
		t.Fatalf("ExtractFrames: %v", err)
	}
	if progress.n.Load() != 3 {
		t.Fatalf("expected 3 progress steps, got %d", progress.n.Load())
	}
	if runner.count() != 6 {
		t.Fatalf("expected 6 invocations, got %d", runner.count())
	}
	for _, ts := range []string{"2000", "5000", "7500"} {
		if _, err := os.Stat(filepath.Join(out, "img", "frames", "S01E02", ts+".jpg")); err != nil {
			t.Fatalf("missing frame %s: %v", ts, err)
		}
		if _, err := os.Stat(filepath.Join(out, "img", "thumbs", "S01E02", ts+".jpg")); err != nil {
			t.Fatalf("missing thumb %s: %v", ts, err)
		}
	}
}

func TestExtractFramesFailsFast(t *testing.T) {
	out := t.TempDir()
	runner := &fakeRunner{handle: func(name string, args []string) (*Result, error) {
		return &Result{ExitCode: 1, Stderr: []byte("Invalid data found when processing input")}, nil
	}}
	extractor := NewFrameExtractor(FrameExtractorConfig{Jobs: 1}, runner, ToolsConfig{})
	progress := &countingProgress{}

	err := extractor.ExtractFrames(context.Background(), testEpisode(), testEntries(), out, progress)
	var frameErr *FrameExtractionError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected FrameExtractionError, got %v", err)
	}
	if frameErr.Video != "/media/Show.S01E02.mkv" || frameErr.Timestamp != 2000 {
		t.Fatalf("unexpected error context: %+v", frameErr)
	}
	if frameErr.Output != "Invalid data found when processing input" {
		t.Fatalf("unexpected output: %q", frameErr.Output)
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.ExitCode != 1 {
		t.Fatalf("expected wrapped ToolError, got %v", err)
	}
	if runner.count() != 1 {
		t.Fatalf("expected remaining tasks to be skipped, got %d invocations", runner.count())
	}
	if progress.n.Load() != 0 {
		t.Fatalf("expected no progress, got %d", progress.n.Load())
	}
}

func TestExtractFramesToolMissing(t *testing.T) {
	runner := &fakeRunner{handle: func(name string, args []string) (*Result, error) {
		return nil, &ToolNotFoundError{Tool: name}
	}}
	extractor := NewFrameExtractor(FrameExtractorConfig{Jobs: 2}, runner, ToolsConfig{})
	err := extractor.ExtractFrames(context.Background(), testEpisode(), testEntries(), t.TempDir(), nil)

	var notFound *ToolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ToolNotFoundError, got %v", err)
	}
}
