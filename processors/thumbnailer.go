package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/jaym/anytron/discovery"
	"github.com/jaym/anytron/objstore"
	"github.com/jaym/anytron/subtitle"
)

const DefaultThumbWidth = 320

type FrameExtractorConfig struct {
	// Quality is the JPEG quality of full frames, 1-100 with higher better.
	Quality int `mapstructure:"quality"`
	// FrameWidth scales full frames to this width; 0 keeps the source size.
	FrameWidth int `mapstructure:"frame_width"`
	// ThumbWidth is the width of thumbnails.
	ThumbWidth int `mapstructure:"thumb_width"`
	// Jobs is the number of concurrent ffmpeg invocations; 0 means one per CPU.
	Jobs int `mapstructure:"jobs"`
}

// FrameExtractor extracts a full frame and a thumbnail at the midpoint of
// every subtitle entry.
type FrameExtractor struct {
	runner     Runner
	ffmpeg     string
	executor   *Executor
	frameQ     int
	thumbQ     int
	frameWidth int
	thumbWidth int
}

// NewFrameExtractor creates a new FrameExtractor. The worker pool is sized
// once here and shared by every episode processed with it.
func NewFrameExtractor(cfg FrameExtractorConfig, runner Runner, tools ToolsConfig) *FrameExtractor {
	quality := DefaultQuality
	if cfg.Quality != 0 {
		quality = ClampQuality(cfg.Quality)
	}
	thumbWidth := DefaultThumbWidth
	if cfg.ThumbWidth > 0 {
		thumbWidth = cfg.ThumbWidth
	}
	frameWidth := 0
	if cfg.FrameWidth > 0 {
		frameWidth = cfg.FrameWidth
	}
	frameQ := QualityToQScale(quality)
	return &FrameExtractor{
		runner:     runner,
		ffmpeg:     tools.ffmpeg(),
		executor:   NewExecutor(cfg.Jobs),
		frameQ:     frameQ,
		thumbQ:     ThumbQScale(frameQ),
		frameWidth: frameWidth,
		thumbWidth: thumbWidth,
	}
}

// Progress receives one Add(1) per completed extraction task. It must be safe
// for concurrent use.
type Progress interface {
	Add(n int) error
}

// FramePath returns where the full frame for a timestamp is written.
func FramePath(outputDir string, episode discovery.EpisodeID, ts subtitle.Timestamp) string {
	return filepath.Join(outputDir, filepath.FromSlash(objstore.FrameKey(episode.String(), ts.Millis())))
}

// ThumbPath returns where the thumbnail for a timestamp is written.
func ThumbPath(outputDir string, episode discovery.EpisodeID, ts subtitle.Timestamp) string {
	return filepath.Join(outputDir, filepath.FromSlash(objstore.ThumbKey(episode.String(), ts.Millis())))
}

// ExtractionTask is the frame and thumbnail work for one subtitle entry.
type ExtractionTask struct {
	VideoPath string
	Timestamp subtitle.Timestamp
	FramePath string
	ThumbPath string
}

// FrameExtractionError reports a failed frame or thumbnail extraction.
type FrameExtractionError struct {
	Video     string
	Timestamp subtitle.Timestamp
	Output    string
	Err       error
}

func (e *FrameExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame extraction failed for %s at %s: %v", e.Video, e.Timestamp, e.Err)
	}
	return fmt.Sprintf("frame extraction failed for %s at %s", e.Video, e.Timestamp)
}

func (e *FrameExtractionError) Unwrap() error {
	return e.Err
}

// VerboseError includes the captured ffmpeg output.
func (e *FrameExtractionError) VerboseError() string {
	return fmt.Sprintf("%s\n\n%s", e.Error(), e.Output)
}

// Tasks builds the extraction tasks for an episode. Entries whose midpoints
// land on the same millisecond share one task.
func (f *FrameExtractor) Tasks(episode discovery.Episode, entries []subtitle.Entry, outputDir string) []ExtractionTask {
	tasks := make([]ExtractionTask, 0, len(entries))
	seen := make(map[subtitle.Timestamp]bool, len(entries))
	for _, entry := range entries {
		ts := entry.Midpoint()
		if seen[ts] {
			log.Debug().Str("episode", episode.ID.String()).Uint64("timestamp", ts.Millis()).Msg("entries share a frame timestamp")
			continue
		}
		seen[ts] = true
		tasks = append(tasks, ExtractionTask{
			VideoPath: episode.VideoPath,
			Timestamp: ts,
			FramePath: FramePath(outputDir, episode.ID, ts),
			ThumbPath: ThumbPath(outputDir, episode.ID, ts),
		})
	}
	return tasks
}

// Execute produces the task's frame and thumbnail. Outputs that already
// exist are not extracted again, so a task whose files are both present runs
// nothing.
func (f *FrameExtractor) Execute(ctx context.Context, task ExtractionTask) error {
	if exists(task.FramePath) && exists(task.ThumbPath) {
		return nil
	}
	if !exists(task.FramePath) {
		if err := f.extract(ctx, task, task.FramePath, f.frameWidth, f.frameQ); err != nil {
			return err
		}
	}
	if !exists(task.ThumbPath) {
		if err := f.extract(ctx, task, task.ThumbPath, f.thumbWidth, f.thumbQ); err != nil {
			return err
		}
	}
	return nil
}

// ExtractFrames runs every task for one episode on the shared worker pool.
// The first failure stops tasks that have not started yet; files written by
// finished tasks are kept.
func (f *FrameExtractor) ExtractFrames(ctx context.Context, episode discovery.Episode, entries []subtitle.Entry, outputDir string, progress Progress) error {
	tasks := f.Tasks(episode, entries, outputDir)
	log.Debug().
		Str("episode", episode.ID.String()).
		Int("tasks", len(tasks)).
		Int("workers", f.executor.Workers()).
		Msg("extracting frames")

	work := make([]func(ctx context.Context) error, 0, len(tasks))
	for _, task := range tasks {
		work = append(work, func(ctx context.Context) error {
			if err := f.Execute(ctx, task); err != nil {
				return err
			}
			if progress != nil {
				_ = progress.Add(1)
			}
			return nil
		})
	}
	return f.executor.Run(ctx, work)
}

// ExtractSingleFrame writes one full frame of videoPath at ts to outputPath,
// scaled to width when width > 0.
func (f *FrameExtractor) ExtractSingleFrame(ctx context.Context, videoPath string, ts subtitle.Timestamp, outputPath string, width int) error {
	task := ExtractionTask{VideoPath: videoPath, Timestamp: ts, FramePath: outputPath}
	return f.extract(ctx, task, outputPath, width, f.frameQ)
}

func (f *FrameExtractor) extract(ctx context.Context, task ExtractionTask, outputPath string, width int, qscale int) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("error creating frame directory: %w", err)
	}

	args := frameArgs(task.VideoPath, task.Timestamp, outputPath, width, qscale)
	result, err := f.runner.Run(ctx, f.ffmpeg, args...)
	if err != nil {
		return &FrameExtractionError{Video: task.VideoPath, Timestamp: task.Timestamp, Err: err}
	}
	if !result.Success() {
		return &FrameExtractionError{
			Video:     task.VideoPath,
			Timestamp: task.Timestamp,
			Output:    result.Output(),
			Err:       &ToolError{Tool: f.ffmpeg, ExitCode: result.ExitCode, Output: result.Output()},
		}
	}
	return nil
}

func frameArgs(videoPath string, ts subtitle.Timestamp, outputPath string, width int, qscale int) []string {
	output := ffmpeg_go.KwArgs{
		"frames:v": 1,
		"q:v":      qscale,
	}
	if width > 0 {
		output["vf"] = fmt.Sprintf("scale=%d:-1", width)
	}
	return ffmpeg_go.Input(videoPath, ffmpeg_go.KwArgs{"ss": ts.SeekTime()}).
		Output(outputPath, output).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
