package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/jaym/anytron/subtitle"
)

const MaxGifDuration subtitle.Timestamp = 10000
const DefaultDesiredMaxSize = 2 * 1024 * 1024

type GifOptions struct {
	// Caption is burned into the bottom of the clip.
	Caption        string `mapstructure:"caption"`
	FontName       string `mapstructure:"font_name"`
	FontColor      string `mapstructure:"font_color"`
	FontsDir       string `mapstructure:"fonts_dir"`
	DesiredMaxSize int    `mapstructure:"desired_max_size"`
}

var ErrInvalidTimeRange = errors.New("invalid time range")

// GifMaker renders captioned GIF clips from episode videos.
type GifMaker struct {
	runner Runner
	ffmpeg string
}

func NewGifMaker(runner Runner, tools ToolsConfig) *GifMaker {
	return &GifMaker{runner: runner, ffmpeg: tools.ffmpeg()}
}

// Make renders videoPath between start and end into outputFile. Two palettes
// are rendered, at the source frame rate and at 12 fps, and the source rate
// clip is kept when it fits the desired size.
func (g *GifMaker) Make(ctx context.Context, videoPath string, outputFile string, start, end subtitle.Timestamp, opts GifOptions) error {
	if end <= start || end-start > MaxGifDuration {
		return ErrInvalidTimeRange
	}

	tmpDir, err := os.MkdirTemp("", "anytron-gif")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	input := ffmpeg_go.Input(videoPath, ffmpeg_go.KwArgs{
		"ss": start.SeekTime(),
		"to": end.SeekTime(),
	})

	if opts.Caption != "" {
		// The caption is rendered through the subtitles filter from a one-cue
		// SRT covering the whole clip.
		srtFile := filepath.Join(tmpDir, "caption.srt")
		cue := fmt.Sprintf("1\n00:00:00,000 --> 00:01:00,000\n%s\n", strings.ToUpper(opts.Caption))
		if err := os.WriteFile(srtFile, []byte(cue), 0644); err != nil {
			return fmt.Errorf("failed to write caption file: %w", err)
		}
		input = input.Filter("subtitles", ffmpeg_go.Args{srtFile}, captionStyle(opts))
	}

	split := input.Split()
	palette := split.Get("0").Filter("palettegen", ffmpeg_go.Args{"max_colors=64"}).Split()
	multiFps := split.Get("1").Split()

	origFpsFile := filepath.Join(tmpDir, "orig_fps.gif")
	origFps := ffmpeg_go.Filter([]*ffmpeg_go.Stream{
		multiFps.Get("0"),
		palette.Get("0"),
	}, "paletteuse", ffmpeg_go.Args{}).
		Output(origFpsFile)

	lowFpsFile := filepath.Join(tmpDir, "12_fps.gif")
	lowFps := ffmpeg_go.Filter([]*ffmpeg_go.Stream{
		multiFps.Get("1").Filter("fps", ffmpeg_go.Args{"fps=12"}),
		palette.Get("1"),
	}, "paletteuse", ffmpeg_go.Args{}).
		Output(lowFpsFile)

	args := ffmpeg_go.MergeOutputs(origFps, lowFps).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()

	result, err := g.runner.Run(ctx, g.ffmpeg, args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		return &ToolError{Tool: g.ffmpeg, ExitCode: result.ExitCode, Output: result.Output()}
	}

	origFpsInfo, err := os.Stat(origFpsFile)
	if err != nil {
		return fmt.Errorf("failed to get file size: %w", err)
	}

	wantedMaxSize := int64(DefaultDesiredMaxSize)
	if opts.DesiredMaxSize > 0 {
		wantedMaxSize = int64(opts.DesiredMaxSize)
	}

	chosen := lowFpsFile
	if origFpsInfo.Size() < wantedMaxSize {
		chosen = origFpsFile
	}
	log.Debug().Str("output", outputFile).Str("variant", filepath.Base(chosen)).Msg("selected gif variant")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := renameOrCopy(chosen, outputFile); err != nil {
		return fmt.Errorf("failed to move gif into place: %w", err)
	}
	return nil
}

func captionStyle(opts GifOptions) ffmpeg_go.KwArgs {
	kwargs := ffmpeg_go.KwArgs{}
	forceStyle := []string{"FontSize=24", "Alignment=2", "MarginL=10", "MarginR=10", "MarginV=20"}
	if opts.FontName != "" {
		forceStyle = append(forceStyle, fmt.Sprintf("Fontname=%s", opts.FontName))
	}
	if opts.FontColor != "" {
		forceStyle = append(forceStyle, fmt.Sprintf("PrimaryColour=&H%s", opts.FontColor))
	}
	kwargs["force_style"] = strings.Join(forceStyle, ",")
	if opts.FontsDir != "" {
		kwargs["fontsdir"] = opts.FontsDir
	}
	return kwargs
}

func renameOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
