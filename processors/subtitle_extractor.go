package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	ffmpeg_go "github.com/u2takey/ffmpeg-go"
	"golang.org/x/text/language"
)

// SubtitleStream describes one subtitle track embedded in a video container.
type SubtitleStream struct {
	Index           int    `json:"index"`
	Codec           string `json:"codec"`
	Language        string `json:"language,omitempty"`
	Title           string `json:"title,omitempty"`
	Default         bool   `json:"default"`
	Forced          bool   `json:"forced"`
	HearingImpaired bool   `json:"hearing_impaired"`
}

type ffmpegStreamProbe struct {
	Streams []struct {
		Index       int               `json:"index"`
		CodecName   string            `json:"codec_name"`
		Tags        map[string]string `json:"tags"`
		Disposition map[string]int    `json:"disposition"`
	} `json:"streams"`
}

type SubtitleExtractor struct {
	runner Runner
	tools  ToolsConfig
}

// NewSubtitleExtractor creates a new SubtitleExtractor instance.
func NewSubtitleExtractor(runner Runner, tools ToolsConfig) *SubtitleExtractor {
	return &SubtitleExtractor{runner: runner, tools: tools}
}

// ProbeStreams lists the subtitle streams of a video. A probe that exits
// non-zero is treated as a video without subtitle streams.
func (s *SubtitleExtractor) ProbeStreams(ctx context.Context, videoPath string) ([]SubtitleStream, error) {
	result, err := s.runner.Run(ctx, s.tools.ffprobe(),
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "s",
		videoPath,
	)
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		log.Debug().Str("video", videoPath).Int("exitCode", result.ExitCode).Msg("ffprobe failed, assuming no subtitle streams")
		return nil, nil
	}

	var probe ffmpegStreamProbe
	if err := json.Unmarshal(result.Stdout, &probe); err != nil {
		return nil, fmt.Errorf("error unmarshalling ffprobe output for %s: %w", videoPath, err)
	}

	streams := make([]SubtitleStream, 0, len(probe.Streams))
	for _, stream := range probe.Streams {
		streams = append(streams, SubtitleStream{
			Index:           stream.Index,
			Codec:           stream.CodecName,
			Language:        streamTag(stream.Tags, "language"),
			Title:           streamTag(stream.Tags, "title"),
			Default:         stream.Disposition["default"] == 1,
			Forced:          stream.Disposition["forced"] == 1,
			HearingImpaired: stream.Disposition["hearing_impaired"] == 1,
		})
	}
	return streams, nil
}

func streamTag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	return tags[strings.ToUpper(key)]
}

var englishBase, _ = language.English.Base()

// isEnglish reports whether a stream language tag names English. It accepts
// ISO 639-1/2 codes, BCP 47 tags such as en-US and the word "english".
func isEnglish(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if strings.EqualFold(value, "english") {
		return true
	}
	tag, err := language.Parse(value)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base == englishBase
}

var hearingImpairedTitleMarkers = []string{"sdh", "[cc]", "(cc)", "hearing impaired", "closed caption"}

// IsEnglish reports whether the stream is English by language tag or, when
// untagged, by its title.
func (s SubtitleStream) IsEnglish() bool {
	if strings.TrimSpace(s.Language) != "" {
		return isEnglish(s.Language)
	}
	title := strings.ToLower(strings.TrimSpace(s.Title))
	return title == "en" || title == "eng" || strings.Contains(title, "english")
}

// IsHearingImpaired reports whether the stream is flagged or titled as SDH/CC.
func (s SubtitleStream) IsHearingImpaired() bool {
	if s.HearingImpaired {
		return true
	}
	title := strings.ToLower(s.Title)
	for _, marker := range hearingImpairedTitleMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// Score ranks an embedded stream; higher is better.
func (s SubtitleStream) Score() int {
	score := 0
	if s.IsEnglish() {
		score += 1000
	}
	if s.Default {
		score += 100
	}
	if !s.IsHearingImpaired() {
		score += 50
	}
	if !s.Forced {
		score += 25
	}
	switch strings.ToLower(s.Codec) {
	case "subrip", "srt":
		score += 10
	case "ass", "ssa":
		score += 9
	case "webvtt", "vtt":
		score += 8
	case "mov_text":
		score += 7
	}
	return score
}

// SelectBestStream returns the highest scoring stream. Ties go to the stream
// listed first by the probe.
func SelectBestStream(streams []SubtitleStream) (SubtitleStream, bool) {
	if len(streams) == 0 {
		return SubtitleStream{}, false
	}
	best := streams[0]
	bestScore := best.Score()
	for _, stream := range streams[1:] {
		if score := stream.Score(); score > bestScore {
			best, bestScore = stream, score
		}
	}
	return best, true
}

// outputFormat returns the ffmpeg muxer and file extension for a stream's
// codec family.
func outputFormat(codec string) (format string, ext string) {
	switch strings.ToLower(codec) {
	case "ass", "ssa":
		return "ass", "ass"
	case "webvtt", "vtt":
		return "webvtt", "vtt"
	default:
		return "srt", "srt"
	}
}

// ExtractionPath returns where a stream of videoPath is cached under cacheDir.
func ExtractionPath(videoPath string, cacheDir string, stream SubtitleStream) string {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	_, ext := outputFormat(stream.Codec)
	return filepath.Join(cacheDir, stem+"."+ext)
}

// ExtractStream writes one subtitle stream of videoPath to outputPath.
func (s *SubtitleExtractor) ExtractStream(ctx context.Context, videoPath string, stream SubtitleStream, outputPath string) error {
	format, _ := outputFormat(stream.Codec)
	args := ffmpeg_go.Input(videoPath).
		Output(outputPath, ffmpeg_go.KwArgs{
			"map":    fmt.Sprintf("0:%d", stream.Index),
			"format": format,
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()

	name := s.tools.ffmpeg()
	result, err := s.runner.Run(ctx, name, args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		return &ToolError{Tool: name, ExitCode: result.ExitCode, Output: result.Output()}
	}
	return nil
}

// ExtractBest probes videoPath, picks the best subtitle stream and extracts
// it into cacheDir. It reports false when the video has no subtitle streams.
// A stream already present in the cache is not extracted again.
func (s *SubtitleExtractor) ExtractBest(ctx context.Context, videoPath string, cacheDir string) (string, bool, error) {
	streams, err := s.ProbeStreams(ctx, videoPath)
	if err != nil {
		return "", false, err
	}
	stream, ok := SelectBestStream(streams)
	if !ok {
		return "", false, nil
	}

	outputPath := ExtractionPath(videoPath, cacheDir, stream)
	if info, err := os.Stat(outputPath); err == nil && info.Size() > 0 {
		log.Debug().Str("video", videoPath).Str("path", outputPath).Msg("using cached subtitle extraction")
		return outputPath, true, nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", false, fmt.Errorf("error creating subtitle cache directory: %w", err)
	}

	log.Info().
		Str("video", videoPath).
		Int("stream", stream.Index).
		Str("codec", stream.Codec).
		Str("language", stream.Language).
		Msg("extracting embedded subtitle stream")

	if err := s.ExtractStream(ctx, videoPath, stream, outputPath); err != nil {
		return "", false, err
	}
	return outputPath, true, nil
}
