package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jaym/anytron/discovery"
	"github.com/jaym/anytron/indexer"
	"github.com/jaym/anytron/metadata"
	"github.com/jaym/anytron/objstore"
	"github.com/jaym/anytron/subtitle"
)

type PreprocessorConfig struct {
	Scanner discovery.ScannerConfig `mapstructure:"scanner"`
	Frames  FrameExtractorConfig    `mapstructure:"frames"`
	Tools   ToolsConfig             `mapstructure:"tools"`
	// SearchFields are the index fields the site searches over.
	SearchFields []string `mapstructure:"search_fields"`
	// SkipFrames disables frame and thumbnail extraction.
	SkipFrames bool `mapstructure:"skip_frames"`
}

// Preprocessor turns a directory of episodes into the generated output tree:
// frames and thumbnails, the search index and the metadata database.
type Preprocessor struct {
	config    PreprocessorConfig
	runner    Runner
	subtitles *SubtitleExtractor
	frames    *FrameExtractor
	indexer   *indexer.Indexer

	// NewProgress, when set, is called once with the number of frame
	// extraction tasks before frame extraction starts.
	NewProgress func(total int) Progress
}

func NewPreprocessor(cfg PreprocessorConfig, runner Runner) *Preprocessor {
	return &Preprocessor{
		config:    cfg,
		runner:    runner,
		subtitles: NewSubtitleExtractor(runner, cfg.Tools),
		frames:    NewFrameExtractor(cfg.Frames, runner, cfg.Tools),
		indexer:   indexer.NewIndexer(cfg.SearchFields),
	}
}

// Report summarizes a completed run.
type Report struct {
	RunID    string
	Episodes int
	Entries  int
	Duration time.Duration
}

// Scan discovers the episodes under inputDir, extracting embedded subtitles
// where no external file exists.
func (p *Preprocessor) Scan(ctx context.Context, inputDir string) ([]discovery.Episode, error) {
	return discovery.NewScanner(inputDir, p.config.Scanner, p.subtitles).Scan(ctx)
}

// Parse parses the subtitles of every episode.
func (p *Preprocessor) Parse(episodes []discovery.Episode) ([]indexer.EpisodeEntries, error) {
	parsed := make([]indexer.EpisodeEntries, 0, len(episodes))
	for _, episode := range episodes {
		entries, err := episode.ParseSubtitles()
		if err != nil {
			return nil, fmt.Errorf("error parsing subtitles for %s: %w", episode.ID, err)
		}
		log.Debug().Str("episode", episode.ID.String()).Int("entries", len(entries)).Msg("parsed subtitles")
		parsed = append(parsed, indexer.EpisodeEntries{Episode: episode, Entries: entries})
	}
	return parsed, nil
}

// Process runs the whole pipeline. Episodes are handled one after another;
// a frame extraction failure stops the run, keeping the frames already written.
func (p *Preprocessor) Process(ctx context.Context, inputDir string, outputDir string) (*Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	log.Info().
		Interface("config", p.config).
		Str("inputDir", inputDir).
		Str("outputDir", outputDir).
		Str("runId", runID).
		Msg("processing files")

	episodes, err := p.Scan(ctx, inputDir)
	if err != nil {
		return nil, err
	}
	log.Info().Int("episodes", len(episodes)).Msg("discovered episodes")

	parsed, err := p.Parse(episodes)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, e := range parsed {
		total += len(e.Entries)
	}
	log.Info().Int("entries", total).Msg("parsed subtitles")

	if p.config.SkipFrames {
		log.Info().Msg("skipping frame extraction")
	} else {
		if err := CheckTools(ctx, p.runner, p.config.Tools); err != nil {
			return nil, err
		}
		var progress Progress
		if p.NewProgress != nil {
			progress = p.NewProgress(p.frameTasks(parsed, outputDir))
		}
		for _, e := range parsed {
			log.Info().Str("episode", e.Episode.ID.String()).Int("entries", len(e.Entries)).Msg("extracting frames")
			if err := p.frames.ExtractFrames(ctx, e.Episode, e.Entries, outputDir, progress); err != nil {
				return nil, fmt.Errorf("error extracting frames for %s: %w", e.Episode.ID, err)
			}
		}
	}

	store := objstore.NewLocalFS(outputDir)
	index := p.indexer.Build(parsed, runID)
	if err := p.indexer.Write(store, index); err != nil {
		return nil, err
	}
	log.Info().Int("entries", index.Meta.Total).Msg("wrote search index")

	if err := p.writeDatabase(store, parsed, runID, started); err != nil {
		return nil, err
	}

	return &Report{
		RunID:    runID,
		Episodes: len(parsed),
		Entries:  total,
		Duration: time.Since(started),
	}, nil
}

// frameTasks counts the extraction tasks of a run. Entries sharing a
// midpoint count once.
func (p *Preprocessor) frameTasks(parsed []indexer.EpisodeEntries, outputDir string) int {
	n := 0
	for _, e := range parsed {
		n += len(p.frames.Tasks(e.Episode, e.Entries, outputDir))
	}
	return n
}

func (p *Preprocessor) writeDatabase(store *objstore.LocalFS, parsed []indexer.EpisodeEntries, runID string, started time.Time) error {
	dbPath, err := store.Path(objstore.DatabaseKey)
	if err != nil {
		return err
	}
	builder, err := metadata.NewDatabaseBuilder(dbPath)
	if err != nil {
		return fmt.Errorf("error creating metadata database: %w", err)
	}
	if err := builder.AddRun(runID, started); err != nil {
		builder.Abort()
		return err
	}
	for _, e := range parsed {
		if err := builder.AddEpisodeMetadata(NewEpisodeMetadata(e)); err != nil {
			builder.Abort()
			return fmt.Errorf("error storing %s: %w", e.Episode.ID, err)
		}
	}
	if err := builder.Build(); err != nil {
		return fmt.Errorf("error building metadata database: %w", err)
	}
	log.Info().Str("path", dbPath).Msg("wrote metadata database")
	return nil
}

// NewEpisodeMetadata converts a parsed episode into its database record.
func NewEpisodeMetadata(e indexer.EpisodeEntries) metadata.EpisodeMetadata {
	code := e.Episode.ID.String()
	m := metadata.EpisodeMetadata{
		Season:         e.Episode.ID.Season,
		Episode:        e.Episode.ID.Episode,
		Code:           code,
		VideoPath:      absPath(e.Episode.VideoPath),
		SubtitlePath:   absPath(e.Episode.SubtitlePath),
		SubtitleSource: sourceName(e.Episode.Source),
		Subtitles:      make([]metadata.SubtitleMetadata, 0, len(e.Entries)),
	}
	seen := make(map[subtitle.Timestamp]bool, len(e.Entries))
	for _, entry := range e.Entries {
		mid := entry.Midpoint()
		m.Subtitles = append(m.Subtitles, metadata.SubtitleMetadata{
			Index:     entry.Index,
			Start:     entry.Start.Millis(),
			End:       entry.End.Millis(),
			Midpoint:  mid.Millis(),
			Text:      entry.Text,
			TextClean: entry.TextClean,
		})
		if seen[mid] {
			continue
		}
		seen[mid] = true
		m.Frames = append(m.Frames, metadata.FrameMetadata{
			Timestamp: mid.Millis(),
			FrameKey:  objstore.FrameKey(code, mid.Millis()),
			ThumbKey:  objstore.ThumbKey(code, mid.Millis()),
		})
	}
	return m
}

func sourceName(source discovery.SubtitleSource) string {
	switch source.(type) {
	case discovery.EmbeddedSource:
		return "embedded"
	default:
		return "external"
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
