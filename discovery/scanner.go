package discovery

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jaym/anytron/subtitle"
)

var (
	videoExtensions    = []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".webm", ".m4v"}
	subtitleExtensions = []string{".srt", ".ass", ".ssa", ".vtt"}
)

// CacheDirName is the directory under the scan root that holds subtitles
// extracted from video containers.
const CacheDirName = ".anytron_cache"

// SubtitleSource says where an episode's subtitle file came from. It is
// either ExternalSource or EmbeddedSource.
type SubtitleSource interface {
	isSubtitleSource()
}

// ExternalSource is a subtitle file found next to the video.
type ExternalSource struct {
	Path string
}

// EmbeddedSource is a subtitle track extracted from the video container.
type EmbeddedSource struct {
	VideoPath     string
	ExtractedPath string
}

func (ExternalSource) isSubtitleSource() {}
func (EmbeddedSource) isSubtitleSource() {}

// Episode is a video paired with the subtitle file chosen for it.
type Episode struct {
	ID           EpisodeID
	VideoPath    string
	SubtitlePath string
	Source       SubtitleSource
}

// ParseSubtitles parses the episode's subtitle file.
func (e Episode) ParseSubtitles() ([]subtitle.Entry, error) {
	return subtitle.ParseFile(e.SubtitlePath)
}

// EmbeddedExtractor extracts the best embedded subtitle track of a video into
// cacheDir. It reports false when the container has no subtitle tracks.
type EmbeddedExtractor interface {
	ExtractBest(ctx context.Context, videoPath string, cacheDir string) (string, bool, error)
}

type ScannerConfig struct {
	// Seasons restricts the scan to these seasons when non-empty.
	Seasons []int `mapstructure:"seasons"`
	// Episodes restricts the scan to these SxxEyy ids when non-empty.
	Episodes []string `mapstructure:"episodes"`
	// CacheDir overrides where embedded subtitles are extracted to.
	CacheDir string `mapstructure:"cache_dir"`
}

// Scanner discovers episodes under a root directory.
type Scanner struct {
	root      string
	seasons   map[int]bool
	episodes  []string
	cacheDir  string
	extractor EmbeddedExtractor
}

// NewScanner creates a Scanner for root. extractor may be nil, in which case
// videos without an external subtitle are dropped.
func NewScanner(root string, cfg ScannerConfig, extractor EmbeddedExtractor) *Scanner {
	seasons := make(map[int]bool, len(cfg.Seasons))
	for _, season := range cfg.Seasons {
		seasons[season] = true
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(root, CacheDirName, "subtitles")
	}
	return &Scanner{
		root:      root,
		seasons:   seasons,
		episodes:  cfg.Episodes,
		cacheDir:  cacheDir,
		extractor: extractor,
	}
}

// Scan walks the root, pairs videos with subtitles by episode id and returns
// the resolved episodes sorted by id.
func (s *Scanner) Scan(ctx context.Context) ([]Episode, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, &DiscoveryError{Root: s.root, Err: err}
	}

	videos := make(map[EpisodeID]string)
	subtitles := make(map[EpisodeID][]string)

	walkFollowingLinks(s.root, func(path string) {
		ext := strings.ToLower(filepath.Ext(path))
		isVideo := slices.Contains(videoExtensions, ext)
		isSubtitle := slices.Contains(subtitleExtensions, ext)
		if !isVideo && !isSubtitle {
			return
		}

		id, err := ParseEpisodeID(filepath.Base(path))
		if err != nil {
			log.Debug().Str("path", path).Msg("skipping file without episode id")
			return
		}
		if !s.accepts(id) {
			return
		}

		if isVideo {
			if existing, ok := videos[id]; ok {
				log.Debug().Str("episode", id.String()).Str("kept", existing).Str("ignored", path).Msg("duplicate video for episode")
				return
			}
			videos[id] = path
			return
		}
		subtitles[id] = append(subtitles[id], path)
	})

	ids := make([]EpisodeID, 0, len(videos))
	for id := range videos {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, EpisodeID.Compare)

	episodes := make([]Episode, 0, len(ids))
	for _, id := range ids {
		episode, ok := s.resolve(ctx, id, videos[id], subtitles[id])
		if ok {
			episodes = append(episodes, episode)
		}
	}

	if len(episodes) == 0 {
		return nil, &NoVideosFoundError{Root: s.root}
	}
	return episodes, nil
}

func (s *Scanner) accepts(id EpisodeID) bool {
	if len(s.seasons) > 0 && !s.seasons[id.Season] {
		return false
	}
	if len(s.episodes) > 0 {
		name := id.String()
		return slices.ContainsFunc(s.episodes, func(e string) bool {
			return strings.EqualFold(strings.TrimSpace(e), name)
		})
	}
	return true
}

// resolve picks the subtitle for one episode, preferring external files and
// falling back to an embedded track.
func (s *Scanner) resolve(ctx context.Context, id EpisodeID, videoPath string, candidates []string) (Episode, bool) {
	if path, ok := SelectExternalSubtitle(candidates); ok {
		log.Debug().Str("episode", id.String()).Str("subtitle", path).Msg("using external subtitle")
		return Episode{
			ID:           id,
			VideoPath:    videoPath,
			SubtitlePath: path,
			Source:       ExternalSource{Path: path},
		}, true
	}

	if s.extractor == nil {
		log.Warn().Str("episode", id.String()).Str("video", videoPath).Msg("no external subtitle found, skipping episode")
		return Episode{}, false
	}

	extracted, ok, err := s.extractor.ExtractBest(ctx, videoPath, s.cacheDir)
	if err != nil {
		log.Warn().Err(err).Str("episode", id.String()).Str("video", videoPath).Msg("failed to extract embedded subtitle, skipping episode")
		return Episode{}, false
	}
	if !ok {
		log.Warn().Str("episode", id.String()).Str("video", videoPath).Msg("no external file or embedded track, skipping episode")
		return Episode{}, false
	}

	log.Info().Str("episode", id.String()).Str("subtitle", extracted).Msg("extracted embedded subtitle")
	return Episode{
		ID:           id,
		VideoPath:    videoPath,
		SubtitlePath: extracted,
		Source:       EmbeddedSource{VideoPath: videoPath, ExtractedPath: extracted},
	}, true
}

// walkFollowingLinks calls fn for every regular file under root, descending
// into symlinked directories once per real path. Unreadable entries are skipped.
func walkFollowingLinks(root string, fn func(path string)) {
	visited := make(map[string]bool)
	var walk func(dir string)
	walk = func(dir string) {
		real, err := filepath.EvalSymlinks(dir)
		if err != nil || visited[real] {
			return
		}
		visited[real] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("skipping unreadable directory")
			return
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			switch {
			case info.IsDir():
				walk(path)
			case info.Mode().IsRegular():
				fn(path)
			}
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() {
			fn(root)
		}
		return
	}
	walk(root)
}
