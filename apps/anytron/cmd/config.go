package anytron

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jaym/anytron/api"
	"github.com/jaym/anytron/discovery"
	processor "github.com/jaym/anytron/processors"
)

// ConfigFileName is looked up in the input directory when --config is not given.
const ConfigFileName = "anytron.toml"

type ShowConfig struct {
	Name        string `mapstructure:"name" toml:"name" json:"name"`
	Description string `mapstructure:"description" toml:"description" json:"description"`
	Slug        string `mapstructure:"slug" toml:"slug" json:"slug"`
	Seasons     []int  `mapstructure:"seasons" toml:"seasons" json:"seasons,omitempty"`
}

type FramesConfig struct {
	Quality    int `mapstructure:"quality" toml:"quality"`
	FrameWidth int `mapstructure:"frame_width" toml:"frame_width"`
	ThumbWidth int `mapstructure:"thumb_width" toml:"thumb_width"`
	Jobs       int `mapstructure:"jobs" toml:"jobs"`
}

type SiteConfig struct {
	Title          string `mapstructure:"title" toml:"title" json:"title"`
	BaseURL        string `mapstructure:"base_url" toml:"base_url" json:"base_url"`
	ThemeColor     string `mapstructure:"theme_color" toml:"theme_color" json:"theme_color"`
	EnableMemes    bool   `mapstructure:"enable_memes" toml:"enable_memes" json:"enable_memes"`
	MaxResults     int    `mapstructure:"max_results" toml:"max_results" json:"max_results"`
	ResultsPerPage int    `mapstructure:"results_per_page" toml:"results_per_page" json:"results_per_page"`
}

type SearchConfig struct {
	MinQueryLength int      `mapstructure:"min_query_length" toml:"min_query_length" json:"min_query_length"`
	Fuzzy          bool     `mapstructure:"fuzzy" toml:"fuzzy" json:"fuzzy"`
	ExactBoost     float64  `mapstructure:"exact_boost" toml:"exact_boost" json:"exact_boost"`
	Fields         []string `mapstructure:"fields" toml:"fields" json:"fields"`
}

type ToolsConfig struct {
	FFmpeg  string `mapstructure:"ffmpeg" toml:"ffmpeg"`
	FFprobe string `mapstructure:"ffprobe" toml:"ffprobe"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen" toml:"listen"`
}

type GifConfig struct {
	FontName       string  `mapstructure:"font_name" toml:"font_name"`
	FontColor      string  `mapstructure:"font_color" toml:"font_color"`
	FontsDir       string  `mapstructure:"fonts_dir" toml:"fonts_dir"`
	DesiredMaxSize float64 `mapstructure:"desired_max_size" toml:"desired_max_size" comment:"MB"`
}

type Config struct {
	Show   ShowConfig   `mapstructure:"show" toml:"show"`
	Frames FramesConfig `mapstructure:"frames" toml:"frames"`
	Site   SiteConfig   `mapstructure:"site" toml:"site"`
	Search SearchConfig `mapstructure:"search" toml:"search"`
	Tools  ToolsConfig  `mapstructure:"tools" toml:"tools"`
	Server ServerConfig `mapstructure:"server" toml:"server"`
	Gif    GifConfig    `mapstructure:"gif" toml:"gif"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Show: ShowConfig{Name: "My Show"},
		Frames: FramesConfig{
			Quality:    processor.DefaultQuality,
			ThumbWidth: processor.DefaultThumbWidth,
		},
		Site: SiteConfig{
			Title:          "Anytron",
			ThemeColor:     "#1a1a2e",
			EnableMemes:    true,
			MaxResults:     100,
			ResultsPerPage: 50,
		},
		Search: SearchConfig{
			MinQueryLength: 2,
			Fuzzy:          true,
			ExactBoost:     2.0,
			Fields:         []string{"text"},
		},
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Server: ServerConfig{Listen: "127.0.0.1:8080"},
		Gif:    GifConfig{DesiredMaxSize: 2},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("show.name", d.Show.Name)
	v.SetDefault("show.description", d.Show.Description)
	v.SetDefault("show.slug", d.Show.Slug)
	v.SetDefault("show.seasons", d.Show.Seasons)
	v.SetDefault("frames.quality", d.Frames.Quality)
	v.SetDefault("frames.frame_width", d.Frames.FrameWidth)
	v.SetDefault("frames.thumb_width", d.Frames.ThumbWidth)
	v.SetDefault("frames.jobs", d.Frames.Jobs)
	v.SetDefault("site.title", d.Site.Title)
	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.theme_color", d.Site.ThemeColor)
	v.SetDefault("site.enable_memes", d.Site.EnableMemes)
	v.SetDefault("site.max_results", d.Site.MaxResults)
	v.SetDefault("site.results_per_page", d.Site.ResultsPerPage)
	v.SetDefault("search.min_query_length", d.Search.MinQueryLength)
	v.SetDefault("search.fuzzy", d.Search.Fuzzy)
	v.SetDefault("search.exact_boost", d.Search.ExactBoost)
	v.SetDefault("search.fields", d.Search.Fields)
	v.SetDefault("tools.ffmpeg", d.Tools.FFmpeg)
	v.SetDefault("tools.ffprobe", d.Tools.FFprobe)
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("gif.font_name", d.Gif.FontName)
	v.SetDefault("gif.font_color", d.Gif.FontColor)
	v.SetDefault("gif.fonts_dir", d.Gif.FontsDir)
	v.SetDefault("gif.desired_max_size", d.Gif.DesiredMaxSize)
}

// LoadConfig reads configPath, or anytron.toml in inputDir when configPath is
// empty, on top of the defaults. A missing default file is not an error. The
// given flags, keyed by config key, override file values when set.
func LoadConfig(inputDir string, configPath string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("ANYTRON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(inputDir, ConfigFileName)
	}
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	}

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Frames.Quality = processor.ClampQuality(config.Frames.Quality)
	return &config, nil
}

// WriteDefaultConfig writes the default configuration as TOML to path.
func WriteDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) preprocessorConfig(skipFrames bool, seasons []int, episodes []string) processor.PreprocessorConfig {
	if len(seasons) == 0 {
		seasons = c.Show.Seasons
	}
	return processor.PreprocessorConfig{
		Scanner: discovery.ScannerConfig{
			Seasons:  seasons,
			Episodes: episodes,
		},
		Frames: processor.FrameExtractorConfig{
			Quality:    c.Frames.Quality,
			FrameWidth: c.Frames.FrameWidth,
			ThumbWidth: c.Frames.ThumbWidth,
			Jobs:       c.Frames.Jobs,
		},
		Tools:        c.tools(),
		SearchFields: c.Search.Fields,
		SkipFrames:   skipFrames,
	}
}

func (c *Config) tools() processor.ToolsConfig {
	return processor.ToolsConfig{FFmpeg: c.Tools.FFmpeg, FFprobe: c.Tools.FFprobe}
}

func (c *Config) gifOptions() processor.GifOptions {
	return processor.GifOptions{
		FontName:       c.Gif.FontName,
		FontColor:      c.Gif.FontColor,
		FontsDir:       c.Gif.FontsDir,
		DesiredMaxSize: int(c.Gif.DesiredMaxSize * 1024 * 1024),
	}
}

func (c *Config) searchOptions() api.SearchOptions {
	return api.SearchOptions{Prefix: c.Search.Fuzzy, MaxResults: c.Site.MaxResults}
}
