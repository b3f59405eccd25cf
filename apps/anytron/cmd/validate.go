package anytron

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jaym/anytron/discovery"
	"github.com/jaym/anytron/indexer"
	processor "github.com/jaym/anytron/processors"
)

var ErrValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate input_dir",
	Short: "Check that every episode has parsable subtitles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		detailed, _ := cmd.Flags().GetBool("detailed")

		config, err := LoadConfig(args[0], configPath, nil)
		if err != nil {
			return err
		}

		p := processor.NewPreprocessor(config.preprocessorConfig(true, nil, nil), processor.ExecRunner{})
		if err := processor.CheckTools(cmd.Context(), processor.ExecRunner{}, config.tools()); err != nil {
			log.Warn().Err(err).Msg("frame extraction will not be possible")
		}

		episodes, err := p.Scan(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var parsed []indexer.EpisodeEntries
		failed := 0
		for _, episode := range episodes {
			entries, err := p.Parse([]discovery.Episode{episode})
			if err != nil {
				log.Error().Err(err).Str("episode", episode.ID.String()).Msg("invalid subtitles")
				failed++
				continue
			}
			parsed = append(parsed, entries...)
		}

		cmd.Println(renderTable(validateHeaders(detailed), validateRows(parsed, detailed), 2, 3))

		empty := 0
		for _, e := range parsed {
			if len(e.Entries) == 0 {
				log.Warn().Str("episode", e.Episode.ID.String()).Msg("no subtitle entries")
				empty++
			}
		}
		cmd.Printf("%d episodes, %d with invalid subtitles, %d without entries\n", len(episodes), failed, empty)
		if failed > 0 {
			return fmt.Errorf("%w: %d episodes have invalid subtitles", ErrValidationFailed, failed)
		}
		return nil
	},
}

func validateHeaders(detailed bool) []string {
	headers := []string{"Episode", "Source", "Entries", "Last"}
	if detailed {
		headers = append(headers, "Video", "Subtitles")
	}
	return headers
}

func validateRows(parsed []indexer.EpisodeEntries, detailed bool) [][]string {
	rows := make([][]string, 0, len(parsed))
	for _, e := range parsed {
		last := "-"
		if n := len(e.Entries); n > 0 {
			last = e.Entries[n-1].End.String()
		}
		row := []string{
			e.Episode.ID.String(),
			sourceLabel(e.Episode.Source),
			strconv.Itoa(len(e.Entries)),
			last,
		}
		if detailed {
			row = append(row, e.Episode.VideoPath, e.Episode.SubtitlePath)
		}
		rows = append(rows, row)
	}
	return rows
}

func sourceLabel(source discovery.SubtitleSource) string {
	if _, ok := source.(discovery.EmbeddedSource); ok {
		return "embedded"
	}
	return "external"
}

func init() {
	validateCmd.Flags().StringP("config", "c", "", "config file (default <input_dir>/anytron.toml)")
	validateCmd.Flags().Bool("detailed", false, "include file paths")

	rootCmd.AddCommand(validateCmd)
}
