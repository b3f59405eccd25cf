package anytron

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jaym/anytron/objstore"
	processor "github.com/jaym/anytron/processors"
)

// SiteManifest is written next to the search index for the front end.
type SiteManifest struct {
	Show   ShowConfig   `json:"show"`
	Site   SiteConfig   `json:"site"`
	Search SearchConfig `json:"search"`
	RunID  string       `json:"run_id"`
}

var generateCmd = &cobra.Command{
	Use:   "generate input_dir",
	Short: "Extract frames and build the search index and database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputDir := args[0]
		outputDir, _ := cmd.Flags().GetString("output")
		configPath, _ := cmd.Flags().GetString("config")
		skipFrames, _ := cmd.Flags().GetBool("skip-frames")
		clean, _ := cmd.Flags().GetBool("clean")
		seasons, _ := cmd.Flags().GetIntSlice("seasons")
		episodes, _ := cmd.Flags().GetStringSlice("episodes")

		config, err := LoadConfig(inputDir, configPath, generateFlags(cmd.Flags()))
		if err != nil {
			return err
		}

		if clean {
			log.Info().Str("output", outputDir).Msg("cleaning output directory")
			if err := os.RemoveAll(outputDir); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return err
		}

		lock := flock.New(filepath.Join(outputDir, objstore.LockKey))
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("error locking %s: %w", outputDir, err)
		}
		if !locked {
			return fmt.Errorf("another generate run is using %s", outputDir)
		}
		defer lock.Unlock() // nolint: errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := processor.NewPreprocessor(config.preprocessorConfig(skipFrames, seasons, episodes), processor.ExecRunner{})
		if isTerminal(os.Stderr) {
			p.NewProgress = newProgressBar
		}

		report, err := p.Process(ctx, inputDir, outputDir)
		if err != nil {
			return err
		}

		if err := writeManifest(objstore.NewLocalFS(outputDir), config, report.RunID); err != nil {
			return err
		}

		log.Info().
			Str("runId", report.RunID).
			Int("episodes", report.Episodes).
			Int("entries", report.Entries).
			Dur("duration", report.Duration).
			Msg("generation complete")
		cmd.Printf("Generated %d episodes with %d subtitles into %s\n", report.Episodes, report.Entries, outputDir)
		return nil
	},
}

func generateFlags(flags *pflag.FlagSet) map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"frames.jobs":        flags.Lookup("jobs"),
		"frames.quality":     flags.Lookup("quality"),
		"frames.thumb_width": flags.Lookup("thumb-width"),
	}
}

func newProgressBar(total int) processor.Progress {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("extracting frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

func writeManifest(store objstore.ObjectWriter, config *Config, runID string) error {
	w, err := store.Create(objstore.SiteManifestKey)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(SiteManifest{
		Show:   config.Show,
		Site:   config.Site,
		Search: config.Search,
		RunID:  runID,
	}); err != nil {
		w.Close() // nolint: errcheck
		return err
	}
	return w.Close()
}

func init() {
	generateCmd.Flags().StringP("output", "o", "./dist", "output directory")
	generateCmd.Flags().StringP("config", "c", "", "config file (default <input_dir>/anytron.toml)")
	generateCmd.Flags().IntP("jobs", "j", 0, "parallel frame extractions (0 = number of CPUs)")
	generateCmd.Flags().Bool("skip-frames", false, "skip frame and thumbnail extraction")
	generateCmd.Flags().IntSlice("seasons", nil, "only process these seasons")
	generateCmd.Flags().StringSlice("episodes", nil, "only process these episodes (e.g. S01E02)")
	generateCmd.Flags().Int("quality", processor.DefaultQuality, "JPEG quality (1-100)")
	generateCmd.Flags().Int("thumb-width", processor.DefaultThumbWidth, "thumbnail width in pixels")
	generateCmd.Flags().Bool("clean", false, "remove the output directory first")

	rootCmd.AddCommand(generateCmd)
}
