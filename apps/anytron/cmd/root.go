package anytron

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "anytron",
	Short:         "Generate a searchable screenshot site from a TV show",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetCount("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		setupLogging(os.Stderr, verbose, quiet)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		var verbose interface{ VerboseError() string }
		if errors.As(err, &verbose) {
			log.Debug().Msg(verbose.VerboseError())
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-vv for trace)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func logLevel(verbose int, quiet bool) zerolog.Level {
	switch {
	case quiet:
		return zerolog.ErrorLevel
	case verbose >= 2:
		return zerolog.TraceLevel
	case verbose == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func setupLogging(out *os.File, verbose int, quiet bool) {
	zerolog.SetGlobalLevel(logLevel(verbose, quiet))
	var w io.Writer = out
	if isTerminal(out) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
