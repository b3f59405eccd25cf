package anytron

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jaym/anytron/api"
	"github.com/jaym/anytron/metadata"
	"github.com/jaym/anytron/objstore"
	processor "github.com/jaym/anytron/processors"
)

var serveCmd = &cobra.Command{
	Use:   "serve [output_dir]",
	Short: "Serve a generated site and its API",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "./dist"
		if len(args) == 1 {
			dir = args[0]
		}
		configPath, _ := cmd.Flags().GetString("config")

		config, err := LoadConfig(dir, configPath, nil)
		if err != nil {
			return err
		}
		addr := config.Server.Listen
		if cmd.Flags().Changed("port") || cmd.Flags().Changed("bind") {
			bind, _ := cmd.Flags().GetString("bind")
			port, _ := cmd.Flags().GetInt("port")
			addr = net.JoinHostPort(bind, strconv.Itoa(port))
		}

		store := objstore.NewLocalFS(dir)
		dbPath, err := store.Path(objstore.DatabaseKey)
		if err != nil {
			return err
		}
		if !store.Exists(objstore.DatabaseKey) {
			return fmt.Errorf("no %s in %s, run generate first", objstore.DatabaseKey, dir)
		}
		db, err := metadata.OpenDatabase(dbPath)
		if err != nil {
			return err
		}
		defer db.Close() // nolint: errcheck

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return err
		}

		runner := processor.ExecRunner{}
		frames := processor.NewFrameExtractor(processor.FrameExtractorConfig{
			Quality:    config.Frames.Quality,
			FrameWidth: config.Frames.FrameWidth,
			ThumbWidth: config.Frames.ThumbWidth,
		}, runner, config.tools())
		gifs := processor.NewGifMaker(runner, config.tools())

		httpHandler := api.NewApiHandler(db, store, frames, gifs, config.gifOptions(), config.searchOptions())

		log.Info().
			Str("addr", addr).
			Str("dir", dir).
			Int("episodes", stats.Episodes).
			Int("subtitles", stats.Subtitles).
			Msg("Listening")
		return http.ListenAndServe(addr, httpHandler)
	},
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "config file (default <output_dir>/anytron.toml)")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "address to bind to")

	rootCmd.AddCommand(serveCmd)
}
