package anytron

import (
	"github.com/spf13/cobra"

	processor "github.com/jaym/anytron/processors"
	"github.com/jaym/anytron/subtitle"
)

var makeCmd = &cobra.Command{
	Use:   "make",
	Short: "Make media from a video",
}

var gifCmd = &cobra.Command{
	Use:  "gif input_file output_file",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetUint64("start")
		end, _ := cmd.Flags().GetUint64("end")
		text, _ := cmd.Flags().GetString("text")
		configPath, _ := cmd.Flags().GetString("config")

		config, err := LoadConfig(".", configPath, nil)
		if err != nil {
			return err
		}
		opts := config.gifOptions()
		opts.Caption = text
		if cmd.Flags().Changed("font-name") {
			opts.FontName, _ = cmd.Flags().GetString("font-name")
		}
		if cmd.Flags().Changed("font-color") {
			opts.FontColor, _ = cmd.Flags().GetString("font-color")
		}
		if cmd.Flags().Changed("fonts-dir") {
			opts.FontsDir, _ = cmd.Flags().GetString("fonts-dir")
		}
		if cmd.Flags().Changed("desired-max-size") {
			desiredMaxSize, _ := cmd.Flags().GetFloat32("desired-max-size")
			opts.DesiredMaxSize = int(desiredMaxSize * 1024 * 1024)
		}

		gifs := processor.NewGifMaker(processor.ExecRunner{}, config.tools())
		return gifs.Make(cmd.Context(), args[0], args[1], subtitle.Timestamp(start), subtitle.Timestamp(end), opts)
	},
}

func init() {
	gifCmd.Flags().Uint64("start", 0, "start time in milliseconds")
	gifCmd.Flags().Uint64("end", 0, "end time in milliseconds")
	gifCmd.Flags().String("text", "", "text to overlay on the gif")
	gifCmd.Flags().String("font-name", "", "font name")
	gifCmd.Flags().String("font-color", "", "font color")
	gifCmd.Flags().String("fonts-dir", "", "directory containing fonts")
	gifCmd.Flags().Float32("desired-max-size", 2.0, "desired max size in MB")
	gifCmd.Flags().StringP("config", "c", "", "config file (default ./anytron.toml)")
	gifCmd.MarkFlagRequired("start") // nolint: errcheck
	gifCmd.MarkFlagRequired("end")   // nolint: errcheck

	makeCmd.AddCommand(gifCmd)

	rootCmd.AddCommand(makeCmd)
}
