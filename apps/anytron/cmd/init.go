package anytron

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [input_dir]",
	Short: "Write a default anytron.toml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		path := filepath.Join(dir, ConfigFileName)
		if err := WriteDefaultConfig(path, force); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")

	rootCmd.AddCommand(initCmd)
}
