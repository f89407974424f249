package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kaylum54/Cliperus-V2/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{}
	rootCmd.AddCommand(server(config))
	return rootCmd
}
