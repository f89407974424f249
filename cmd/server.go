package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kaylum54/Cliperus-V2/config"
	server2 "github.com/kaylum54/Cliperus-V2/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the clip automation service",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
