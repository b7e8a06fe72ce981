package main

//	@title						WardWatch API
//	@version					0.1.0
//	@description				Bedside vital-sign monitoring with clearance-gated access and an activity audit log.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HerbHall/wardwatch/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "wardwatch",
		Short:         "Bedside vital-sign monitoring server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")

	root.AddCommand(
		serveCmd(&configPath),
		versionCmd(),
		tokenCmd(&configPath),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
