package cli

import (
	"github.com/spf13/cobra"
)

// Version is surfaced through `lanprobe --version`.
const Version = "1.0.0"

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "lanprobe",
		Short:   "lanprobe is a point-to-point network throughput prober",
		Long:    "lanprobe streams fixed-size packets at a target rate over TCP or UDP and measures effective bandwidth, connection latency and first-packet latency on the receiving side.",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (TOML)")

	rootCmd.AddCommand(ServerCommand())
	rootCmd.AddCommand(ClientCommand())

	return rootCmd
}
