package main

import (
	"fmt"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
)

var log = logging.Logger("proxilink")

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "proxilink",
	Short: "Location recommendation server",
	Long: `proxilink recommends places near a point or near the centroid of a group.
Nearby places are served from a cache and collected from Apple Maps and
Google Places when the cache has nothing in the area.

Configuration is read from PROXI_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		return logging.SetLogLevel("*", logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level for all subsystems (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, tokenCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
