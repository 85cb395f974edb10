package cmd

import (
	"fmt"
	"os"

	"github.com/rangepull/rangepull/internal/config"
	"github.com/rangepull/rangepull/internal/utils"

	"github.com/spf13/cobra"
)

// Version information - set via ldflags during build.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "rangepull",
	Short:   "A resumable, multi-connection HTTP downloader",
	Long:    `rangepull fetches a URL over several concurrent Range requests, checkpointing progress so an interrupted download resumes instead of restarting.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to prepare config directories: %v\n", err)
	}
	utils.CleanupLogs(10)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Also log the get command's startup line to the debug log file (engine diagnostics are always logged)")
	rootCmd.SetVersionTemplate("rangepull version {{.Version}}\n")
}
