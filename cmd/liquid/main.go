package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootConfig string
	verbose    bool
)

var rootCmd = cobra.Command{
	Use:           "liquid",
	Short:         "Resolve conditions, loops and substitutions in documentation templates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", defaultConfigPath, "Path to liquid configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	addRenderFlags(&renderCmd)
	rootCmd.AddCommand(&renderCmd)

	addRenderFlags(&sourcemapCmd)
	rootCmd.AddCommand(&sourcemapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
