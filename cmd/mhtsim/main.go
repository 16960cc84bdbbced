package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mhtsim/domain/core"
	"mhtsim/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	var configPath string
	rootCmd := &cobra.Command{
		Use:   "mhtsim",
		Short: "Monte Carlo study of multiple-testing corrections",
		Long: "mhtsim estimates the false discovery proportion and power of the\n" +
			"Bonferroni, Hochberg and Benjamini-Hochberg procedures over a grid of\n" +
			"hypothesis counts and null proportions.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (environment variables still win)")

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFile(configPath)
		}
		return config.Load()
	}

	rootCmd.AddCommand(
		newRunCmd(load),
		newBaselineCmd(load),
		newProfileCmd(load),
		newShowCmd(),
		newHistoryCmd(load),
		newMigrateCmd(load),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for invalid input (bad configuration, pattern or method) and
// 1 for every other failure
func exitCode(err error) int {
	if core.IsMisuseError(err) {
		return 2
	}
	return 1
}
