package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "netsim",
	Short: "Network-type similarity from classifier ensembles",
	Long: `netsim runs a classifier many times over labeled network features,
folds the confusion matrices into a similarity between network types and
reports which features separate them best.`,
	SilenceUsage: true,
}

var configFile string

func main() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (yaml, json or toml)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the optional configuration file on top of the defaults
func loadConfig() (*pipeline.Config, error) {
	cfg := pipeline.NewConfig()
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
