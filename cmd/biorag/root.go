package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"biorag/internal/app"
	"biorag/internal/config"
	"biorag/internal/logging"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "biorag",
	Short: "Recommend bioinformatics tools from the bio.tools catalog",
	Long: `biorag harvests tool metadata from the bio.tools registry, stores it in a
vector database and answers questions like "which tool aligns protein
sequences?" with a language model grounded in the retrieved tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/biorag/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadApp reads the configuration and assembles the components. Callers must
// Close the returned App.
func loadApp() (*app.App, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(debug || cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	_ = a.Close()
	_ = a.Logger.Sync()
}
