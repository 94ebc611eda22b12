// Package commands implements the CLI commands for wiki2docs.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wiki2docs/internal/config"
	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/internal/pipeline"
	"github.com/jmylchreest/wiki2docs/pkg/cleaner"
)

var rootCmd = &cobra.Command{
	Use:   "wiki2docs",
	Short: "Migrate a MediaWiki site to a Docusaurus Markdown corpus",
	Long: `wiki2docs fetches every page of a MediaWiki site, cleans the wiki chrome,
converts the content to MDX-safe Markdown and writes one directory per page,
grouped by category, together with its images and downloads.

Examples:
  # Migrate a public wiki
  wiki2docs migrate -w https://wiki.example.com/ -o site/wiki

  # Use a config file and basic auth from the environment
  WIKI2DOCS_PASSWORD=secret wiki2docs migrate --config wiki2docs.yaml

  # Check how a single page converts
  wiki2docs convert https://wiki.example.com/wiki/Main_Page`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.wiki2docs.yaml or ./.wiki2docs.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initLogging() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// buildPipeline creates the per-document stages from cfg. raw skips cleaning.
func buildPipeline(cfg *config.Config, raw bool) (*pipeline.Pipeline, error) {
	opts := pipeline.Options{
		Cleaner:            cfg.Cleaner(),
		Assets:             cfg.Assets(),
		Rewrites:           cfg.Rewrites(),
		ExcludedCategories: cfg.ExcludedCategories,
	}
	if raw {
		opts.Cleaner = cleaner.NewNoop()
	}
	return pipeline.New(opts)
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
