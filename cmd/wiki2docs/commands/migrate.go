package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wiki2docs/internal/config"
	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/internal/migrator"
	"github.com/jmylchreest/wiki2docs/internal/output"
	"github.com/jmylchreest/wiki2docs/internal/pipeline"
	"github.com/jmylchreest/wiki2docs/pkg/fetcher"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate every page of a wiki into the output directory",
	Long: `Migrate lists all categories and pages of the wiki, converts each page to
Markdown and writes it to <output-dir>/<Category>/<Title>/index.md together with
its images and downloads. Internal links are resolved once every page is known.
A _category_.json is written per category and sidebars.js at --sidebar.

Examples:
  wiki2docs migrate -w https://wiki.example.com/ -o site/wiki --sidebar site/sidebars.js

  # Keep a machine-readable record of the run
  wiki2docs migrate -w https://wiki.example.com/ --report migration.jsonl --report-format jsonl`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	flags := migrateCmd.Flags()

	// Source
	flags.StringP("wiki-url", "w", "", "base URL of the wiki (required)")
	flags.String("article-path", "/wiki/$1", "article path pattern, $1 is the title")
	flags.String("username", "", "basic auth user")
	flags.String("password", "", "basic auth password (or WIKI2DOCS_PASSWORD)")

	// Output
	flags.StringP("output-dir", "o", "out/wiki", "corpus output directory")
	flags.String("sidebar", "out/sidebars.js", "sidebars.js output path (empty to skip)")
	flags.String("report", "", "write a run report to this file")
	flags.String("report-format", "json", "report format: json, jsonl, yaml")

	// Fetch settings
	flags.Float64("requests-per-second", 0, "request rate limit (0=unlimited)")
	flags.Int("max-retries", 3, "retries for failed requests")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.String("max-asset-size", "50MB", "max asset size (e.g., 10MB, 0=unlimited)")

	// Categories
	flags.Bool("include-redirects", true, "migrate redirect pages as documents")
	flags.String("default-category", "General Information", "category for pages nothing else matches")

	bindFlags(migrateCmd, map[string]string{
		"wiki_url":            "wiki-url",
		"article_path":        "article-path",
		"username":            "username",
		"password":            "password",
		"output_dir":          "output-dir",
		"sidebar_path":        "sidebar",
		"report_path":         "report",
		"report_format":       "report-format",
		"requests_per_second": "requests-per-second",
		"max_retries":         "max-retries",
		"timeout":             "timeout",
		"max_asset_size":      "max-asset-size",
		"include_redirects":   "include-redirects",
		"default_category":    "default-category",
	})
}

// bindFlags binds config keys to flags of cmd.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("migrate command starting")

	cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		logError("%v", err)
		return err
	}
	logger.Debug("config loaded",
		"wiki_url", cfg.WikiURL,
		"output_dir", cfg.OutputDir,
		"max_asset_size", cfg.MaxAssetSize,
		"category_rules", len(cfg.CategoryRules))

	client, err := fetcher.NewClient(cfg.Fetcher())
	if err != nil {
		logError("create fetcher: %v", err)
		return err
	}

	p, err := buildPipeline(cfg, false)
	if err != nil {
		logError("create pipeline: %v", err)
		return err
	}

	corpus, err := output.NewCorpus(cfg.OutputDir)
	if err != nil {
		logError("create output directory: %v", err)
		return err
	}

	m := migrator.New(client, p, corpus, migrator.Options{
		WikiURL:          cfg.WikiURL,
		IncludeRedirects: cfg.IncludeRedirects,
		SidebarPath:      cfg.SidebarPath,
		Policy: pipeline.CategoryPolicy{
			Rules:    cfg.CategoryRules,
			Default:  cfg.DefaultCategory,
			Redirect: cfg.RedirectCategory,
		},
	})

	report, runErr := m.Run(ctx)

	// A partial report is still worth keeping after a cancelled run.
	if cfg.ReportPath != "" && report != nil {
		format, err := output.ParseFormat(cfg.ReportFormat)
		if err == nil {
			err = output.WriteReportFile(cfg.ReportPath, format, report)
		}
		if err != nil {
			logger.Error("failed to write report", "path", cfg.ReportPath, "error", err)
		} else {
			logger.Info("report written", "path", cfg.ReportPath, "format", format)
		}
	}

	if runErr != nil {
		logError("migration failed: %v", runErr)
		return runErr
	}
	return nil
}
