package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wiki2docs/internal/config"
	"github.com/jmylchreest/wiki2docs/internal/logger"
	"github.com/jmylchreest/wiki2docs/internal/pipeline"
	"github.com/jmylchreest/wiki2docs/pkg/fetcher"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|url>",
	Short: "Convert a single wiki page to Markdown",
	Long: `Convert runs one page through the cleaner and the Markdown stages and
prints the result. Links are left unresolved and assets are not downloaded.

The page may be a saved HTML file or a URL. For a file, --source-url sets the
URL the page was fetched from; it defaults to the article URL of the file name
under the configured wiki_url.

Examples:
  wiki2docs convert https://wiki.example.com/wiki/Main_Page

  # Inspect the converter without the MediaWiki cleaner
  wiki2docs convert saved/Main_Page.html --source-url https://wiki.example.com/wiki/Main_Page --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.String("source-url", "", "URL the page was fetched from")
	flags.String("category", "", "category for the front matter (default: from rules)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.Bool("raw", false, "skip the MediaWiki cleaner")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	input := args[0]
	sourceURL, _ := cmd.Flags().GetString("source-url")
	category, _ := cmd.Flags().GetString("category")
	outPath, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")

	cfg, err := config.Read(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		logError("%v", err)
		return err
	}

	remote := strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")

	var client *fetcher.Client
	if cfg.WikiURL != "" || remote {
		fc := cfg.Fetcher()
		if fc.BaseURL == "" {
			fc.BaseURL = input
		}
		client, err = fetcher.NewClient(fc)
		if err != nil {
			logError("create fetcher: %v", err)
			return err
		}
	}

	var markup string
	switch {
	case remote:
		if sourceURL == "" {
			sourceURL = input
		}
		logger.Debug("fetching page", "url", input)
		content, err := client.FetchHTML(ctx, input)
		if err != nil {
			logError("%v", err)
			return err
		}
		markup = content.HTML
	default:
		data, err := os.ReadFile(input)
		if err != nil {
			logError("read %s: %v", input, err)
			return err
		}
		markup = string(data)
		if sourceURL == "" {
			if client == nil {
				err := fmt.Errorf("--source-url is required when wiki_url is not configured")
				logError("%v", err)
				return err
			}
			name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			sourceURL = client.ArticleURL(name)
		}
	}

	p, err := buildPipeline(cfg, raw)
	if err != nil {
		logError("create pipeline: %v", err)
		return err
	}

	page, err := p.Build(markup, sourceURL, false)
	if err != nil {
		logError("build: %v", err)
		return err
	}

	doc := page.Document
	if category != "" {
		doc.Category = wiki.NewCategory(category)
	} else {
		// Without the wiki's category list the page's own categories are
		// the known ones.
		known := make([]wiki.Category, len(page.Categories))
		for i, name := range page.Categories {
			known[i] = *wiki.NewCategory(name)
		}
		policy := pipeline.CategoryPolicy{
			Known:   known,
			Rules:   cfg.CategoryRules,
			Default: cfg.DefaultCategory,
		}
		doc.Category = policy.Assign(doc.Title, page.Categories, false)
	}

	md, err := p.Render(doc)
	if err != nil {
		logError("render: %v", err)
		return err
	}

	if outPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		logError("write %s: %v", outPath, err)
		return err
	}
	logger.Info("document written", "title", doc.Title, "category", doc.CategoryText(), "path", outPath)
	return nil
}
