// Package config loads and validates wiki2docs settings from a YAML file,
// WIKI2DOCS_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wiki2docs/internal/output"
	"github.com/jmylchreest/wiki2docs/pkg/assets"
	"github.com/jmylchreest/wiki2docs/pkg/cleaner"
	"github.com/jmylchreest/wiki2docs/pkg/fetcher"
	"github.com/jmylchreest/wiki2docs/pkg/markdown"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// EnvPrefix is the prefix of environment overrides, e.g. WIKI2DOCS_WIKI_URL.
const EnvPrefix = "WIKI2DOCS"

// FileName is the config file looked up in $HOME and the working directory.
const FileName = ".wiki2docs"

// Config is the full set of migration settings.
type Config struct {
	WikiURL     string `mapstructure:"wiki_url" yaml:"wiki_url" validate:"required,url"`
	ArticlePath string `mapstructure:"article_path" yaml:"article_path" validate:"required,contains=$1"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`

	// SidebarPath is where sidebars.js is written. Empty disables it.
	SidebarPath string `mapstructure:"sidebar_path" yaml:"sidebar_path"`
	// ReportPath is where the run report is written. Empty disables it.
	ReportPath   string `mapstructure:"report_path" yaml:"report_path"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format" validate:"required,oneof=json jsonl yaml"`

	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" yaml:"burst" validate:"gte=0"`

	// MaxAssetSize is a human size such as "50MB". "0" means unlimited.
	MaxAssetSize string `mapstructure:"max_asset_size" yaml:"max_asset_size"`

	IncludeRedirects   bool                `mapstructure:"include_redirects" yaml:"include_redirects"`
	RedirectCategory   string              `mapstructure:"redirect_category" yaml:"redirect_category"`
	DefaultCategory    string              `mapstructure:"default_category" yaml:"default_category" validate:"required"`
	ExcludedCategories []string            `mapstructure:"excluded_categories" yaml:"excluded_categories"`
	CategoryRules      []wiki.CategoryRule `mapstructure:"category_rules" yaml:"category_rules" validate:"dive"`

	LinkRewrites    []markdown.Rewrite `mapstructure:"link_rewrites" yaml:"link_rewrites" validate:"dive"`
	RemoveSelectors []string           `mapstructure:"remove_selectors" yaml:"remove_selectors"`
	AssetExtensions []string           `mapstructure:"asset_extensions" yaml:"asset_extensions"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	fc := fetcher.DefaultConfig()
	return Config{
		ArticlePath:       fc.ArticlePath,
		OutputDir:         "out/wiki",
		SidebarPath:       "out/sidebars.js",
		ReportFormat:      string(output.FormatJSON),
		UserAgent:         fc.UserAgent,
		Timeout:           fc.Timeout,
		MaxRetries:        fc.MaxRetries,
		RetryBackoff:      fc.RetryBackoff,
		RequestsPerSecond: fc.RequestsPerSecond,
		Burst:             fc.Burst,
		MaxAssetSize:      "50MB",
		IncludeRedirects:  true,
		RedirectCategory:  "Weiterleitung",
		DefaultCategory:   "General Information",
		CategoryRules:     wiki.DefaultCategoryRules(),
		AssetExtensions:   assets.DefaultConfig().Extensions,
	}
}

// SetDefaults registers Defaults with v so that every key is known to
// viper, which AutomaticEnv needs for Unmarshal to see env overrides.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("wiki_url", d.WikiURL)
	v.SetDefault("article_path", d.ArticlePath)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("sidebar_path", d.SidebarPath)
	v.SetDefault("report_path", d.ReportPath)
	v.SetDefault("report_format", d.ReportFormat)
	v.SetDefault("username", d.Username)
	v.SetDefault("password", d.Password)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("retry_backoff", d.RetryBackoff)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("burst", d.Burst)
	v.SetDefault("max_asset_size", d.MaxAssetSize)
	v.SetDefault("include_redirects", d.IncludeRedirects)
	v.SetDefault("redirect_category", d.RedirectCategory)
	v.SetDefault("default_category", d.DefaultCategory)
	v.SetDefault("excluded_categories", d.ExcludedCategories)
	v.SetDefault("category_rules", d.CategoryRules)
	v.SetDefault("link_rewrites", d.LinkRewrites)
	v.SetDefault("remove_selectors", d.RemoveSelectors)
	v.SetDefault("asset_extensions", d.AssetExtensions)
}

// Read loads the config file (explicit path, or .wiki2docs.yaml in $HOME
// and the working directory) and environment overrides into v and decodes
// the result without validating it. A missing default file is not an error.
func Read(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load is Read followed by Validate.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg, err := Read(v, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the asset size expression.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.MaxAssetBytes(); err != nil {
		return err
	}
	return nil
}

// MaxAssetBytes parses MaxAssetSize. Empty and "0" mean unlimited.
func (c *Config) MaxAssetBytes() (int64, error) {
	if c.MaxAssetSize == "" || c.MaxAssetSize == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MaxAssetSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max_asset_size %q: %w", c.MaxAssetSize, err)
	}
	return int64(n), nil
}

// Fetcher returns the wiki client settings.
func (c *Config) Fetcher() fetcher.Config {
	maxAsset, _ := c.MaxAssetBytes()
	return fetcher.Config{
		BaseURL:           c.WikiURL,
		ArticlePath:       c.ArticlePath,
		UserAgent:         c.UserAgent,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RetryBackoff:      c.RetryBackoff,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		Username:          c.Username,
		Password:          c.Password,
		MaxAssetSize:      maxAsset,
	}
}

// Cleaner returns the MediaWiki cleaner, followed by a selector cleaner
// when extra selectors are configured.
func (c *Config) Cleaner() cleaner.Cleaner {
	mw := cleaner.NewMediaWiki(cleaner.DefaultConfig())
	if len(c.RemoveSelectors) == 0 {
		return mw
	}
	return cleaner.NewChain(mw, cleaner.NewSelector(c.RemoveSelectors...))
}

// Assets returns the asset locator settings.
func (c *Config) Assets() *assets.Config {
	ac := assets.DefaultConfig()
	if len(c.AssetExtensions) > 0 {
		ac.Extensions = c.AssetExtensions
	}
	return ac
}

// Rewrites returns the percent-encoding and host fixups followed by the
// configured link rewrites.
func (c *Config) Rewrites() []markdown.Rewrite {
	host := ""
	if u, err := url.Parse(c.WikiURL); err == nil {
		host = u.Host
	}
	return append(markdown.DefaultRewrites(host), c.LinkRewrites...)
}
