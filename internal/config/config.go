package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/medusa/internal/crawler"
	"github.com/nao1215/medusa/internal/database"
)

// Default configuration values for the pagedepth command.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "medusa"

	// DefaultReadTimeout bounds each request. pagedepth only needs the link
	// graph, so a slow page is treated as a failure rather than waited for.
	DefaultReadTimeout = 3 * time.Second

	// DefaultDatabaseFile is the SQLite file name inside the data directory.
	DefaultDatabaseFile = database.FileName
)

// DefaultSkipLinks returns the link patterns pagedepth skips unless the user
// adds more. They match catalogue index pages that fan out to every product.
func DefaultSkipLinks() []string {
	return []string{`^/c/$`, `^/stores/$`}
}

// Config holds all options of a pagedepth run.
// This struct is populated from CLI flags and the configuration file and
// passed through the application rather than kept in global state.
//
// Design decision: The crawl options live in an embedded crawler.Config
// instead of being duplicated here. The crawler package owns their
// validation, and this struct only adds what the command itself needs:
// where to write the report and whether to record the run.
type Config struct {
	// Target is the root URL of the crawl.
	Target string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds the configuration file contents, if one was found.
	SiteConfigs *File

	// JSONReport writes the depth report as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the depth report as GitHub Flavored Markdown
	// with a table and a pie chart.
	MarkdownReport bool

	// OutputFile is where the report is written. Empty means stdout.
	OutputFile string

	// Save records the run in the history database.
	Save bool

	// DBDir is the directory of the history database.
	DBDir string

	// Crawl holds the crawler options.
	Crawl crawler.Config
}

// NewConfig returns a Config with the pagedepth defaults: a 3 second read
// timeout, page bodies discarded, robots.txt obeyed and the default skip
// patterns installed.
func NewConfig() *Config {
	crawl := crawler.DefaultConfig()
	crawl.ReadTimeout = DefaultReadTimeout
	crawl.DiscardPageBodies = true
	crawl.ObeyRobotsTxt = true
	crawl.SkipLinks = DefaultSkipLinks()

	return &Config{
		DBDir: XDGDataDir(),
		Crawl: crawl,
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Save && c.DBDir == "" {
		return ErrNoDatabaseDir
	}
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl options: %w", err)
	}
	return nil
}

// AddSkipLinks appends patterns not already present.
func (c *Config) AddSkipLinks(patterns ...string) {
	c.Crawl.SkipLinks = appendMissing(c.Crawl.SkipLinks, patterns...)
}

// DatabasePath returns the path of the history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DBDir, DefaultDatabaseFile)
}

// XDGDataDir returns the XDG data directory for medusa.
// Run history is stored here.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for medusa.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}
