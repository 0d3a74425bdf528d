package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/medusa/internal/config"
	"github.com/nao1215/medusa/internal/crawler"
	"github.com/nao1215/medusa/internal/database"
	mlog "github.com/nao1215/medusa/internal/log"
	"github.com/nao1215/medusa/internal/model"
	"github.com/nao1215/medusa/internal/report"
)

// errInvalidRoot is returned by parseRoot for URLs that cannot start a crawl.
var errInvalidRoot = errors.New("root must be an absolute http or https URL")

// NewPageDepthCmd creates the pagedepth command.
func NewPageDepthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagedepth <url>",
		Short: "Count the pages at each link depth of a site",
		Long: `Pagedepth crawls every page reachable from the root URL on the same host,
computes the shortest link distance of each page from the root and prints
the number of pages per depth:

  Depth: 0 Count: 1
  Depth: 1 Count: 12
  Depth: 2 Count: 87

Redirects are followed but do not add a level, and http/https duplicates of
the same page are counted once. Pages that could not be reached are listed
in JSON and Markdown reports.

By default requests time out after 3 seconds, robots.txt is obeyed, page
bodies are dropped after link extraction and links matching ^/c/$ or
^/stores/$ are not followed.

Examples:
  # Count pages per depth
  medusa pagedepth https://example.com/

  # Eight workers, skip the shopping cart, stop below depth 5
  medusa pagedepth -T 8 -s '^/cart' -D 5 https://example.com/

  # Markdown report with a pie chart, saved to a file and to history
  medusa pagedepth --markdown -o report.md --save https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runPageDepthCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("threads", "T", crawler.DefaultThreads,
		"Number of concurrent workers")
	cmd.Flags().DurationP("delay", "d", 0,
		"Pause after each fetch, per worker")
	cmd.Flags().DurationP("timeout", "t", config.DefaultReadTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("user-agent", "u", crawler.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringArrayP("skip", "s", nil,
		"Regular expression of link paths not to follow (repeatable, added to the defaults)")
	cmd.Flags().IntP("depth-limit", "D", -1,
		"Do not follow links from pages at this depth or deeper (-1 = no limit)")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop scheduling URLs after this many (0 = no limit)")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second across all workers (0 = unlimited)")
	cmd.Flags().String("proxy", "",
		"Proxy URL (http, https, socks5 or socks5h)")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .medusa.yaml in current, XDG config or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP("save", "S", false,
		"Record the run in the history database")
	addDBDirFlag(cmd)

	return cmd
}

// runPageDepthCmd executes the pagedepth command.
// A missing or unusable root URL prints the usage text and succeeds.
func runPageDepthCmd(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return printUsage(cmd)
	}
	root, err := parseRoot(args[0])
	if err != nil {
		return printUsage(cmd)
	}

	logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), getBoolFlag(cmd, "log-json"))
	slog.SetDefault(logger)

	cfg, err := buildConfig(cmd, root)
	if err != nil {
		return err
	}
	cfg.Crawl.Logger = logger
	cfg.Crawl.Debug = mlog.TraceFunc(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPageDepth(ctx, cfg, root, cmd.OutOrStdout(), logger)
}

// printUsage writes the usage text to stdout.
func printUsage(cmd *cobra.Command) error {
	_, err := io.WriteString(cmd.OutOrStdout(), cmd.UsageString())
	return err
}

// parseRoot parses an absolute http or https URL with a host.
func parseRoot(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidRoot, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidRoot, raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// buildConfig creates a Config from defaults, the configuration file and
// command flags, in increasing order of precedence. Only flags the user set
// override file values.
func buildConfig(cmd *cobra.Command, root *url.URL) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Target = root.String()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	flags := cmd.Flags()
	var err error

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	cfg.SiteConfigs.Apply(root.Host, &cfg.Crawl)

	if flags.Changed("threads") {
		if cfg.Crawl.Threads, err = flags.GetInt("threads"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.Crawl.Delay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Crawl.ReadTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.Crawl.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("depth-limit") {
		if cfg.Crawl.DepthLimit, err = flags.GetInt("depth-limit"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.Crawl.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.Crawl.RequestsPerSecond, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Crawl.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-robots") {
		noRobots, err := flags.GetBool("no-robots")
		if err != nil {
			return nil, err
		}
		cfg.Crawl.ObeyRobotsTxt = !noRobots
	}

	skip, err := flags.GetStringArray("skip")
	if err != nil {
		return nil, err
	}
	cfg.AddSkipLinks(skip...)

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Save, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// runPageDepth crawls root, reduces the store to unique pages with
// shortest-path depths and writes the report.
func runPageDepth(ctx context.Context, cfg *config.Config, root *url.URL, stdout io.Writer, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"root", root.String(),
		"threads", cfg.Crawl.Threads,
		"skip", cfg.Crawl.SkipLinks,
		"obeyRobotsTxt", cfg.Crawl.ObeyRobotsTxt,
	)

	start := time.Now()
	store, err := crawler.Crawl(ctx, root, cfg.Crawl, func(c *crawler.Core) {
		c.OnEveryPage(func(p *model.Page) {
			logger.Debug("page stored",
				"url", p.String(),
				"code", p.Code,
				"depth", p.DepthValue(),
				"state", p.State().String(),
			)
		})
	})
	if err != nil {
		if store == nil || ctx.Err() == nil {
			return fmt.Errorf("crawl failed: %w", err)
		}
		logger.Warn("crawl interrupted, reporting partial results", "error", err)
	}

	if _, err := store.ShortestPaths(root); err != nil {
		return fmt.Errorf("failed to compute depths: %w", err)
	}
	unique := store.Uniq()
	pages := unique.Pages()

	depthReport := model.NewDepthReport(root.String(), pages)
	depthReport.Duration = time.Since(start)

	logger.Info("crawl finished",
		"pages", depthReport.TotalPages,
		"maxDepth", depthReport.MaxDepth(),
		"duration", depthReport.Duration,
	)

	if err := outputReport(cfg, depthReport, stdout); err != nil {
		return err
	}

	return saveRun(ctx, cfg, depthReport, pages, logger)
}

// reportFormat maps the report flags to a report format.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// outputReport writes the report in the requested format to the output file
// or stdout.
func outputReport(cfg *config.Config, depthReport *model.DepthReport, stdout io.Writer) error {
	output := stdout
	if cfg.OutputFile != "" {
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer, err := report.NewWriter(reportFormat(cfg), output, getVersion())
	if err != nil {
		return err
	}
	if _, err := writer.Write(depthReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveRun records the run in the history database if enabled.
func saveRun(ctx context.Context, cfg *config.Config, depthReport *model.DepthReport, pages []*model.Page, logger *slog.Logger) error {
	if !cfg.Save {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// An interrupt that ended the crawl must not abort the save.
	id, err := db.SaveRun(context.WithoutCancel(ctx), depthReport, pages)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run saved to database", "id", id, "path", db.Path())
	return nil
}
