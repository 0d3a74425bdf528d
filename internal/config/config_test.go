package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/medusa/internal/crawler"
)

// TestNewConfig tests that NewConfig returns the pagedepth defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.Crawl.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Crawl.ReadTimeout)
	}
	if !cfg.Crawl.DiscardPageBodies {
		t.Error("expected DiscardPageBodies to be true")
	}
	if !cfg.Crawl.ObeyRobotsTxt {
		t.Error("expected ObeyRobotsTxt to be true")
	}
	if !slices.Equal(cfg.Crawl.SkipLinks, DefaultSkipLinks()) {
		t.Errorf("expected default skip links, got %v", cfg.Crawl.SkipLinks)
	}
	if cfg.Crawl.Threads != crawler.DefaultThreads {
		t.Errorf("expected %d threads, got %d", crawler.DefaultThreads, cfg.Crawl.Threads)
	}
	if cfg.Crawl.DepthLimit != -1 {
		t.Errorf("expected no depth limit, got %d", cfg.Crawl.DepthLimit)
	}
	if cfg.DBDir != XDGDataDir() {
		t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
	}
}

// TestConfigValidate tests the Validate method.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{
			name:     "valid config",
			modify:   func(_ *Config) {},
			expected: nil,
		},
		{
			name:     "missing target",
			modify:   func(c *Config) { c.Target = "" },
			expected: ErrNoTarget,
		},
		{
			name: "json and markdown together",
			modify: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			expected: ErrConflictingReportFormats,
		},
		{
			name: "save without database directory",
			modify: func(c *Config) {
				c.Save = true
				c.DBDir = ""
			},
			expected: ErrNoDatabaseDir,
		},
		{
			name:     "invalid crawl options",
			modify:   func(c *Config) { c.Crawl.Threads = 0 },
			expected: crawler.ErrInvalidThreads,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.Target = "http://example.com/"
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.expected == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

// TestAddSkipLinks tests that user patterns extend the defaults without
// duplicates.
func TestAddSkipLinks(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.AddSkipLinks(`^/c/$`, `^/cart`, "", `^/cart`)

	expected := []string{`^/c/$`, `^/stores/$`, `^/cart`}
	if !slices.Equal(cfg.Crawl.SkipLinks, expected) {
		t.Errorf("expected %v, got %v", expected, cfg.Crawl.SkipLinks)
	}
}

// TestDatabasePath tests the database path helper.
func TestDatabasePath(t *testing.T) {
	t.Parallel()

	cfg := &Config{DBDir: "/var/lib/medusa"}
	expected := filepath.Join("/var/lib/medusa", DefaultDatabaseFile)
	if cfg.DatabasePath() != expected {
		t.Errorf("expected %q, got %q", expected, cfg.DatabasePath())
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.medusa.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `defaults:
  threads: 8
  delay: 250ms
  read_timeout: 5s
  obey_robots_txt: false
  skip_links:
    - "^/cart"
sites:
  example.com:
    depth_limit: 0
    cookies: "session=xyz"
    headers:
      X-Test: "1"
    basic_auth:
      username: alice
      password: secret
`)

		cfg, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Threads != 8 {
			t.Errorf("expected 8 threads, got %d", cfg.Defaults.Threads)
		}
		if cfg.Defaults.Delay != 250*time.Millisecond {
			t.Errorf("expected 250ms delay, got %v", cfg.Defaults.Delay)
		}
		if cfg.Defaults.ReadTimeout != 5*time.Second {
			t.Errorf("expected 5s read timeout, got %v", cfg.Defaults.ReadTimeout)
		}
		if cfg.Defaults.ObeyRobotsTxt == nil || *cfg.Defaults.ObeyRobotsTxt {
			t.Error("expected obey_robots_txt to be explicitly false")
		}

		site, ok := cfg.Sites["example.com"]
		if !ok {
			t.Fatal("expected example.com in sites")
		}
		if site.DepthLimit == nil || *site.DepthLimit != 0 {
			t.Error("expected depth_limit 0 to be kept")
		}
		if site.BasicAuth == nil || site.BasicAuth.Username != "alice" {
			t.Errorf("expected basic auth for alice, got %+v", site.BasicAuth)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `defaults:
  thread: 8
`)
		_, err := LoadConfigFile(path)
		if !errors.Is(err, ErrInvalidConfigFile) {
			t.Fatalf("expected ErrInvalidConfigFile, got %v", err)
		}
		if !strings.Contains(err.Error(), "thread") {
			t.Errorf("expected the unknown key in the message, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `invalid: yaml: content: [}`)
		if _, err := LoadConfigFile(path); !errors.Is(err, ErrInvalidConfigFile) {
			t.Errorf("expected ErrInvalidConfigFile, got %v", err)
		}
	})

	t.Run("empty file yields empty config", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "")
		cfg, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "defaults: {}")
		if result := FindConfigFile(path); result != path {
			t.Errorf("expected %q, got %q", path, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("does not panic without explicit path", func(t *testing.T) {
		t.Parallel()

		// The result depends on the machine running the test.
		_ = FindConfigFile("")
	})
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// TestFileGetSiteConfig tests merging of site entries over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Threads:   2,
			UserAgent: "default-agent",
			Headers:   map[string]string{"X-Default": "1"},
			SkipLinks: []string{`^/a`},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Threads:    6,
				Headers:    map[string]string{"X-Site": "2"},
				SkipLinks:  []string{`^/b`, `^/a`},
				DepthLimit: intPtr(3),
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("other.com")
		if sc.Threads != 2 || sc.UserAgent != "default-agent" {
			t.Errorf("expected defaults, got %+v", sc)
		}
	})

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("Example.COM")
		if sc.Threads != 6 {
			t.Errorf("expected 6 threads, got %d", sc.Threads)
		}
		if sc.UserAgent != "default-agent" {
			t.Errorf("expected inherited user agent, got %q", sc.UserAgent)
		}
		if sc.Headers["X-Default"] != "1" || sc.Headers["X-Site"] != "2" {
			t.Errorf("expected merged headers, got %v", sc.Headers)
		}
		if !slices.Equal(sc.SkipLinks, []string{`^/a`, `^/b`}) {
			t.Errorf("expected merged skip links, got %v", sc.SkipLinks)
		}
		if sc.DepthLimit == nil || *sc.DepthLimit != 3 {
			t.Error("expected depth limit 3")
		}
	})

	t.Run("host with port falls back to host name", func(t *testing.T) {
		t.Parallel()

		if sc := cf.GetSiteConfig("example.com:8080"); sc.Threads != 6 {
			t.Errorf("expected 6 threads, got %d", sc.Threads)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("example.com")
		if _, ok := cf.Defaults.Headers["X-Site"]; ok {
			t.Error("expected defaults headers to be untouched")
		}
		if len(cf.Defaults.SkipLinks) != 1 {
			t.Errorf("expected defaults skip links untouched, got %v", cf.Defaults.SkipLinks)
		}
	})
}

// TestFileApply tests overlaying file values onto crawler options.
func TestFileApply(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Delay:             time.Second,
			RequestsPerSecond: 2.5,
			ObeyRobotsTxt:     boolPtr(false),
			SkipLinks:         []string{`^/cart`},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Cookies:        "a=1",
				AcceptCookies:  boolPtr(true),
				Proxy:          "socks5://127.0.0.1:9050",
				ProxyBasicAuth: &crawler.Credentials{Username: "u", Password: "p"},
				Headers:        map[string]string{"X-Site": "2"},
				DepthLimit:     intPtr(0),
				MaxPages:       10,
			},
		},
	}

	cfg := NewConfig().Crawl
	cfg.RequestHeaders = map[string]string{"X-Flag": "1"}
	original := cfg.RequestHeaders

	cf.Apply("example.com", &cfg)

	if cfg.Delay != time.Second {
		t.Errorf("expected 1s delay, got %v", cfg.Delay)
	}
	if cfg.RequestsPerSecond != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.RequestsPerSecond)
	}
	if cfg.ObeyRobotsTxt {
		t.Error("expected robots.txt to be disabled")
	}
	if !cfg.AcceptCookies || cfg.Cookies != "a=1" {
		t.Errorf("expected cookie settings, got %v %q", cfg.AcceptCookies, cfg.Cookies)
	}
	if cfg.Proxy != "socks5://127.0.0.1:9050" || cfg.ProxyBasicAuth == nil {
		t.Errorf("expected proxy settings, got %q %+v", cfg.Proxy, cfg.ProxyBasicAuth)
	}
	if cfg.DepthLimit != 0 {
		t.Errorf("expected depth limit 0, got %d", cfg.DepthLimit)
	}
	if cfg.MaxPages != 10 {
		t.Errorf("expected 10 max pages, got %d", cfg.MaxPages)
	}
	if cfg.RequestHeaders["X-Flag"] != "1" || cfg.RequestHeaders["X-Site"] != "2" {
		t.Errorf("expected merged headers, got %v", cfg.RequestHeaders)
	}
	if _, ok := original["X-Site"]; ok {
		t.Error("expected the caller's header map to be untouched")
	}

	expected := append(DefaultSkipLinks(), `^/cart`)
	if !slices.Equal(cfg.SkipLinks, expected) {
		t.Errorf("expected %v, got %v", expected, cfg.SkipLinks)
	}
	if cfg.UserAgent != crawler.DefaultUserAgent {
		t.Errorf("expected unset values to be kept, got %q", cfg.UserAgent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected applied config to be valid, got %v", err)
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if dir == "" {
				t.Fatal("expected non-empty path")
			}
			if filepath.Base(dir) != AppName {
				t.Errorf("expected path ending in %q, got %q", AppName, dir)
			}
		})
	}
}
