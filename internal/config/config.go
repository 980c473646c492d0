// Package config loads crawler settings from defaults, an optional YAML file,
// a .env file and EVENTBRITE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/eventbrite-events/internal/logger"
)

const (
	DefaultResultsWanted  = 20
	DefaultMaxPages       = 5
	DefaultMaxConcurrency = 5
	DefaultMaxRetries     = 3
	DefaultRequestTimeout = 60 * time.Second
	DefaultOrigin         = "https://www.eventbrite.com"
	DefaultUserAgent      = "eventbrite-events/1.0 (github.com/pfrederiksen/eventbrite-events)"
	DefaultDataDir        = "~/.local/share/eventbrite-events"
	DefaultLogLevel       = "info"

	DefaultLocation = "online"
	DefaultQuery    = "all-events"

	envPrefix = "EVENTBRITE_"
)

// Search is the recipe for a listing URL when no start URLs are given
type Search struct {
	Location   string `yaml:"location"`
	Category   string `yaml:"category"`
	Query      string `yaml:"query"`
	DateFilter string `yaml:"date_filter"` // e.g. today, this-weekend
	FreeOnly   bool   `yaml:"free_only"`
}

// Config holds every crawler setting
type Config struct {
	StartURLs []string `yaml:"start_urls"`
	Search    Search   `yaml:"search"`

	ResultsWanted  int           `yaml:"results_wanted"`
	MaxPages       int           `yaml:"max_pages"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	ProxyURL  string `yaml:"proxy_url"`
	UserAgent string `yaml:"user_agent"`
	Origin    string `yaml:"origin"`

	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"` // empty disables the Postgres sink
	ICSPath     string `yaml:"ics_path"`     // empty disables the calendar sink
	MetricsAddr string `yaml:"metrics_addr"` // empty disables the metrics server
	LogLevel    string `yaml:"log_level"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		ResultsWanted:  DefaultResultsWanted,
		MaxPages:       DefaultMaxPages,
		MaxConcurrency: DefaultMaxConcurrency,
		MaxRetries:     DefaultMaxRetries,
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      DefaultUserAgent,
		Origin:         DefaultOrigin,
		DataDir:        DefaultDataDir,
		LogLevel:       DefaultLogLevel,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), .env and the environment. The result is normalized but
// not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	return cfg, nil
}

// LoadDotEnv loads variables from the given files into the environment.
// Missing files are ignored and variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("No .env file found, using process environment", logger.Fields{"file": f})
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from EVENTBRITE_* variables that are set
func (c *Config) ApplyEnv() {
	if v := getEnv("START_URLS", ""); v != "" {
		c.StartURLs = strings.Split(v, ",")
	}
	c.Search.Location = getEnv("LOCATION", c.Search.Location)
	c.Search.Category = getEnv("CATEGORY", c.Search.Category)
	c.Search.Query = getEnv("QUERY", c.Search.Query)
	c.Search.DateFilter = getEnv("DATE_FILTER", c.Search.DateFilter)
	c.Search.FreeOnly = getEnvBool("FREE_ONLY", c.Search.FreeOnly)

	c.ResultsWanted = getEnvInt("RESULTS_WANTED", c.ResultsWanted)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)
	c.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.MaxConcurrency)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)

	c.ProxyURL = getEnv("PROXY_URL", c.ProxyURL)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.Origin = getEnv("ORIGIN", c.Origin)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.ICSPath = getEnv("ICS_PATH", c.ICSPath)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Normalize trims values and clamps numeric settings into range
func (c *Config) Normalize() {
	urls := make([]string, 0, len(c.StartURLs))
	for _, u := range c.StartURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	c.StartURLs = urls

	if c.ResultsWanted < 1 {
		c.ResultsWanted = 1
	}
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}

	c.Origin = strings.TrimRight(strings.TrimSpace(c.Origin), "/")
	if c.Origin == "" {
		c.Origin = DefaultOrigin
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	for _, u := range c.StartURLs {
		if err := checkHTTPURL(u); err != nil {
			return fmt.Errorf("invalid start URL %q: %w", u, err)
		}
	}
	if err := checkHTTPURL(c.Origin); err != nil {
		return fmt.Errorf("invalid origin %q: %w", c.Origin, err)
	}
	if c.ProxyURL != "" {
		if _, err := url.Parse(c.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SeedURLs returns the start URLs, deduplicated in order, or the search URL
// built from the recipe when none are configured.
func (c *Config) SeedURLs() []string {
	if len(c.StartURLs) == 0 {
		return []string{BuildSearchURL(c.Origin, c.Search)}
	}

	seen := make(map[string]bool, len(c.StartURLs))
	seeds := make([]string, 0, len(c.StartURLs))
	for _, u := range c.StartURLs {
		if seen[u] {
			continue
		}
		seen[u] = true
		seeds = append(seeds, u)
	}
	return seeds
}

// BuildSearchURL renders {origin}/d/{location}/{category--}{free--}{query}{--dateFilter}/
func BuildSearchURL(origin string, s Search) string {
	location := strings.TrimSpace(s.Location)
	if location == "" {
		location = DefaultLocation
	}

	var b strings.Builder
	if cat := strings.TrimSpace(s.Category); cat != "" {
		b.WriteString(cat + "--")
	}
	if s.FreeOnly {
		b.WriteString("free--")
	}
	if q := strings.TrimSpace(s.Query); q != "" {
		b.WriteString(q)
	} else {
		b.WriteString(DefaultQuery)
	}
	if df := strings.TrimSpace(s.DateFilter); df != "" {
		b.WriteString("--" + df)
	}

	return fmt.Sprintf("%s/d/%s/%s/", strings.TrimRight(origin, "/"), url.PathEscape(location), url.PathEscape(b.String()))
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(envPrefix + key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		logger.Warn("Ignoring invalid integer setting", logger.Fields{"key": envPrefix + key, "value": val})
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(envPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		logger.Warn("Ignoring invalid boolean setting", logger.Fields{"key": envPrefix + key, "value": val})
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(envPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		logger.Warn("Ignoring invalid duration setting", logger.Fields{"key": envPrefix + key, "value": val})
	}
	return fallback
}
