package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/eventbrite-events/internal/calendar"
	"github.com/pfrederiksen/eventbrite-events/internal/config"
	"github.com/pfrederiksen/eventbrite-events/internal/crawl"
	"github.com/pfrederiksen/eventbrite-events/internal/extract"
	"github.com/pfrederiksen/eventbrite-events/internal/filter"
	"github.com/pfrederiksen/eventbrite-events/internal/ledger"
	"github.com/pfrederiksen/eventbrite-events/internal/logger"
	"github.com/pfrederiksen/eventbrite-events/internal/metrics"
	"github.com/pfrederiksen/eventbrite-events/internal/scraper"
	"github.com/pfrederiksen/eventbrite-events/internal/storage"
)

const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitUnderfilled = 2
)

var (
	flagConfig  string
	flagFormat  string
	flagSort    string
	flagVerbose bool
	flagStrict  bool

	// listing filters, applied to --verbose output only
	flagListNames     []string
	flagListLocations []string
	flagListDates     string
	flagListWeekends  bool
	flagListUpcoming  bool
	flagListFree      bool
	flagListOnline    bool

	flagStartURLs      []string
	flagLocation       string
	flagCategory       string
	flagQuery          string
	flagDateFilter     string
	flagFreeOnly       bool
	flagResultsWanted  int
	flagMaxPages       int
	flagMaxConcurrency int
	flagMaxRetries     int
	flagRequestTimeout time.Duration
	flagProxyURL       string
	flagUserAgent      string
	flagOrigin         string
	flagDataDir        string
	flagPostgresDSN    string
	flagICSPath        string
	flagMetricsAddr    string
	flagLogLevel       string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventbrite-events",
		Short: "Crawl Eventbrite listing pages into a normalized event dataset",
		Long: `A CLI tool that crawls Eventbrite search listings, extracts events from
embedded page state, JSON-LD or card markup, and saves up to a target number
of deduplicated events.`,
		SilenceUsage: true,
		RunE:         runCrawl,
	}

	f := cmd.Flags()
	f.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	f.StringVar(&flagFormat, "format", "text", "Output format: text or json")
	f.StringVar(&flagSort, "sort", "", "Sort listed events by: date or name")
	f.BoolVar(&flagVerbose, "verbose", false, "List saved events in the summary")
	f.BoolVar(&flagStrict, "strict", false, "Exit with status 2 when fewer events than requested were saved")
	f.StringSliceVar(&flagListNames, "list-name", nil, "List only events whose name contains this text (repeatable)")
	f.StringSliceVar(&flagListLocations, "list-location", nil, "List only events whose location contains this text (repeatable)")
	f.StringVar(&flagListDates, "list-dates", "", "List only events in a date range, e.g. 'Nov 1-15' or 'December'")
	f.BoolVar(&flagListWeekends, "list-weekends", false, "List only events on Saturday or Sunday")
	f.BoolVar(&flagListUpcoming, "list-upcoming", false, "List only events that have not started yet")
	f.BoolVar(&flagListFree, "list-free", false, "List only free events")
	f.BoolVar(&flagListOnline, "list-online", false, "List only online events")

	f.StringSliceVar(&flagStartURLs, "start-url", nil, "Listing URL to start from (repeatable)")
	f.StringVar(&flagLocation, "location", "", "Search location slug, e.g. ca--san-francisco (default online)")
	f.StringVar(&flagCategory, "category", "", "Search category slug, e.g. music")
	f.StringVar(&flagQuery, "query", "", "Search query slug (default all-events)")
	f.StringVar(&flagDateFilter, "date-filter", "", "Date filter slug, e.g. this-weekend")
	f.BoolVar(&flagFreeOnly, "free-only", false, "Only free events")
	f.IntVar(&flagResultsWanted, "results-wanted", config.DefaultResultsWanted, "Number of events to save")
	f.IntVar(&flagMaxPages, "max-pages", config.DefaultMaxPages, "Maximum pages to follow per start URL")
	f.IntVar(&flagMaxConcurrency, "max-concurrency", config.DefaultMaxConcurrency, "Pages fetched in parallel")
	f.IntVar(&flagMaxRetries, "max-retries", config.DefaultMaxRetries, "Retries per page fetch")
	f.DurationVar(&flagRequestTimeout, "request-timeout", config.DefaultRequestTimeout, "Timeout per request")
	f.StringVar(&flagProxyURL, "proxy-url", "", "HTTP proxy for page fetches")
	f.StringVar(&flagUserAgent, "user-agent", "", "User-Agent header for page fetches")
	f.StringVar(&flagOrigin, "origin", config.DefaultOrigin, "Site origin for search URLs and relative links")
	f.StringVar(&flagDataDir, "data-dir", config.DefaultDataDir, "Data directory for datasets")
	f.StringVar(&flagPostgresDSN, "postgres-dsn", "", "Also upsert events into Postgres")
	f.StringVar(&flagICSPath, "ics-path", "", "Also write saved events to an iCalendar file")
	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&flagLogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")

	return cmd
}

// loadConfig merges file/env settings with flags the user set explicitly
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("start-url") {
		cfg.StartURLs = flagStartURLs
	}
	if f.Changed("location") {
		cfg.Search.Location = flagLocation
	}
	if f.Changed("category") {
		cfg.Search.Category = flagCategory
	}
	if f.Changed("query") {
		cfg.Search.Query = flagQuery
	}
	if f.Changed("date-filter") {
		cfg.Search.DateFilter = flagDateFilter
	}
	if f.Changed("free-only") {
		cfg.Search.FreeOnly = flagFreeOnly
	}
	if f.Changed("results-wanted") {
		cfg.ResultsWanted = flagResultsWanted
	}
	if f.Changed("max-pages") {
		cfg.MaxPages = flagMaxPages
	}
	if f.Changed("max-concurrency") {
		cfg.MaxConcurrency = flagMaxConcurrency
	}
	if f.Changed("max-retries") {
		cfg.MaxRetries = flagMaxRetries
	}
	if f.Changed("request-timeout") {
		cfg.RequestTimeout = flagRequestTimeout
	}
	if f.Changed("proxy-url") {
		cfg.ProxyURL = flagProxyURL
	}
	if f.Changed("user-agent") {
		cfg.UserAgent = flagUserAgent
	}
	if f.Changed("origin") {
		cfg.Origin = flagOrigin
	}
	if f.Changed("data-dir") {
		cfg.DataDir = flagDataDir
	}
	if f.Changed("postgres-dsn") {
		cfg.PostgresDSN = flagPostgresDSN
	}
	if f.Changed("ics-path") {
		cfg.ICSPath = flagICSPath
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildListFilter turns the --list-* flags into a filter
func buildListFilter() (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Names = flagListNames
	f.Locations = flagListLocations
	f.WeekendsOnly = flagListWeekends
	f.UpcomingOnly = flagListUpcoming
	f.FreeOnly = flagListFree
	f.OnlineOnly = flagListOnline

	if flagListDates != "" {
		from, to, err := filter.ParseDateRange(flagListDates)
		if err != nil {
			return nil, fmt.Errorf("invalid --list-dates: %w", err)
		}
		f.DateFrom, f.DateTo = from, to
	}
	return f, nil
}

// exitCode is set by runCrawl and honored by Execute
var exitCode = ExitSuccess

// runCrawl is the main command logic
func runCrawl(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	sortOrder, ok := ParseSortOrder(flagSort)
	if !ok {
		return fmt.Errorf("invalid sort: %s (must be 'date' or 'name')", flagSort)
	}

	listFilter, err := buildListFilter()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := Run(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if flagVerbose {
		events, err := storage.ReadDataset(result.DatasetPath)
		if err != nil {
			return fmt.Errorf("reading dataset: %w", err)
		}
		events = listFilter.Apply(events)
		sortEvents(events, sortOrder)
		result.Events = events
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagStrict && result.Underfilled() {
		exitCode = ExitUnderfilled
	}
	return nil
}

// Run executes one crawl with cfg, logging to logOut
func Run(ctx context.Context, cfg config.Config, logOut io.Writer) (*OutputResult, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logger.New(level, logOut).With(logger.Fields{"run_id": runID})
	logger.SetDefault(log)

	seeds := cfg.SeedURLs()
	log.Info("Starting crawl", logger.Fields{
		"seeds":          seeds,
		"results_wanted": cfg.ResultsWanted,
		"max_pages":      cfg.MaxPages,
		"concurrency":    cfg.MaxConcurrency,
	})

	sink, datasetPath, err := openSinks(ctx, cfg, runID)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.Serve(); err != nil {
				log.Error("Metrics server stopped", logger.Fields{"addr": cfg.MetricsAddr}, err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	fetcher, err := scraper.New(scraper.Options{
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.RequestTimeout,
		ProxyURL:   cfg.ProxyURL,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("initializing scraper: %w", err)
	}

	l := ledger.New(cfg.ResultsWanted)
	processor := crawl.NewProcessor(extract.NewCoordinator(cfg.Origin), l, cfg.MaxPages)
	crawler := crawl.New(fetcher, processor, l, sink, crawl.Options{
		Concurrency: cfg.MaxConcurrency,
		Metrics:     m,
		Logger:      log,
	})

	result := &OutputResult{
		RunID:       runID,
		StartedAt:   time.Now().UTC(),
		Seeds:       seeds,
		Target:      cfg.ResultsWanted,
		DatasetPath: datasetPath,
	}

	stats, crawlErr := crawler.Run(ctx, seeds)
	result.Stats = stats
	result.FinishedAt = time.Now().UTC()

	// close before reporting so the dataset and calendar are complete
	if err := sink.Close(); err != nil && crawlErr == nil {
		crawlErr = fmt.Errorf("closing storage: %w", err)
	}
	if crawlErr != nil {
		return result, fmt.Errorf("crawling: %w", crawlErr)
	}

	if result.Underfilled() {
		log.Warn("Saved fewer events than requested", logger.Fields{"saved": stats.Saved, "target": cfg.ResultsWanted})
	}
	log.Info("Crawl finished", logger.Fields{
		"saved":           stats.Saved,
		"pages_processed": stats.PagesProcessed,
		"pages_failed":    stats.PagesFailed,
		"dataset":         datasetPath,
	})
	return result, nil
}

// openSinks opens the dataset and any optional sinks configured
func openSinks(ctx context.Context, cfg config.Config, runID string) (storage.MultiWriter, string, error) {
	dataset, err := storage.NewDataset(cfg.DataDir, runID)
	if err != nil {
		return nil, "", fmt.Errorf("initializing storage: %w", err)
	}
	sinks := storage.MultiWriter{dataset}

	if cfg.PostgresDSN != "" {
		pg, err := storage.NewPostgresWriter(ctx, cfg.PostgresDSN, runID)
		if err != nil {
			sinks.Close()
			return nil, "", fmt.Errorf("initializing postgres: %w", err)
		}
		sinks = append(sinks, pg)
	}

	if cfg.ICSPath != "" {
		sinks = append(sinks, calendar.NewWriter(cfg.ICSPath))
	}

	return sinks, dataset.Path(), nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(exitCode)
}
