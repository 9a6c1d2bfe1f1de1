package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DruizrGit/CondoPricePrediction/internal/config"
	"github.com/DruizrGit/CondoPricePrediction/internal/crawler"
	"github.com/DruizrGit/CondoPricePrediction/internal/logger"
	"github.com/DruizrGit/CondoPricePrediction/internal/output"
	"github.com/DruizrGit/CondoPricePrediction/internal/storage"
	_ "github.com/DruizrGit/CondoPricePrediction/internal/storage/postgres"
	_ "github.com/DruizrGit/CondoPricePrediction/internal/storage/sqlite"
	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
	"github.com/DruizrGit/CondoPricePrediction/pkg/fetcher"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl search-result pages and extract every listing",
	Long: `Crawl walks the search-result pages described by a site file, follows
every listing link and extracts one record per listing.

Records go to a file (or stdout) in CSV, JSON, JSONL or YAML, in the site
file's column order, and can also be upserted into SQLite or PostgreSQL.
Interrupting the crawl keeps everything collected so far.

Examples:
  condocrawl crawl -s configs/royallepage.yaml -o listings.csv
  condocrawl crawl -s configs/royallepage.yaml --search ottawa --pages 3 -f jsonl
  CONDOCRAWL_STORE_DSN=postgres://localhost/condos \
      condocrawl crawl -s configs/royallepage.yaml --store postgres`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	flags := crawlCmd.Flags()

	// Site
	flags.StringP("site", "s", "", "path to site file (required)")
	flags.String("search", "", "override the site's search key")
	flags.Int("pages", 0, "override the number of pages to crawl (0 keeps the site's value)")
	flags.Int("max-per-page", 0, "override the listings kept per page (0 keeps the site's value)")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "", "output format: csv, json, jsonl, yaml (default: from the output file extension, else csv)")
	flags.Bool("no-url", false, "leave the URL column out of the output")

	// Storage settings
	flags.String("store", "", "also upsert listings into a store: sqlite, postgres")
	flags.String("dsn", "", "store DSN (file path for sqlite)")
	flags.String("table", storage.DefaultTable, "store table name")

	// Fetch settings
	flags.String("fetch-mode", "", "fetch mode: static, dynamic (default: the site's mode)")
	flags.Duration("timeout", 0, "per-request timeout (default: the site's timeout)")
	flags.String("user-agent", "", "User-Agent header")
	flags.String("chrome-path", "", "Chrome binary for dynamic fetch mode")

	_ = crawlCmd.MarkFlagRequired("site")

	// Bind to viper
	_ = viper.BindPFlag("store.kind", flags.Lookup("store"))
	_ = viper.BindPFlag("store.dsn", flags.Lookup("dsn"))
	_ = viper.BindPFlag("store.table", flags.Lookup("table"))
	_ = viper.BindPFlag("fetch.user_agent", flags.Lookup("user-agent"))
	_ = viper.BindPFlag("fetch.chrome_path", flags.Lookup("chrome-path"))
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("crawl command starting")

	sitePath, _ := cmd.Flags().GetString("site")
	site, err := config.Load(sitePath)
	if err != nil {
		logger.Error("failed to load site file", "path", sitePath, "error", err)
		return err
	}
	logger.Debug("site loaded", "name", site.Name, "fields", len(site.Schema.Fields), "containers", len(site.Schema.Containers))

	cfg := site.CrawlerConfig()
	applyCrawlOverrides(cmd, &cfg)

	f, err := newFetcher(cmd, site, cfg.Timeout)
	if err != nil {
		logger.Error("failed to create fetcher", "error", err)
		return err
	}
	defer func() { _ = f.Close() }()

	columns := site.OutputColumns()
	out := &sink{columns: columns}

	outPath, _ := cmd.Flags().GetString("output")
	outFile, err := openOutput(cmd, outPath)
	if err != nil {
		logger.Error("failed to create output file", "path", outPath, "error", err)
		return err
	}
	defer func() { _ = outFile.Close() }()

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := resolveFormat(formatStr, outPath, output.FormatCSV)
	if err != nil {
		return err
	}
	noURL, _ := cmd.Flags().GetBool("no-url")
	writer, err := output.NewWriter(outFile, format, columns, writerOptions(noURL)...)
	if err != nil {
		logger.Error("failed to create output writer", "format", format, "error", err)
		return err
	}
	out.writer = writer

	if kind := viper.GetString("store.kind"); kind != "" {
		store, err := openStore(ctx, kind, columns)
		if err != nil {
			logger.Error("failed to open store", "kind", kind, "error", err)
			return err
		}
		defer store.Close()
		out.store = store
	}

	c := crawler.New(f, extract.New(site.Schema), cfg,
		crawler.WithListingHandler(func(l crawler.Listing) error {
			return out.add(ctx, l)
		}),
	)

	report, runErr := c.Run(ctx)
	closeErr := out.close()

	if report != nil {
		logSummary(report, out, outPath)
	}
	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		logger.Warn("crawl interrupted, kept what was collected")
	case runErr != nil:
		logger.Error("crawl failed", "error", runErr)
		return runErr
	}
	if closeErr != nil {
		logger.Error("failed to finish output", "error", closeErr)
		return closeErr
	}
	return nil
}

func applyCrawlOverrides(cmd *cobra.Command, cfg *crawler.Config) {
	flags := cmd.Flags()
	if flags.Changed("search") {
		cfg.Search, _ = flags.GetString("search")
	}
	if flags.Changed("pages") {
		cfg.Pages, _ = flags.GetInt("pages")
	}
	if flags.Changed("max-per-page") {
		cfg.MaxPerPage, _ = flags.GetInt("max-per-page")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if ua := viper.GetString("fetch.user_agent"); ua != "" {
		cfg.UserAgent = ua
	}
}

// newFetcher builds the fetcher named by --fetch-mode, or the site's mode.
func newFetcher(cmd *cobra.Command, site *config.Site, timeout time.Duration) (fetcher.Fetcher, error) {
	mode, _ := cmd.Flags().GetString("fetch-mode")
	if mode == "" {
		mode = site.FetchMode()
	}
	logger.Debug("fetch mode", "mode", mode)

	fc := fetcher.DefaultConfig()
	if ua := viper.GetString("fetch.user_agent"); ua != "" {
		fc.UserAgent = ua
	}
	if timeout > 0 {
		fc.Timeout = timeout
	}
	fc.ChromePath = viper.GetString("fetch.chrome_path")
	return fetcher.New(mode, fc)
}

func openStore(ctx context.Context, kind string, columns []string) (storage.Store, error) {
	dsn := viper.GetString("store.dsn")
	if dsn == "" {
		return nil, fmt.Errorf("store %s needs a DSN (--dsn or CONDOCRAWL_STORE_DSN)", kind)
	}
	store, err := storage.New(ctx, storage.Config{
		Kind:  kind,
		DSN:   dsn,
		Table: viper.GetString("store.table"),
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureTable(ctx, columns); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("storing listings", "kind", kind, "table", viper.GetString("store.table"))
	return store, nil
}

// resolveFormat picks the explicit format, else the one implied by the
// output path, else def.
func resolveFormat(name, path string, def output.Format) (output.Format, error) {
	if name != "" {
		return output.ParseFormat(name)
	}
	if path == "" || path == "-" {
		return def, nil
	}
	return output.FormatFromPath(path, def), nil
}

func writerOptions(noURL bool) []output.WriterOption {
	if noURL {
		return []output.WriterOption{output.WithURLColumn("")}
	}
	return nil
}

func logSummary(report *crawler.Report, out *sink, outPath string) {
	args := []any{
		"pages", report.Pages,
		"listings", humanize.Comma(int64(len(report.Listings))),
		"skipped", humanize.Comma(int64(len(report.Skipped))),
		"reason", string(report.Stop),
		"took", report.Finished.Sub(report.Started).Round(time.Second).String(),
	}
	if out.store != nil {
		args = append(args, "stored", humanize.Comma(out.stored))
	}
	if outPath != "" && outPath != "-" {
		if fi, err := os.Stat(outPath); err == nil {
			args = append(args, "output", outPath, "size", humanize.Bytes(uint64(fi.Size())))
		}
	}
	logger.Info("crawl summary", args...)

	for _, s := range report.Skipped {
		logger.Debug("skipped listing", "url", s.URL, "page", s.Page, "error", s.Err)
	}
}
