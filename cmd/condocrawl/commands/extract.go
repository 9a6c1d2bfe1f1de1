package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DruizrGit/CondoPricePrediction/internal/config"
	"github.com/DruizrGit/CondoPricePrediction/internal/logger"
	"github.com/DruizrGit/CondoPricePrediction/internal/output"
	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
	"github.com/DruizrGit/CondoPricePrediction/pkg/fetcher"
)

var extractCmd = &cobra.Command{
	Use:   "extract PATH|URL...",
	Short: "Extract records from saved pages or single listing URLs",
	Long: `Extract runs a site file's schema against listing pages without crawling.
Arguments starting with http:// or https:// are fetched; anything else is
read as a local HTML file. Every value the schema could not find is
reported at warn level, which makes this the quickest way to debug a
site file against a page.

Examples:
  condocrawl extract -s configs/royallepage.yaml saved/listing.html
  condocrawl extract -s configs/royallepage.yaml -f csv \
      https://www.royallepage.ca/en/property/ontario/toronto/1-yonge-st/1201/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.StringP("site", "s", "", "path to site file (required)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "", "output format: csv, json, jsonl, yaml (default: from the output file extension, else json)")
	flags.Bool("no-url", false, "leave the URL column out of the output")
	flags.String("fetch-mode", "", "fetch mode for URL arguments: static, dynamic (default: the site's mode)")
	flags.Duration("timeout", 0, "per-request timeout (default: the site's timeout)")

	_ = extractCmd.MarkFlagRequired("site")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sitePath, _ := cmd.Flags().GetString("site")
	site, err := config.Load(sitePath)
	if err != nil {
		logger.Error("failed to load site file", "path", sitePath, "error", err)
		return err
	}
	engine := extract.New(site.Schema)
	cfg := site.CrawlerConfig()
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if ua := viper.GetString("fetch.user_agent"); ua != "" {
		cfg.UserAgent = ua
	}

	outPath, _ := cmd.Flags().GetString("output")
	outFile, err := openOutput(cmd, outPath)
	if err != nil {
		return err
	}
	defer func() { _ = outFile.Close() }()

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := resolveFormat(formatStr, outPath, output.FormatJSON)
	if err != nil {
		return err
	}
	noURL, _ := cmd.Flags().GetBool("no-url")
	writer, err := output.NewWriter(outFile, format, site.OutputColumns(), writerOptions(noURL)...)
	if err != nil {
		return err
	}

	var f fetcher.Fetcher
	failed := 0
	for _, arg := range args {
		var res extract.Result
		source := arg

		if isURL(arg) {
			if f == nil {
				if f, err = newFetcher(cmd, site, cfg.Timeout); err != nil {
					_ = writer.Close()
					return err
				}
				defer func() { _ = f.Close() }()
			}
			res, source, err = extractURL(ctx, f, engine, arg, cfg.FetchOptions())
		} else {
			res, err = extractFile(engine, arg)
		}
		if err != nil {
			logger.Error("extraction failed", "source", arg, "error", err)
			failed++
			continue
		}

		for _, d := range res.Diagnostics {
			logger.Warn("value missing", "source", arg, "field", d.Field, "error", d.Err)
		}
		if err := writer.Write(output.Row{URL: source, Record: res.Record}); err != nil {
			_ = writer.Close()
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(args))
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func extractFile(engine *extract.Engine, path string) (extract.Result, error) {
	file, err := os.Open(path) //#nosec G304 -- CLI tool reads user-specified files
	if err != nil {
		return extract.Result{}, err
	}
	defer func() { _ = file.Close() }()
	return engine.ExtractReader(file)
}

// extractURL fetches one listing and returns its record and final URL.
func extractURL(ctx context.Context, f fetcher.Fetcher, engine *extract.Engine, url string, opts fetcher.Options) (extract.Result, string, error) {
	content, err := f.Fetch(ctx, url, opts)
	if err != nil {
		return extract.Result{}, url, fmt.Errorf("%w: %w", extract.ErrFetch, err)
	}
	doc, err := content.Document()
	if err != nil {
		return extract.Result{}, content.URL, err
	}
	return engine.Extract(doc), content.URL, nil
}
