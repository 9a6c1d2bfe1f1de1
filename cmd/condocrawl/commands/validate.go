package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/DruizrGit/CondoPricePrediction/internal/config"
	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a site file",
	Long: `Validate decodes a site file, checks its crawl settings, schema and column
list, and prints a short summary. With --print it also prints the file as
condocrawl understands it, with every default filled in.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("site", "s", "", "path to site file (required)")
	validateCmd.Flags().Bool("print", false, "print the decoded site file as YAML")
	_ = validateCmd.MarkFlagRequired("site")
}

func runValidate(cmd *cobra.Command, args []string) error {
	sitePath, _ := cmd.Flags().GetString("site")
	site, err := config.Load(sitePath)
	if err != nil {
		var errs schema.ValidationErrors
		if errors.As(err, &errs) {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e.Error())
			}
		}
		return err
	}

	out := cmd.OutOrStdout()
	cfg := site.CrawlerConfig()
	fmt.Fprintf(out, "%s: ok\n", site.Name)
	fmt.Fprintf(out, "  first page:  %s\n", cfg.URLForPage(cfg.FirstPage))
	fmt.Fprintf(out, "  fields:      %d\n", len(site.Schema.Fields))
	fmt.Fprintf(out, "  containers:  %d\n", len(site.Schema.Containers))
	fmt.Fprintf(out, "  columns:     %d\n", len(site.OutputColumns()))
	if n := cfg.ExpectedListings(); n > 0 {
		fmt.Fprintf(out, "  listings:    up to %d\n", n)
	}

	if printSite, _ := cmd.Flags().GetBool("print"); printSite {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(site); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}
