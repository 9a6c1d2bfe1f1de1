// Package commands implements the CLI commands for condocrawl.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DruizrGit/CondoPricePrediction/internal/logger"
	"github.com/DruizrGit/CondoPricePrediction/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "condocrawl",
	Short: "Schema-driven crawler for real-estate listing pages",
	Long: `Condocrawl walks the search-result pages of a listing site, visits every
listing and extracts the values a site file describes: particulars such as
address and price, labeled feature boxes, and the storey count and floor
area derived from the room list.

Examples:
  # Crawl the bundled site into a CSV file
  condocrawl crawl -s configs/royallepage.yaml -o listings.csv

  # Crawl two pages and upsert into SQLite as well
  condocrawl crawl -s configs/royallepage.yaml --pages 2 \
      --store sqlite --dsn listings.db

  # Try a site file against a saved page
  condocrawl extract -s configs/royallepage.yaml saved/listing.html

  # Check a site file
  condocrawl validate -s configs/royallepage.yaml`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Options{
			Debug:  viper.GetBool("debug"),
			Quiet:  viper.GetBool("quiet"),
			Level:  viper.GetString("log_level"),
			JSON:   viper.GetBool("log_json"),
			Output: cmd.ErrOrStderr(),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.condocrawl.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	// .env supplies secrets such as database DSNs; a missing file is fine.
	_ = godotenv.Load()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".condocrawl")
		viper.SetConfigType("yaml")
	}

	// Environment variables: CONDOCRAWL_STORE_DSN, CONDOCRAWL_LOG_LEVEL, ...
	viper.SetEnvPrefix("CONDOCRAWL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError(rootCmd.ErrOrStderr(), "%v", err)
	}
	return err
}

// logError prints an error message.
func logError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
}

// nopWriteCloser lets stdout stand in for an output file.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// openOutput returns the file to write results to; empty or "-" means the
// command's standard output.
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
