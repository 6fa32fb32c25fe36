// Package cmd provides CLI commands for splitwise-ynab.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/config"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/splitwise"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "splitwise-ynab",
	Short: "Keep Splitwise and YNAB in sync",
	Long: `splitwise-ynab synchronizes shared expenses between Splitwise and a
YNAB budget.

It supports:
- Importing your share of recent Splitwise expenses into a YNAB account
- Exporting flagged YNAB outflows to Splitwise as 50/50 expenses
- Auditing the YNAB account against what Splitwise says it should hold
- Listing YNAB flag usage to pick a free flag color
- Serving a local emulator of both APIs for testing

Example:
  splitwise-ynab sync --dry-run
  splitwise-ynab audit --days 60 --list-transactions
  splitwise-ynab flags --on-budget-only`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug || os.Getenv("DEBUG") == "true" {
			logLevel = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{Level: logLevel}

		// Text for people, JSON when stderr goes to a file or a scheduler.
		var handler slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
		if term.IsTerminal(int(os.Stderr.Fd())) {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}

		logger := slog.New(handler).With("run_id", uuid.NewString())
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(emulateCmd)
}

// loadConfig loads the configuration and exits when a required setting is missing.
func loadConfig(required ...[]string) *config.Config {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(required...); err != nil {
		exitOnError(err, "invalid configuration")
	}

	return cfg
}

func newSplitwiseClient(cfg *config.Config) *splitwise.Client {
	return splitwise.NewClient(splitwise.ClientConfig{
		APIURL:      cfg.Splitwise.APIURL,
		AccessToken: cfg.Splitwise.APIKey,
		Timeout:     cfg.Sync.HTTPTimeout,
	})
}

func newYNABClient(cfg *config.Config) *ynab.Client {
	return ynab.NewClient(ynab.ClientConfig{
		APIURL:      cfg.YNAB.APIURL,
		AccessToken: cfg.YNAB.AccessToken,
		BudgetID:    cfg.YNAB.BudgetID,
		Timeout:     cfg.Sync.HTTPTimeout,
	})
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}

// reportFailure prints a remote failure without terminating the process.
func reportFailure(cmd *cobra.Command, err error, msg string) {
	slog.Error(msg, "error", err)
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s: %v\n", msg, err)
}
