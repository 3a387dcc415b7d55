// Command chartscope submits chart analyses and reads local history from a
// terminal. It shares configuration and storage with chartscope-portal, so
// it cannot open the history database while the portal is running.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/chartscope-portal/internal/app"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
)

type rootOptions struct {
	configFiles []string
	logLevel    string
	apiURL      string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "chartscope",
		Short:         "Analyse price charts against the chartscope backend",
		Version:       config.CurrentBuild().String(),
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringSliceVarP(&opts.configFiles, "config", "c", nil, "Configuration file path (repeatable)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Analysis backend URL (overrides config)")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newTiersCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// loadApp builds the application from config files, the environment and flags.
func loadApp(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	files := opts.configFiles
	if len(files) == 0 {
		files = config.Discover()
	}
	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.apiURL != "" {
		cfg.API.URL = opts.apiURL
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue)
		}
		return nil, fmt.Errorf("invalid configuration")
	}

	logger := common.NewLoggerWithOutput(opts.logLevel, cmd.ErrOrStderr())
	return app.New(cfg, logger)
}
