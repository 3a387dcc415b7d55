package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/results"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
)

// progressInterval is how often the progress line is refreshed on stderr.
const progressInterval = 500 * time.Millisecond

type analyzeOptions struct {
	ticker    string
	file      string
	tier      string
	timeframe string
	markdown  bool
	pages     results.Pages
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Submit a ticker or a price-history CSV for analysis",
		Example: "  chartscope analyze --ticker AAPL --tier premium\n" +
			"  chartscope analyze --file prices.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := runAnalysis(ctx, a.NewController(nil), req, cmd.ErrOrStderr())
			if out.State != submission.StateSucceeded {
				return errors.New(out.Message)
			}
			if out.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", out.Warning)
			}
			return writeResult(cmd.OutOrStdout(), out, opts, a.Settings.Get(ctx).ColorVision)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ticker, "ticker", "t", "", "Ticker symbol to analyse")
	f.StringVarP(&opts.file, "file", "f", "", "Price-history .csv file to analyse")
	f.StringVar(&opts.tier, "tier", "", "Analysis tier (defaults to the saved setting)")
	f.StringVar(&opts.timeframe, "timeframe", "", "Bar timeframe for ticker mode: 1h, 4h, 1d, 1wk, 1mo")
	f.BoolVar(&opts.markdown, "markdown", false, "Print the full report as markdown instead of tables")
	f.IntVar(&opts.pages.Support, "support-page", 1, "Support levels page, starting at 1")
	f.IntVar(&opts.pages.Resistance, "resistance-page", 1, "Resistance levels page, starting at 1")
	f.IntVar(&opts.pages.Demand, "demand-page", 1, "Demand zones page, starting at 1")
	f.IntVar(&opts.pages.Supply, "supply-page", 1, "Supply zones page, starting at 1")
	cmd.MarkFlagsMutuallyExclusive("ticker", "file")
	cmd.MarkFlagsOneRequired("ticker", "file")
	return cmd
}

// viewPages converts the 1-based page flags to the 0-based pages results.Build
// takes.
func (o *analyzeOptions) viewPages() results.Pages {
	return results.Pages{
		Support:    o.pages.Support - 1,
		Resistance: o.pages.Resistance - 1,
		Demand:     o.pages.Demand - 1,
		Supply:     o.pages.Supply - 1,
	}
}

// request builds the submission request the flags describe.
func (o *analyzeOptions) request() (submission.Request, error) {
	if o.file == "" {
		return submission.TickerRequest{
			Symbol:    submission.SanitizeTicker(o.ticker),
			Timeframe: o.timeframe,
			Tier:      o.tier,
		}, nil
	}
	info, err := os.Stat(o.file)
	if err != nil {
		return nil, err
	}
	// Oversized files are rejected by validation before they are read.
	upload := &submission.UploadFile{Name: filepath.Base(o.file), Size: info.Size()}
	if verr := submission.ValidateFile(*upload); verr != nil {
		return nil, verr
	}
	data, err := os.ReadFile(o.file)
	if err != nil {
		return nil, err
	}
	upload.Data = data
	return submission.FileRequest{File: upload, Tier: o.tier}, nil
}

// runAnalysis submits req and reports stage progress on w until it settles.
func runAnalysis(ctx context.Context, ctrl *submission.Controller, req submission.Request, w io.Writer) submission.Outcome {
	var out submission.Outcome
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		out = ctrl.Submit(ctx, req)
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		last := ""
		for {
			select {
			case <-done:
				if last != "" {
					fmt.Fprintln(w)
				}
				return nil
			case <-ticker.C:
				snap := ctrl.Snapshot()
				if !snap.InFlight {
					continue
				}
				line := fmt.Sprintf("\r%-32s %3d%%  %s", snap.Stage, snap.Percent, snap.Elapsed.Truncate(time.Second))
				if line != last {
					fmt.Fprint(w, line)
					last = line
				}
			}
		}
	})
	g.Wait()
	return out
}

func writeResult(w io.Writer, out submission.Outcome, opts *analyzeOptions, cv analysis.ColorVision) error {
	view, err := results.Build(out.Result, opts.viewPages(), cv)
	if err != nil {
		fmt.Fprintln(w, results.NoDataTitle)
		return nil
	}
	if view.Symbol == analysis.Placeholder {
		view.Symbol = out.Symbol
	}
	if opts.markdown {
		_, err := io.WriteString(w, results.Markdown(view))
		return err
	}
	return results.WriteTables(w, view)
}
