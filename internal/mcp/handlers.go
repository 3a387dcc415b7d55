package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/history"
	"github.com/bobmcallan/chartscope-portal/internal/results"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
)

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

type toolset struct {
	deps   Deps
	logger *common.Logger
}

func (t *toolset) colorVision(ctx context.Context) analysis.ColorVision {
	if t.deps.Settings == nil {
		return analysis.VisionStandard
	}
	return t.deps.Settings.Get(ctx).ColorVision
}

// analyzeTicker handles analyze_ticker. Cancelling the call cancels the analysis.
func (t *toolset) analyzeTicker(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Controller == nil {
		return errorResult("analysis is not available"), nil
	}
	tier := strings.TrimSpace(r.GetString("tier", ""))
	if tier == "" && t.deps.Settings != nil {
		tier = t.deps.Settings.Get(ctx).DefaultTier
	}
	req := submission.TickerRequest{
		Symbol:    submission.SanitizeTicker(r.GetString("ticker", "")),
		Timeframe: strings.TrimSpace(r.GetString("timeframe", "")),
		Tier:      tier,
	}

	out := t.deps.Controller.Submit(ctx, req)
	if out.State != submission.StateSucceeded {
		t.logger.Debug().Str("state", string(out.State)).Str("reason", string(out.Reason)).Msg("mcp analyze_ticker did not succeed")
		return errorResult(out.Message), nil
	}

	view, err := results.Build(out.Result, results.Pages{}, t.colorVision(ctx))
	if err != nil {
		return errorResult(results.NoDataTitle), nil
	}
	if view.Symbol == analysis.Placeholder {
		view.Symbol = out.Symbol
	}
	text := results.Markdown(view)
	if out.Warning != "" {
		text = "> " + out.Warning + "\n\n" + text
	}
	return textResult(text), nil
}

// listTiers handles list_tiers.
func (t *toolset) listTiers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.Catalog == nil {
		return errorResult("tier catalog is not available"), nil
	}
	var sb strings.Builder
	sb.WriteString("| Tier | Label | Price | Features |\n|---|---|---|---|\n")
	for _, tier := range t.deps.Catalog.List(ctx) {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", tier.ID, tier.Label, tier.PriceDisplay, strings.Join(tier.Features, ", "))
	}
	return textResult(sb.String()), nil
}

// listHistory handles list_history.
func (t *toolset) listHistory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.History == nil {
		return errorResult("history is not available"), nil
	}
	list, _ := t.deps.History.List(ctx)
	if len(list) == 0 {
		return textResult("No analyses yet."), nil
	}
	stats, _ := t.deps.History.Stats(ctx)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d analyses, %s spent, %s average.\n\n", stats.Total,
		common.FormatMoney(stats.Spent), common.FormatMoney(stats.Average))
	sb.WriteString("| ID | Date | Symbol | Tier | Verdict | Cost | Report |\n|---|---|---|---|---|---|---|\n")
	for _, rec := range list {
		verdict := rec.Verdict
		if verdict == "" {
			verdict = common.Placeholder
		}
		report := "summary only"
		if rec.HasResults() {
			report = "available"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			rec.ID, rec.Date.Format("2006-01-02 15:04"), rec.Symbol, rec.Tier, verdict,
			common.FormatMoney(rec.Cost), report)
	}
	return textResult(sb.String()), nil
}

// getAnalysis handles get_analysis.
func (t *toolset) getAnalysis(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.History == nil {
		return errorResult("history is not available"), nil
	}
	id := strings.TrimSpace(r.GetString("id", ""))
	if id == "" {
		return errorResult("id is required"), nil
	}
	rec, err := t.deps.History.Get(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		return errorResult("analysis not found: " + id), nil
	}
	if err != nil {
		return errorResult("failed to read history"), nil
	}
	if !rec.HasResults() {
		return textResult(results.NoDataTitle + ". Only the summary of this analysis is still stored."), nil
	}
	payload, err := analysis.Parse(rec.FullResults)
	if err != nil {
		return textResult(results.NoDataTitle + "."), nil
	}
	view, err := results.Build(payload, results.Pages{}, t.colorVision(ctx))
	if err != nil {
		return textResult(results.NoDataTitle + "."), nil
	}
	if view.Symbol == analysis.Placeholder {
		view.Symbol = rec.Symbol
	}
	return textResult(results.Markdown(view)), nil
}
