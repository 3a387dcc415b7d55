package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/chartscope-portal/internal/submission"
)

// AnalyzeTickerTool runs a chart analysis for a listed symbol.
func AnalyzeTickerTool() mcp.Tool {
	timeframes := make([]string, 0, len(submission.Timeframes))
	for _, tf := range submission.Timeframes {
		timeframes = append(timeframes, tf.Value)
	}
	return mcp.NewTool("analyze_ticker",
		mcp.WithDescription("Run a chart analysis for a ticker symbol and return the report as markdown. Costs depend on the tier; see list_tiers."),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Ticker symbol, e.g. AAPL. Letters, digits and dots, up to 6 characters.")),
		mcp.WithString("timeframe", mcp.Description("Candle size: "+strings.Join(timeframes, ", ")+". Defaults to 1d."), mcp.Enum(timeframes...)),
		mcp.WithString("tier", mcp.Description("Tier id from list_tiers. Defaults to the configured default tier.")),
	)
}

// ListTiersTool lists the analysis tiers.
func ListTiersTool() mcp.Tool {
	return mcp.NewTool("list_tiers",
		mcp.WithDescription("List the analysis tiers with their price and included features."),
	)
}

// ListHistoryTool lists past analyses.
func ListHistoryTool() mcp.Tool {
	return mcp.NewTool("list_history",
		mcp.WithDescription("List past analyses, newest first, with spend totals."),
	)
}

// GetAnalysisTool re-opens a stored analysis.
func GetAnalysisTool() mcp.Tool {
	return mcp.NewTool("get_analysis",
		mcp.WithDescription("Return the full report of a past analysis by id (from list_history)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("History record id")),
	)
}
