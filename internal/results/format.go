package results

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// Column headers shared by the Markdown and terminal renderers.
var (
	GapHeader    = []string{"Date", "Direction", "Size", "Type", "Status"}
	LevelHeader  = []string{"Price", "Strength", "Distance"}
	ZoneHeader   = []string{"Range", "Midpoint", "Pattern", "Strength", "Status", "Distance"}
	HealthHeader = []string{"Metric", "Value", "Tone"}
)

func levelCells(l analysis.LevelRow) []string {
	strength := common.FormatOptionalNumber(l.Strength)
	if band := analysis.StrengthBand(l.Strength); band != "" {
		strength += " (" + band + ")"
	}
	return []string{
		common.FormatMoney(l.Price),
		strength,
		common.FormatOptionalPct(l.DistancePercent),
	}
}

func zoneCells(z analysis.ZoneRow) []string {
	return []string{
		common.FormatOptionalMoney(z.Low) + " - " + common.FormatOptionalMoney(z.High),
		common.FormatOptionalMoney(z.Midpoint),
		z.Pattern,
		common.FormatOptionalNumber(z.Strength),
		yesNo(z.Fresh, "Fresh", "Tested"),
		common.FormatOptionalPct(z.DistancePercent),
	}
}

func gapCells(g analysis.GapRow) []string {
	dir := g.Direction
	switch dir {
	case "up":
		dir = "Up"
	case "down":
		dir = "Down"
	case "":
		dir = analysis.Placeholder
	}
	size := analysis.Placeholder
	if g.SizePercent != nil {
		size = fmt.Sprintf("%.2f%%", *g.SizePercent)
	}
	return []string{g.Date, dir, size, g.Type, yesNo(g.Filled, "Filled", "Unfilled")}
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func sentimentText(v NewsView) string {
	if v.Sentiment == nil {
		return analysis.Placeholder
	}
	return fmt.Sprintf("%.1f / 10", *v.Sentiment)
}

func headlineMeta(h analysis.HeadlineRow) string {
	var meta []string
	if h.Source != "" {
		meta = append(meta, h.Source)
	}
	if h.PublishedAt != "" {
		meta = append(meta, h.PublishedAt)
	}
	return strings.Join(meta, ", ")
}

func headlineText(h analysis.HeadlineRow) string {
	if meta := headlineMeta(h); meta != "" {
		return h.Title + " (" + meta + ")"
	}
	return h.Title
}
