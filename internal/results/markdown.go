package results

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// Markdown renders every row of the view, ignoring page positions.
func Markdown(v *View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s", v.Symbol)
	if v.Tier != "" {
		fmt.Fprintf(&sb, " (%s)", v.Tier)
	}
	sb.WriteString("\n\n")
	if v.Timeframe != "" {
		fmt.Fprintf(&sb, "- Timeframe: %s\n", v.Timeframe)
	}
	if v.Bars != nil {
		fmt.Fprintf(&sb, "- Bars: %s\n", common.FormatOptionalNumber(v.Bars))
	}
	if v.Cost != nil {
		fmt.Fprintf(&sb, "- Cost: %s\n", common.FormatMoney(*v.Cost))
	}

	writeSynthesisMarkdown(&sb, v.Synthesis)
	writeTechnicalMarkdown(&sb, v.Technical)
	writeNewsMarkdown(&sb, v.News)
	writeFundamentalMarkdown(&sb, v.Fundamental)
	return sb.String()
}

func writeTechnicalMarkdown(sb *strings.Builder, t TechnicalView) {
	sb.WriteString("\n## Technical\n\n")
	if !t.Available {
		sb.WriteString(t.Placeholder + "\n")
		return
	}
	fmt.Fprintf(sb, "Current price: %s\n", common.FormatOptionalMoney(t.CurrentPrice))

	if len(t.Gaps) > 0 {
		fmt.Fprintf(sb, "\n### Gaps (%s total, %s unfilled)\n\n",
			common.FormatOptionalNumber(t.GapsTotal), common.FormatOptionalNumber(t.GapsUnfilled))
		rows := make([][]string, 0, len(t.Gaps))
		for _, g := range t.Gaps {
			rows = append(rows, gapCells(g))
		}
		writeMarkdownTable(sb, GapHeader, rows)
	}

	writeLevelsMarkdown(sb, "Support levels", t.Support.All())
	writeLevelsMarkdown(sb, "Resistance levels", t.Resistance.All())
	writeZonesMarkdown(sb, "Demand zones", t.Demand.All())
	writeZonesMarkdown(sb, "Supply zones", t.Supply.All())
}

func writeLevelsMarkdown(sb *strings.Builder, title string, levels []analysis.LevelRow) {
	if len(levels) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	rows := make([][]string, 0, len(levels))
	for _, l := range levels {
		rows = append(rows, levelCells(l))
	}
	writeMarkdownTable(sb, LevelHeader, rows)
}

func writeZonesMarkdown(sb *strings.Builder, title string, zones []analysis.ZoneRow) {
	if len(zones) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	rows := make([][]string, 0, len(zones))
	for _, z := range zones {
		rows = append(rows, zoneCells(z))
	}
	writeMarkdownTable(sb, ZoneHeader, rows)
}

func writeNewsMarkdown(sb *strings.Builder, n NewsView) {
	sb.WriteString("\n## News\n\n")
	if !n.Available {
		sb.WriteString(n.Placeholder + "\n")
		return
	}
	fmt.Fprintf(sb, "Sentiment: %s (%s)\n", sentimentText(n), n.SentimentTone)
	if len(n.Headlines) > 0 {
		sb.WriteString("\n### Headlines\n\n")
		for _, h := range n.Headlines {
			if h.URL != "" {
				fmt.Fprintf(sb, "- [%s](%s)", h.Title, h.URL)
			} else {
				fmt.Fprintf(sb, "- %s", h.Title)
			}
			if meta := headlineMeta(h); meta != "" {
				fmt.Fprintf(sb, " (%s)", meta)
			}
			sb.WriteString("\n")
		}
	}
	writeBullets(sb, "Catalysts", n.Catalysts)
	writeBullets(sb, "Themes", n.Themes)
}

func writeFundamentalMarkdown(sb *strings.Builder, f FundamentalView) {
	sb.WriteString("\n## Fundamental\n\n")
	if !f.Available {
		sb.WriteString(f.Placeholder + "\n")
		return
	}
	h := f.Health
	if h.Available() {
		sb.WriteString("### Financial health\n\n")
		if h.Summary != "" {
			sb.WriteString(h.Summary + "\n")
		}
		if h.Grade != nil {
			fmt.Fprintf(sb, "Grade: **%s**\n", h.Grade.Value)
		}
		if len(h.Entries) > 0 {
			sb.WriteString("\n")
			rows := make([][]string, 0, len(h.Entries))
			for _, e := range h.Entries {
				rows = append(rows, []string{e.Label, e.Value, string(e.Tone)})
			}
			writeMarkdownTable(sb, HealthHeader, rows)
		}
	}
	writeBullets(sb, "Key risks", f.KeyRisks)
	writeBullets(sb, "Opportunities", f.Opportunities)
}

func writeSynthesisMarkdown(sb *strings.Builder, s SynthesisView) {
	sb.WriteString("\n## Synthesis\n\n")
	if !s.Available {
		sb.WriteString(s.Placeholder + "\n")
		return
	}
	if s.HasVerdict {
		fmt.Fprintf(sb, "Verdict: **%s**\n", s.Verdict.Label)
	}
	if s.Reasoning != "" {
		sb.WriteString("\n" + s.Reasoning + "\n")
	}
	writeCaseMarkdown(sb, "Bull case", s.Bull)
	writeCaseMarkdown(sb, "Bear case", s.Bear)
}

func writeCaseMarkdown(sb *strings.Builder, title string, c analysis.CaseRow) {
	if !c.Available {
		return
	}
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	if c.Summary != "" {
		sb.WriteString(c.Summary + "\n")
	}
	for _, f := range c.Factors {
		fmt.Fprintf(sb, "- %s\n", f)
	}
	for _, e := range c.Evidence {
		fmt.Fprintf(sb, "- Evidence: %s\n", e)
	}
}

func writeBullets(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func writeMarkdownTable(sb *strings.Builder, header []string, rows [][]string) {
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", "\\|")
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}
