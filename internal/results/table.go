package results

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/paginate"
)

// WriteTables renders the view as terminal tables. Paginated lists show the
// page selected when the view was built.
func WriteTables(w io.Writer, v *View) error {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%s", v.Symbol)
	if v.Tier != "" {
		fmt.Fprintf(sb, "  tier=%s", v.Tier)
	}
	if v.Timeframe != "" {
		fmt.Fprintf(sb, "  timeframe=%s", v.Timeframe)
	}
	if v.Cost != nil {
		fmt.Fprintf(sb, "  cost=%s", common.FormatMoney(*v.Cost))
	}
	sb.WriteString("\n")

	s := v.Synthesis
	sb.WriteString("\nSynthesis:\n")
	if !s.Available {
		sb.WriteString("  " + s.Placeholder + "\n")
	} else {
		if s.HasVerdict {
			fmt.Fprintf(sb, "  Verdict: %s\n", s.Verdict.Label)
		}
		if s.Reasoning != "" {
			fmt.Fprintf(sb, "  %s\n", s.Reasoning)
		}
		writeCaseText(sb, "Bull case", s.Bull)
		writeCaseText(sb, "Bear case", s.Bear)
	}

	t := v.Technical
	sb.WriteString("\nTechnical:\n")
	if !t.Available {
		sb.WriteString("  " + t.Placeholder + "\n")
	} else {
		fmt.Fprintf(sb, "  Current price: %s\n", common.FormatOptionalMoney(t.CurrentPrice))
		if len(t.Gaps) > 0 {
			rows := make([][]string, 0, len(t.Gaps))
			for _, g := range t.Gaps {
				rows = append(rows, gapCells(g))
			}
			writeTable(sb, "Gaps", GapHeader, rows, "")
		}
		writeLevelTable(sb, "Support levels", t.Support)
		writeLevelTable(sb, "Resistance levels", t.Resistance)
		writeZoneTable(sb, "Demand zones", t.Demand)
		writeZoneTable(sb, "Supply zones", t.Supply)
	}

	n := v.News
	sb.WriteString("\nNews:\n")
	if !n.Available {
		sb.WriteString("  " + n.Placeholder + "\n")
	} else {
		fmt.Fprintf(sb, "  Sentiment: %s (%s)\n", sentimentText(n), n.SentimentTone)
		for _, h := range n.Headlines {
			fmt.Fprintf(sb, "  - %s\n", headlineText(h))
		}
		writeListText(sb, "Catalysts", n.Catalysts)
		writeListText(sb, "Themes", n.Themes)
	}

	f := v.Fundamental
	sb.WriteString("\nFundamental:\n")
	if !f.Available {
		sb.WriteString("  " + f.Placeholder + "\n")
	} else {
		if f.Health.Summary != "" {
			fmt.Fprintf(sb, "  %s\n", f.Health.Summary)
		}
		if f.Health.Grade != nil {
			fmt.Fprintf(sb, "  Grade: %s\n", f.Health.Grade.Value)
		}
		if len(f.Health.Entries) > 0 {
			rows := make([][]string, 0, len(f.Health.Entries))
			for _, e := range f.Health.Entries {
				rows = append(rows, []string{e.Label, e.Value, string(e.Tone)})
			}
			writeTable(sb, "Financial health", HealthHeader, rows, "")
		}
		writeListText(sb, "Key risks", f.KeyRisks)
		writeListText(sb, "Opportunities", f.Opportunities)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeLevelTable(sb *strings.Builder, title string, p *paginate.Pager[analysis.LevelRow]) {
	if p.Len() == 0 {
		return
	}
	rows := make([][]string, 0, p.PageSize())
	for _, l := range p.Items() {
		rows = append(rows, levelCells(l))
	}
	writeTable(sb, title, LevelHeader, rows, pageFooter(p.Page(), p.TotalPages(), p.Len()))
}

func writeZoneTable(sb *strings.Builder, title string, p *paginate.Pager[analysis.ZoneRow]) {
	if p.Len() == 0 {
		return
	}
	rows := make([][]string, 0, p.PageSize())
	for _, z := range p.Items() {
		rows = append(rows, zoneCells(z))
	}
	writeTable(sb, title, ZoneHeader, rows, pageFooter(p.Page(), p.TotalPages(), p.Len()))
}

func pageFooter(page, total, n int) string {
	if total <= 1 {
		return ""
	}
	return fmt.Sprintf("page %d of %d (%d rows)", page+1, total, n)
}

func writeTable(sb *strings.Builder, title string, header []string, rows [][]string, footer string) {
	fmt.Fprintf(sb, "\n  %s:\n", title)
	table := tablewriter.NewWriter(sb)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	if footer != "" {
		fmt.Fprintf(sb, "  %s\n", footer)
	}
}

func writeCaseText(sb *strings.Builder, title string, c analysis.CaseRow) {
	if !c.Available {
		return
	}
	fmt.Fprintf(sb, "  %s:", title)
	if c.Summary != "" {
		fmt.Fprintf(sb, " %s", c.Summary)
	}
	sb.WriteString("\n")
	for _, f := range c.Factors {
		fmt.Fprintf(sb, "    - %s\n", f)
	}
	for _, e := range c.Evidence {
		fmt.Fprintf(sb, "    * %s\n", e)
	}
}

func writeListText(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "    - %s\n", item)
	}
}
