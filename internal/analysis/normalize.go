package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// Placeholder stands in for a value the payload did not carry.
const Placeholder = common.Placeholder

// GapRow is a normalized gap.
type GapRow struct {
	Date        string
	Direction   string
	SizePercent *float64
	Type        string
	Filled      bool
}

// GapEntries normalizes the gap details of t. Rows are never dropped for a
// missing date or type; those read as Placeholder.
func GapEntries(t *Technical) []GapRow {
	if t == nil || t.Gaps == nil {
		return nil
	}
	rows := make([]GapRow, 0, len(t.Gaps.Details))
	for _, g := range t.Gaps.Details {
		row := GapRow{
			Date:        orPlaceholder(firstText(g.Date, g.GapDate)),
			Direction:   strings.ToLower(g.Direction.String()),
			SizePercent: firstNumber(g.SizePercent, g.GapPct).Ptr(),
			Type:        orPlaceholder(g.Type.String()),
			Filled:      bool(g.Filled),
		}
		rows = append(rows, row)
	}
	return rows
}

// LevelRow is a normalized support or resistance level.
type LevelRow struct {
	Price           float64
	Strength        *float64
	DistancePercent *float64
}

// LevelEntries normalizes levels. A bare number becomes a row with only the
// price set. Entries without a usable price are skipped.
func LevelEntries(levels []Level) []LevelRow {
	rows := make([]LevelRow, 0, len(levels))
	for _, l := range levels {
		if !l.Price.Valid {
			continue
		}
		row := LevelRow{Price: l.Price.Value}
		if !l.Bare {
			row.Strength = l.Strength.Ptr()
			row.DistancePercent = l.DistancePercent.Ptr()
		}
		rows = append(rows, row)
	}
	return rows
}

// StrengthBand labels a 0-100 level strength. Absent strength has no label.
func StrengthBand(strength *float64) string {
	switch {
	case strength == nil:
		return ""
	case *strength >= 80:
		return "Strong"
	case *strength >= 50:
		return "Moderate"
	default:
		return "Weak"
	}
}

// ZoneRow is a normalized supply or demand zone.
type ZoneRow struct {
	Low             *float64
	High            *float64
	Midpoint        *float64
	Pattern         string
	Strength        *float64
	Fresh           bool
	DistancePercent *float64
}

// ZoneEntries normalizes zones against the current price. DistancePercent is
// only set when both the midpoint and a non-zero current price are known.
func ZoneEntries(zones []Zone, current Number) []ZoneRow {
	rows := make([]ZoneRow, 0, len(zones))
	for _, z := range zones {
		low := firstNumber(z.RangeLow, z.PriceLow)
		high := firstNumber(z.RangeHigh, z.PriceHigh)
		mid := z.Midpoint
		if !mid.Valid && low.Valid && high.Valid {
			mid = Number{Value: (low.Value + high.Value) / 2, Valid: true}
		}
		row := ZoneRow{
			Low:      low.Ptr(),
			High:     high.Ptr(),
			Midpoint: mid.Ptr(),
			Pattern:  orPlaceholder(z.Pattern.String()),
			Strength: z.Strength.Ptr(),
			Fresh:    bool(z.Fresh),
		}
		if mid.Valid && current.Valid && current.Value != 0 {
			d := (mid.Value - current.Value) / current.Value * 100
			row.DistancePercent = &d
		}
		rows = append(rows, row)
	}
	return rows
}

// SortZonesByDistance returns a copy of rows ordered by the absolute distance of
// the midpoint from current, nearest first. Equal distances put the lower
// midpoint first and rows without a midpoint go last. With no current price
// the original order is kept.
func SortZonesByDistance(rows []ZoneRow, current Number) []ZoneRow {
	out := make([]ZoneRow, len(rows))
	copy(out, rows)
	if !current.Valid {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Midpoint, out[j].Midpoint
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		da, db := math.Abs(*a-current.Value), math.Abs(*b-current.Value)
		if da != db {
			return da < db
		}
		return *a < *b
	})
	return out
}

// HeadlineRow is a normalized headline. Title is never empty.
type HeadlineRow struct {
	Title       string
	URL         string
	Source      string
	PublishedAt string
}

// HeadlineEntries normalizes headlines.
func HeadlineEntries(headlines []Headline) []HeadlineRow {
	rows := make([]HeadlineRow, 0, len(headlines))
	for _, h := range headlines {
		title := h.Title
		if title == "" {
			title = h.Bare
		}
		if title == "" {
			title = dump(h.Raw())
		}
		rows = append(rows, HeadlineRow{
			Title:       title,
			URL:         h.URL,
			Source:      h.Source,
			PublishedAt: h.PublishedAt,
		})
	}
	return rows
}

// CaseRow is a normalized bull or bear case.
type CaseRow struct {
	Available bool
	Summary   string
	Factors   []string
	Evidence  []string
}

// CaseView normalizes a bull or bear case.
func CaseView(c Case) CaseRow {
	return CaseRow{
		Available: !c.IsZero(),
		Summary:   c.Summary,
		Factors:   c.Factors,
		Evidence:  c.Evidence,
	}
}

// SentimentTone classifies a 0-10 sentiment score.
func SentimentTone(score Number) Tone {
	switch {
	case !score.Valid:
		return ToneNeutral
	case score.Value >= 6:
		return ToneBullish
	case score.Value <= 4:
		return ToneBearish
	default:
		return ToneNeutral
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func dump(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil || buf.Len() == 0 {
		if s := strings.TrimSpace(string(raw)); s != "" {
			return s
		}
		return Placeholder
	}
	return buf.String()
}
