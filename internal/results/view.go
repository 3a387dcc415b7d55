// Package results composes the display form of one analysis payload.
package results

import (
	"errors"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/paginate"
)

// ErrNoData means there is no payload to show.
var ErrNoData = errors.New("no analysis data found")

const (
	// NotAvailable replaces a section the tier did not include.
	NotAvailable = "Not available for this tier"
	// NoDataTitle is shown when there is no payload at all.
	NoDataTitle = "No analysis data found"

	LevelPageSize = 5
	ZonePageSize  = 3
)

// Pages holds the page index of each paginated list. Each list pages on its own.
type Pages struct {
	Support    int
	Resistance int
	Demand     int
	Supply     int
}

// Section is the availability of one report tab.
type Section struct {
	Available   bool
	Placeholder string
}

func available(ok bool) Section {
	if ok {
		return Section{Available: true}
	}
	return Section{Placeholder: NotAvailable}
}

// TechnicalView is the technical tab.
type TechnicalView struct {
	Section
	CurrentPrice *float64
	GapsTotal    *float64
	GapsUnfilled *float64
	Gaps         []analysis.GapRow
	Support      *paginate.Pager[analysis.LevelRow]
	Resistance   *paginate.Pager[analysis.LevelRow]
	Demand       *paginate.Pager[analysis.ZoneRow]
	Supply       *paginate.Pager[analysis.ZoneRow]
}

// NewsView is the news tab.
type NewsView struct {
	Section
	Sentiment     *float64
	SentimentTone analysis.Tone
	Headlines     []analysis.HeadlineRow
	Catalysts     []string
	Themes        []string
}

// FundamentalView is the fundamental tab.
type FundamentalView struct {
	Section
	Health        analysis.HealthView
	KeyRisks      []string
	Opportunities []string
}

// SynthesisView is the synthesis tab.
type SynthesisView struct {
	Section
	HasVerdict bool
	Verdict    analysis.Style
	Reasoning  string
	Bull       analysis.CaseRow
	Bear       analysis.CaseRow
}

// View is the full report for one payload.
type View struct {
	Symbol    string
	Tier      string
	Timeframe string
	Bars      *float64
	Cost      *float64
	Palette   analysis.Palette

	Technical   TechnicalView
	News        NewsView
	Fundamental FundamentalView
	Synthesis   SynthesisView
}

// Build derives the view from r. Nothing is cached: zones are re-sorted by
// distance from the current price and new pagers are created on every call.
func Build(r *analysis.Result, pages Pages, cv analysis.ColorVision) (*View, error) {
	if r == nil {
		return nil, ErrNoData
	}
	v := &View{
		Symbol:    r.Symbol(analysis.Placeholder),
		Tier:      r.Metadata.Tier.String(),
		Timeframe: r.Metadata.Timeframe.String(),
		Bars:      r.Metadata.Bars.Ptr(),
		Palette:   analysis.PaletteFor(cv),
	}
	if r.CostSummary != nil {
		v.Cost = r.CostSummary.TotalCost.Ptr()
	}
	v.Technical = buildTechnical(r.Technical, pages)
	v.News = buildNews(r.News)
	v.Fundamental = buildFundamental(r.Fundamental)
	v.Synthesis = buildSynthesis(r.Synthesis, cv)
	return v, nil
}

func buildTechnical(t *analysis.Technical, pages Pages) TechnicalView {
	tv := TechnicalView{Section: available(t != nil)}
	var support, resistance []analysis.LevelRow
	var demand, supply []analysis.ZoneRow
	if t != nil {
		tv.CurrentPrice = t.CurrentPrice.Ptr()
		if t.Gaps != nil {
			tv.GapsTotal = t.Gaps.Total.Ptr()
			tv.GapsUnfilled = t.Gaps.Unfilled.Ptr()
			tv.Gaps = analysis.GapEntries(t)
		}
		if sr := t.SupportResistance; sr != nil {
			support = analysis.LevelEntries(sr.SupportLevels)
			resistance = analysis.LevelEntries(sr.ResistanceLevels)
		}
		if sd := t.SupplyDemand; sd != nil {
			demand = analysis.SortZonesByDistance(analysis.ZoneEntries(sd.DemandZones, t.CurrentPrice), t.CurrentPrice)
			supply = analysis.SortZonesByDistance(analysis.ZoneEntries(sd.SupplyZones, t.CurrentPrice), t.CurrentPrice)
		}
	}
	tv.Support = paged(support, LevelPageSize, pages.Support)
	tv.Resistance = paged(resistance, LevelPageSize, pages.Resistance)
	tv.Demand = paged(demand, ZonePageSize, pages.Demand)
	tv.Supply = paged(supply, ZonePageSize, pages.Supply)
	return tv
}

// paged creates a pager on page. Pages outside the list clamp to the nearest
// valid page so links built from stale query strings still show rows.
func paged[T any](items []T, size, page int) *paginate.Pager[T] {
	p := paginate.New(items, size)
	page = max(0, min(page, p.TotalPages()-1))
	p.SetPage(page)
	return p
}

func buildNews(n *analysis.News) NewsView {
	nv := NewsView{Section: available(n != nil), SentimentTone: analysis.ToneNeutral}
	if n == nil {
		return nv
	}
	nv.Sentiment = n.SentimentScore.Ptr()
	nv.SentimentTone = analysis.SentimentTone(n.SentimentScore)
	nv.Headlines = analysis.HeadlineEntries(n.Headlines)
	nv.Catalysts = n.Catalysts
	nv.Themes = n.Themes
	return nv
}

func buildFundamental(f *analysis.Fundamental) FundamentalView {
	fv := FundamentalView{Section: available(f != nil)}
	if f == nil {
		return fv
	}
	fv.Health = analysis.FinancialHealthView(f.FinancialHealth)
	fv.KeyRisks = f.KeyRisks
	fv.Opportunities = f.Opportunities
	return fv
}

func buildSynthesis(s *analysis.Synthesis, cv analysis.ColorVision) SynthesisView {
	sv := SynthesisView{Section: available(s != nil)}
	if s == nil {
		return sv
	}
	verdict := s.Verdict.String()
	sv.HasVerdict = verdict != ""
	sv.Verdict = analysis.VerdictStyle(analysis.Verdict(verdict), cv)
	sv.Reasoning = s.Reasoning.String()
	sv.Bull = analysis.CaseView(s.BullCase)
	sv.Bear = analysis.CaseView(s.BearCase)
	return sv
}
