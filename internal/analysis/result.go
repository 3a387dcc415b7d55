package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned by Parse when the payload is not a JSON object.
var ErrNotObject = errors.New("analysis payload is not a JSON object")

// Result is a decoded analysis payload. Sections the backend omitted, or sent
// in a shape other than an object, are nil and mean "not included at this tier".
type Result struct {
	Metadata    Metadata
	Technical   *Technical
	News        *News
	Fundamental *Fundamental
	Synthesis   *Synthesis
	CostSummary *CostSummary

	raw json.RawMessage
}

// Metadata describes the analysed instrument.
type Metadata struct {
	Symbol    Text   `json:"symbol"`
	Tier      Text   `json:"tier"`
	Timeframe Text   `json:"timeframe"`
	Bars      Number `json:"bars"`
}

// Technical is the chart-pattern section.
type Technical struct {
	CurrentPrice      Number             `json:"current_price"`
	Gaps              *Gaps              `json:"-"`
	SupportResistance *SupportResistance `json:"-"`
	SupplyDemand      *SupplyDemand      `json:"-"`
}

// Gaps summarises price gaps.
type Gaps struct {
	Total    Number `json:"total"`
	Unfilled Number `json:"unfilled"`
	Details  []Gap  `json:"details"`
}

// Gap is a raw gap entry. Date and size each have two accepted keys.
type Gap struct {
	Date        Text   `json:"date"`
	GapDate     Text   `json:"gap_date"`
	Direction   Text   `json:"direction"`
	SizePercent Number `json:"size_percent"`
	GapPct      Number `json:"gap_pct"`
	Type        Text   `json:"type"`
	Filled      Flag   `json:"filled"`
}

// SupportResistance holds the two level lists.
type SupportResistance struct {
	SupportLevels    []Level `json:"support_levels"`
	ResistanceLevels []Level `json:"resistance_levels"`
}

// SupplyDemand holds the two zone lists.
type SupplyDemand struct {
	DemandZones []Zone `json:"demand_zones"`
	SupplyZones []Zone `json:"supply_zones"`
}

// Zone is a raw supply or demand zone.
type Zone struct {
	PriceLow  Number `json:"price_low"`
	RangeLow  Number `json:"range_low"`
	PriceHigh Number `json:"price_high"`
	RangeHigh Number `json:"range_high"`
	Midpoint  Number `json:"midpoint"`
	Pattern   Text   `json:"pattern"`
	Strength  Number `json:"strength"`
	Fresh     Flag   `json:"fresh"`
}

// News is the news and sentiment section.
type News struct {
	SentimentScore Number     `json:"sentiment_score"`
	Headlines      []Headline `json:"headlines"`
	Catalysts      TextList   `json:"catalysts"`
	Themes         TextList   `json:"themes"`
}

// Fundamental is the filings section.
type Fundamental struct {
	FinancialHealth FinancialHealth `json:"financial_health"`
	KeyRisks        TextList        `json:"key_risks"`
	Opportunities   TextList        `json:"opportunities"`
}

// Synthesis is the AI synthesis section.
type Synthesis struct {
	Verdict   Text `json:"verdict"`
	Reasoning Text `json:"reasoning"`
	BullCase  Case `json:"bull_case"`
	BearCase  Case `json:"bear_case"`
}

// CostSummary reports what the analysis cost.
type CostSummary struct {
	TotalCost Number `json:"total_cost"`
}

// Parse decodes a payload. Every section is decoded on its own so a malformed
// section only loses itself. The input bytes are retained verbatim.
func Parse(data []byte) (*Result, error) {
	data = bytes.TrimSpace(data)
	var top map[string]json.RawMessage
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to decode analysis payload: %w", err)
	}

	r := &Result{raw: append(json.RawMessage(nil), data...)}
	decodeObject(top["metadata"], &r.Metadata)

	if raw, ok := objectField(top, "technical"); ok {
		r.Technical = decodeTechnical(raw)
	}
	if raw, ok := objectField(top, "news"); ok {
		r.News = &News{}
		decodeObject(raw, r.News)
	}
	if raw, ok := objectField(top, "fundamental"); ok {
		r.Fundamental = &Fundamental{}
		decodeObject(raw, r.Fundamental)
	}
	if raw, ok := objectField(top, "synthesis"); ok {
		r.Synthesis = &Synthesis{}
		decodeObject(raw, r.Synthesis)
	}
	if raw, ok := objectField(top, "cost_summary"); ok {
		r.CostSummary = &CostSummary{}
		decodeObject(raw, r.CostSummary)
	}
	return r, nil
}

// Raw returns the payload exactly as received.
func (r *Result) Raw() json.RawMessage {
	if r == nil {
		return nil
	}
	return r.raw
}

// MarshalJSON emits the original payload so a hand-off never loses fields
// the decoder does not model.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r == nil || len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// Symbol returns metadata.symbol, or fallback when it is empty.
func (r *Result) Symbol(fallback string) string {
	if r == nil {
		return fallback
	}
	if s := r.Metadata.Symbol.String(); s != "" {
		return s
	}
	return fallback
}

// TotalCost returns cost_summary.total_cost, zero when absent.
func (r *Result) TotalCost() float64 {
	if r == nil || r.CostSummary == nil || !r.CostSummary.TotalCost.Valid {
		return 0
	}
	return r.CostSummary.TotalCost.Value
}

// VerdictText returns the raw synthesis verdict, empty when absent.
func (r *Result) VerdictText() string {
	if r == nil || r.Synthesis == nil {
		return ""
	}
	return r.Synthesis.Verdict.String()
}

func decodeTechnical(raw json.RawMessage) *Technical {
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(raw, &fields)
	t := &Technical{}
	_ = t.CurrentPrice.UnmarshalJSON(fields["current_price"])
	if sub, ok := objectField(fields, "gaps"); ok {
		t.Gaps = &Gaps{}
		decodeObject(sub, t.Gaps)
	}
	if sub, ok := objectField(fields, "support_resistance"); ok {
		t.SupportResistance = &SupportResistance{}
		decodeObject(sub, t.SupportResistance)
	}
	if sub, ok := objectField(fields, "supply_demand"); ok {
		t.SupplyDemand = &SupplyDemand{}
		decodeObject(sub, t.SupplyDemand)
	}
	return t
}

// objectField returns fields[key] when it holds a JSON object.
func objectField(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	return raw, true
}

// decodeObject decodes into v and ignores errors. encoding/json keeps
// filling the remaining fields after an UnmarshalTypeError, so a list sent as
// a string only leaves that one field empty.
func decodeObject(raw json.RawMessage, v any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, v)
}
