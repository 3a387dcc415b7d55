package analysis

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tone is a three-way colour band.
type Tone string

const (
	ToneBullish Tone = "positive"
	ToneBearish Tone = "negative"
	ToneNeutral Tone = "neutral"
)

var (
	positiveWords = []string{"strong", "growing", "healthy", "excellent", "improving", "robust", "solid", "positive", "expanding"}
	negativeWords = []string{"weak", "declining", "poor", "deteriorating", "negative", "shrinking", "concerning", "distressed", "falling"}

	letterGrade = regexp.MustCompile(`^[A-Fa-f][+-]?$`)
)

// HealthEntry is one labelled financial-health metric.
type HealthEntry struct {
	Key   string
	Label string
	Value string
	Tone  Tone
}

// HealthView is the display form of a financial-health report: either Summary
// text or an optional Grade plus the remaining Entries in payload order.
type HealthView struct {
	Summary string
	Grade   *HealthEntry
	Entries []HealthEntry
}

// Available reports whether there is anything to show.
func (v HealthView) Available() bool {
	return v.Summary != "" || v.Grade != nil || len(v.Entries) > 0
}

// FinancialHealthView partitions an object-shaped report into the first key
// containing "grade" and the remainder. Text reports pass through.
func FinancialHealthView(f FinancialHealth) HealthView {
	if f.Summary != "" {
		return HealthView{Summary: f.Summary}
	}
	var v HealthView
	for _, m := range f.Metrics {
		entry := HealthEntry{
			Key:   m.Key,
			Label: MetricLabel(m.Key),
			Value: m.Value,
			Tone:  ClassifyHealth(m.Value),
		}
		if v.Grade == nil && strings.Contains(strings.ToLower(m.Key), "grade") {
			v.Grade = &entry
			continue
		}
		v.Entries = append(v.Entries, entry)
	}
	return v
}

// ClassifyHealth bands a metric value. A and D/F letter grades are positive
// and negative; otherwise keywords decide, and a value matching both lists or
// neither is neutral.
func ClassifyHealth(value string) Tone {
	v := strings.TrimSpace(value)
	if letterGrade.MatchString(v) {
		switch strings.ToUpper(v[:1]) {
		case "A":
			return ToneBullish
		case "D", "F":
			return ToneBearish
		}
		return ToneNeutral
	}
	lower := strings.ToLower(v)
	pos := containsAny(lower, positiveWords)
	neg := containsAny(lower, negativeWords)
	switch {
	case pos && !neg:
		return ToneBullish
	case neg && !pos:
		return ToneBearish
	default:
		return ToneNeutral
	}
}

// MetricLabel turns a payload key such as "debt_to_equity" into "Debt To Equity".
func MetricLabel(key string) string {
	key = strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(key))
	// A Caser holds state and is not safe for concurrent use.
	return cases.Title(language.English).String(strings.Join(strings.Fields(key), " "))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
