package analysis

import "strings"

// Verdict is the synthesis conclusion on a five-point scale.
type Verdict string

const (
	VerdictStrongBull   Verdict = "STRONG_BULL"
	VerdictModerateBull Verdict = "MODERATE_BULL"
	VerdictNeutral      Verdict = "NEUTRAL"
	VerdictModerateBear Verdict = "MODERATE_BEAR"
	VerdictStrongBear   Verdict = "STRONG_BEAR"
)

// ParseVerdict normalizes case and separators. ok is false for values outside
// the five known verdicts.
func ParseVerdict(s string) (v Verdict, ok bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Verdict(norm) {
	case VerdictStrongBull, VerdictModerateBull, VerdictNeutral, VerdictModerateBear, VerdictStrongBear:
		return Verdict(norm), true
	}
	return Verdict(s), false
}

// Label returns a display label. Unknown verdicts show their raw text.
func (v Verdict) Label() string {
	switch v {
	case VerdictStrongBull:
		return "Strong Bull"
	case VerdictModerateBull:
		return "Moderate Bull"
	case VerdictNeutral:
		return "Neutral"
	case VerdictModerateBear:
		return "Moderate Bear"
	case VerdictStrongBear:
		return "Strong Bear"
	}
	if s := strings.TrimSpace(string(v)); s != "" {
		return s
	}
	return Placeholder
}

// ColorVision is the user's colour-vision preference.
type ColorVision string

const (
	VisionStandard     ColorVision = "standard"
	VisionProtanopia   ColorVision = "protanopia"
	VisionDeuteranopia ColorVision = "deuteranopia"
	VisionTritanopia   ColorVision = "tritanopia"
)

// ParseColorVision falls back to VisionStandard for unknown values.
func ParseColorVision(s string) ColorVision {
	switch cv := ColorVision(strings.ToLower(strings.TrimSpace(s))); cv {
	case VisionProtanopia, VisionDeuteranopia, VisionTritanopia:
		return cv
	}
	return VisionStandard
}

// Palette is the bull/bear colour table for one preference.
type Palette struct {
	Bull    string
	Bear    string
	Neutral string
}

// PaletteFor returns the palette for a preference.
func PaletteFor(cv ColorVision) Palette {
	switch ParseColorVision(string(cv)) {
	case VisionProtanopia, VisionDeuteranopia:
		return Palette{Bull: "#3b82f6", Bear: "#f59e0b", Neutral: "#9ca3af"}
	case VisionTritanopia:
		return Palette{Bull: "#14b8a6", Bear: "#e11d48", Neutral: "#9ca3af"}
	default:
		return Palette{Bull: "#22c55e", Bear: "#ef4444", Neutral: "#9ca3af"}
	}
}

// Color returns the palette colour for a tone.
func (p Palette) Color(t Tone) string {
	switch t {
	case ToneBullish:
		return p.Bull
	case ToneBearish:
		return p.Bear
	default:
		return p.Neutral
	}
}

// Style is the presentation of a verdict.
type Style struct {
	Verdict Verdict
	Label   string
	Tone    Tone
	Strong  bool
	Color   string
}

// VerdictStyle maps a verdict to its style. Unknown verdicts get neutral styling.
func VerdictStyle(v Verdict, cv ColorVision) Style {
	parsed, _ := ParseVerdict(string(v))
	s := Style{Verdict: parsed, Label: parsed.Label(), Tone: ToneNeutral}
	switch parsed {
	case VerdictStrongBull:
		s.Tone, s.Strong = ToneBullish, true
	case VerdictModerateBull:
		s.Tone = ToneBullish
	case VerdictModerateBear:
		s.Tone = ToneBearish
	case VerdictStrongBear:
		s.Tone, s.Strong = ToneBearish, true
	}
	s.Color = PaletteFor(cv).Color(s.Tone)
	return s
}
