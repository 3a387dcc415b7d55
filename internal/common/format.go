package common

import (
	"fmt"
	"strings"
)

// Placeholder is shown for values the backend did not supply.
const Placeholder = "—"

// FormatMoney formats a float as a dollar amount with comma separators
func FormatMoney(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}

	s := fmt.Sprintf("%d", whole)
	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		parts = append([]string{s}, parts...)
		s = strings.Join(parts, ",")
	}

	if negative {
		return fmt.Sprintf("-$%s.%02d", s, cents)
	}
	return fmt.Sprintf("$%s.%02d", s, cents)
}

// FormatSignedPct formats a percentage with +/- prefix
func FormatSignedPct(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// FormatOptionalMoney formats a price, or the placeholder when absent.
func FormatOptionalMoney(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatMoney(*v)
}

// FormatOptionalPct formats a signed percentage, or the placeholder when absent.
func FormatOptionalPct(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatSignedPct(*v)
}

// FormatOptionalNumber formats a plain number with up to one decimal, or the placeholder.
func FormatOptionalNumber(v *float64) string {
	if v == nil {
		return Placeholder
	}
	if *v == float64(int64(*v)) {
		return fmt.Sprintf("%d", int64(*v))
	}
	return fmt.Sprintf("%.1f", *v)
}
