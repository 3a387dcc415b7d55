package analysis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The wire types below never return decoding errors. A value of the wrong
// shape decodes to the zero value so one misshapen field cannot discard the
// section that contains it.

// Number is a JSON number that may be absent, null, or sent as a numeric string.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Number{Value: f, Valid: true}
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value as a pointer, nil when absent.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Text is a JSON string that also accepts numbers and booleans in their literal form.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	if isScalarLiteral(data) {
		*t = Text(data)
	}
	return nil
}

// String returns the trimmed text.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Flag is a JSON boolean that also accepts "true"/"false" strings and 0/1.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = false
	data = bytes.TrimSpace(data)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var n Number
	_ = n.UnmarshalJSON(data)
	if n.Valid {
		*f = n.Value != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			*f = Flag(parsed)
		}
	}
	return nil
}

// TextList is a list of strings. A bare string decodes as a one-element list;
// non-string elements keep their compact JSON form.
type TextList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *TextList) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			*l = TextList{s}
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make(TextList, 0, len(items))
	for _, item := range items {
		if s := rawText(item); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// rawText renders a raw JSON value as display text.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// isScalarLiteral reports whether data is a JSON number or boolean literal.
func isScalarLiteral(data []byte) bool {
	if bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")) {
		return true
	}
	if len(data) == 0 {
		return false
	}
	c := data[0]
	return c == '-' || (c >= '0' && c <= '9')
}
