package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// User-visible notices.
const (
	MsgInvalidInput   = "Invalid input. Please check your data."
	MsgMissingFields  = "Missing required fields."
	MsgAnalysisFailed = "Analysis failed. Please try again."
	MsgTimeout        = "Analysis took too long. Please try again."
	MsgCancelled      = "Analysis cancelled."
	MsgUnreachable    = "Could not reach the backend."
	MsgInFlight       = "An analysis is already running."
	MsgComplete       = "Analysis complete."
)

// rewrites maps known backend substrings to user-facing phrasing. Matching
// is case-insensitive and the first match wins.
var rewrites = []struct {
	match   string
	message string
}{
	{"ticker not found", "Ticker not found. Please check the symbol and try again."},
	{"rate limit", "Rate limit reached. Please wait a minute and try again."},
	{"parsererror", "Could not read the file. Please upload a valid CSV export."},
	{"missing column", "The CSV is missing required columns: time, open, high, low, close."},
	{"insufficient data", "Not enough price history to analyze. Try a longer timeframe."},
	{"no data", "No price data found for this symbol and timeframe."},
	{"connection refused", "Could not reach the backend. The analysis service may be offline."},
	{"no such host", "Could not reach the backend. Check the configured API URL."},
}

// Rewrite returns the user-facing phrasing for text, or text unchanged when
// nothing matches.
func Rewrite(text string) string {
	if msg, ok := lookupRewrite(text); ok {
		return msg
	}
	return text
}

func lookupRewrite(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range rewrites {
		if strings.Contains(lower, r.match) {
			return r.message, true
		}
	}
	return "", false
}

// MessageFor derives the notice for a terminal error. Order matters.
func MessageFor(err error) string {
	var ve *ValidationError
	var rejected *RequestRejectedError
	var transport *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &rejected):
		return rejectedMessage(rejected)
	case errors.Is(err, ErrClientTimeout):
		return MsgTimeout
	case errors.Is(err, ErrUserCancelled):
		return MsgCancelled
	case errors.Is(err, ErrSubmissionInFlight):
		return MsgInFlight
	case errors.As(err, &transport):
		if msg, ok := lookupRewrite(transport.Err.Error()); ok {
			return msg
		}
		return MsgUnreachable
	default:
		return MsgUnreachable
	}
}

func rejectedMessage(e *RequestRejectedError) string {
	switch e.Status {
	case http.StatusBadRequest:
		if e.Detail == "" {
			return MsgInvalidInput
		}
		return Rewrite(e.Detail)
	case http.StatusUnprocessableEntity:
		return MsgMissingFields
	default:
		return MsgAnalysisFailed
	}
}

// errorDetail extracts the error or detail text of a backend error body.
// A detail list of validation problems is joined by "; ".
func errorDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var obj struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if body[0] != '{' || json.Unmarshal(body, &obj) != nil {
		return truncate(string(body), 300)
	}
	for _, raw := range []json.RawMessage{obj.Error, obj.Detail} {
		if s := detailText(raw); s != "" {
			return truncate(s, 300)
		}
	}
	return ""
}

func detailText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		var msgs []string
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	var buf bytes.Buffer
	if json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return string(raw)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
