package analysis

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Level is a support or resistance level. The backend sends either a bare
// price or an object with price, strength and distance.
type Level struct {
	Bare            bool
	Price           Number
	Strength        Number
	DistancePercent Number
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	*l = Level{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		var n Number
		_ = n.UnmarshalJSON(data)
		l.Bare = true
		l.Price = n
		return nil
	}
	var obj struct {
		Price           Number `json:"price"`
		Level           Number `json:"level"`
		Strength        Number `json:"strength"`
		DistancePercent Number `json:"distance_percent"`
		Distance        Number `json:"distance"`
	}
	_ = json.Unmarshal(data, &obj)
	l.Price = firstNumber(obj.Price, obj.Level)
	l.Strength = obj.Strength
	l.DistancePercent = firstNumber(obj.DistancePercent, obj.Distance)
	return nil
}

// Headline is a news headline: a bare string or an object whose field names
// vary between news providers.
type Headline struct {
	Bare        string
	Title       string
	URL         string
	Source      string
	PublishedAt string
	raw         json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Headline) UnmarshalJSON(data []byte) error {
	*h = Headline{raw: append(json.RawMessage(nil), bytes.TrimSpace(data)...)}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		var s Text
		_ = s.UnmarshalJSON(data)
		h.Bare = s.String()
		return nil
	}
	var obj struct {
		Title           Text `json:"title"`
		Headline        Text `json:"headline"`
		URL             Text `json:"url"`
		Link            Text `json:"link"`
		Source          Text `json:"source"`
		Publisher       Text `json:"publisher"`
		PublishedAt     Text `json:"publishedAt"`
		PublishedAtAlt  Text `json:"published_at"`
		Date            Text `json:"date"`
		PublisherObject *struct {
			Name Text `json:"name"`
		} `json:"provider"`
	}
	_ = json.Unmarshal(data, &obj)
	h.Title = firstText(obj.Title, obj.Headline)
	h.URL = firstText(obj.URL, obj.Link)
	h.Source = firstText(obj.Source, obj.Publisher)
	if h.Source == "" && obj.PublisherObject != nil {
		h.Source = obj.PublisherObject.Name.String()
	}
	h.PublishedAt = firstText(obj.PublishedAt, obj.PublishedAtAlt, obj.Date)
	return nil
}

// Raw returns the headline exactly as received.
func (h Headline) Raw() json.RawMessage {
	return h.raw
}

// Metric is one key/value entry of an object-shaped financial health report.
type Metric struct {
	Key   string
	Value string
}

// FinancialHealth is either a prose summary or an ordered set of metrics.
type FinancialHealth struct {
	Summary string
	Metrics []Metric
}

// IsZero reports whether nothing usable was received.
func (f FinancialHealth) IsZero() bool {
	return f.Summary == "" && len(f.Metrics) == 0
}

// UnmarshalJSON implements json.Unmarshaler. Object key order is preserved.
func (f *FinancialHealth) UnmarshalJSON(data []byte) error {
	*f = FinancialHealth{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		var s Text
		_ = s.UnmarshalJSON(data)
		f.Summary = s.String()
		return nil
	}
	metrics, err := orderedObject(data)
	if err != nil {
		return nil
	}
	f.Metrics = metrics
	return nil
}

// Case is a bull or bear case: prose, or a structured list of factors and evidence.
type Case struct {
	Summary  string
	Factors  []string
	Evidence []string
}

// IsZero reports whether nothing usable was received.
func (c Case) IsZero() bool {
	return c.Summary == "" && len(c.Factors) == 0 && len(c.Evidence) == 0
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Case) UnmarshalJSON(data []byte) error {
	*c = Case{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			Summary  Text     `json:"summary"`
			Thesis   Text     `json:"thesis"`
			Factors  TextList `json:"factors"`
			Evidence TextList `json:"evidence"`
		}
		_ = json.Unmarshal(data, &obj)
		c.Summary = firstText(obj.Summary, obj.Thesis)
		c.Factors = obj.Factors
		c.Evidence = obj.Evidence
	case '[':
		var factors TextList
		_ = factors.UnmarshalJSON(data)
		c.Factors = factors
	default:
		var s Text
		_ = s.UnmarshalJSON(data)
		c.Summary = s.String()
	}
	return nil
}

// orderedObject decodes a flat JSON object into key/value pairs in document order.
func orderedObject(data []byte) ([]Metric, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []Metric
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out, err
		}
		key, ok := tok.(string)
		if !ok {
			return out, nil
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return out, err
		}
		value := rawText(raw)
		if strings.TrimSpace(key) == "" || value == "" {
			continue
		}
		out = append(out, Metric{Key: key, Value: value})
	}
	return out, nil
}

func firstNumber(values ...Number) Number {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return Number{}
}

func firstText(values ...Text) string {
	for _, v := range values {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}
