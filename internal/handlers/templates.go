package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"money":       common.FormatMoney,
	"signedPct":   common.FormatSignedPct,
	"optMoney":    common.FormatOptionalMoney,
	"optPct":      common.FormatOptionalPct,
	"optNumber":   common.FormatOptionalNumber,
	"band":        analysis.StrengthBand,
	"tierStyle":   tiers.StyleFor,
	"toneColor":   func(p analysis.Palette, t analysis.Tone) string { return p.Color(t) },
	"inc":         func(i int) int { return i + 1 },
	"dec":         func(i int) int { return i - 1 },
	"version":     func() string { return config.CurrentBuild().Version },
	"placeholder": func() string { return common.Placeholder },
	"dict":        dict,
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}

// ParseTemplates parses the embedded page templates.
func ParseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// Renderer executes page templates.
type Renderer struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
}

// NewRenderer parses the embedded templates. It panics on a broken template.
func NewRenderer(logger *common.Logger, devMode bool) *Renderer {
	return &Renderer{
		logger:    logger,
		templates: template.Must(ParseTemplates()),
		devMode:   devMode,
	}
}

// Render executes name with data. Page and DevMode are always set.
func (r *Renderer) Render(w http.ResponseWriter, status int, name, page string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Page"] = page
	data["DevMode"] = r.devMode

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error().Str("template", name).Err(err).Msg("failed to render page")
	}
}
