package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

var colorVisions = []analysis.ColorVision{
	analysis.VisionStandard,
	analysis.VisionProtanopia,
	analysis.VisionDeuteranopia,
	analysis.VisionTritanopia,
}

// SettingsHandler serves the settings page and handles settings updates.
type SettingsHandler struct {
	logger   *common.Logger
	renderer *Renderer
	store    *settings.Store
	catalog  *tiers.Catalog
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(logger *common.Logger, renderer *Renderer, store *settings.Store, catalog *tiers.Catalog) *SettingsHandler {
	return &SettingsHandler{logger: logger, renderer: renderer, store: store, catalog: catalog}
}

// HandleSettings routes GET and POST /settings.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.render(w, r, http.StatusOK, h.store.Get(r.Context()), "")
	case http.MethodPost:
		h.handleSave(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) render(w http.ResponseWriter, r *http.Request, status int, s settings.Settings, errMsg string) {
	csrfToken := ""
	if c, err := r.Cookie("_csrf"); err == nil {
		csrfToken = c.Value
	}
	h.renderer.Render(w, status, "settings.html", "settings", map[string]interface{}{
		"PageTitle": "SETTINGS",
		"Settings":  s,
		"Tiers":     h.catalog.List(r.Context()),
		"Visions":   colorVisions,
		"Palette":   analysis.PaletteFor(s.ColorVision),
		"Saved":     r.URL.Query().Get("saved") == "1",
		"Error":     errMsg,
		"CSRFToken": csrfToken,
	})
}

// handleSave handles POST /settings.
func (h *SettingsHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := settings.Settings{
		DefaultTier: r.FormValue("default_tier"),
		ColorVision: analysis.ColorVision(r.FormValue("color_vision")),
	}
	if raw := strings.TrimSpace(r.FormValue("budget_limit")); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil || limit < 0 {
			h.render(w, r, http.StatusBadRequest, in, "Budget limit must be a positive amount.")
			return
		}
		in.BudgetLimit = limit
	}
	if _, err := h.store.Save(r.Context(), in); err != nil {
		h.logger.Error().Err(err).Msg("failed to save settings")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/settings?saved=1", http.StatusFound)
}

// HandleGetAPI handles GET /api/settings.
func (h *SettingsHandler) HandleGetAPI(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.store.Get(r.Context()))
}

// HandlePutAPI handles PUT /api/settings.
func (h *SettingsHandler) HandlePutAPI(w http.ResponseWriter, r *http.Request) {
	var in settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid settings")
		return
	}
	if in.BudgetLimit < 0 {
		WriteError(w, http.StatusBadRequest, "budgetLimit must not be negative")
		return
	}
	saved, err := h.store.Save(r.Context(), in)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save settings")
		WriteError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}
