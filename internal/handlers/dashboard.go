package handlers

import (
	"net/http"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/history"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
)

// recentLimit is how many records the dashboard lists.
const recentLimit = 5

// DashboardHandler serves the landing dashboard.
type DashboardHandler struct {
	logger   *common.Logger
	renderer *Renderer
	store    *history.Store
	settings *settings.Store
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(logger *common.Logger, renderer *Renderer, store *history.Store, prefs *settings.Store) *DashboardHandler {
	return &DashboardHandler{logger: logger, renderer: renderer, store: store, settings: prefs}
}

// ServeHTTP handles GET /. Any other path is a 404.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	stats, _ := h.store.Stats(ctx)
	list, _ := h.store.List(ctx)
	if len(list) > recentLimit {
		list = list[:recentLimit]
	}
	size, err := h.store.SizeBytes(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read history size")
	}

	h.renderer.Render(w, http.StatusOK, "dashboard.html", "dashboard", map[string]interface{}{
		"PageTitle":    "DASHBOARD",
		"Stats":        stats,
		"Recent":       list,
		"StorageBytes": size,
		"BudgetLimit":  h.settings.Get(ctx).BudgetLimit,
	})
}
