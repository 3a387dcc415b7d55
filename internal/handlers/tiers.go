package handlers

import (
	"net/http"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

// TiersHandler serves the tier catalog.
type TiersHandler struct {
	logger  *common.Logger
	catalog *tiers.Catalog
}

// NewTiersHandler creates a new tiers handler.
func NewTiersHandler(logger *common.Logger, catalog *tiers.Catalog) *TiersHandler {
	return &TiersHandler{logger: logger, catalog: catalog}
}

// ServeHTTP handles GET /api/tiers.
func (h *TiersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	list := h.catalog.List(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"source": h.catalog.State(),
		"tiers":  list,
	})
}
