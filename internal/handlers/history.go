package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/history"
)

// HistoryHandler serves the analysis history.
type HistoryHandler struct {
	logger   *common.Logger
	renderer *Renderer
	store    *history.Store
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(logger *common.Logger, renderer *Renderer, store *history.Store) *HistoryHandler {
	return &HistoryHandler{logger: logger, renderer: renderer, store: store}
}

// RecordSummary is a history record without its payload.
type RecordSummary struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Tier       string    `json:"tier"`
	Cost       float64   `json:"cost"`
	Status     string    `json:"status"`
	Verdict    string    `json:"verdict,omitempty"`
	HasResults bool      `json:"has_results"`
}

// Summarize drops the payload from rec.
func Summarize(rec history.Record) RecordSummary {
	return RecordSummary{
		ID:         rec.ID,
		Symbol:     rec.Symbol,
		Date:       rec.Date,
		Tier:       rec.Tier,
		Cost:       rec.Cost,
		Status:     rec.Status,
		Verdict:    rec.Verdict,
		HasResults: rec.HasResults(),
	}
}

// ServePage handles GET /history.
func (h *HistoryHandler) ServePage(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	list, _ := h.store.List(r.Context())
	h.renderer.Render(w, http.StatusOK, "history.html", "history", map[string]interface{}{
		"PageTitle": "HISTORY",
		"Records":   list,
	})
}

// HandleList handles GET /api/history.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, _ := h.store.List(r.Context())
	stats, _ := h.store.Stats(r.Context())
	summaries := make([]RecordSummary, 0, len(list))
	for _, rec := range list {
		summaries = append(summaries, Summarize(rec))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": summaries,
		"stats": map[string]interface{}{
			"total":   stats.Total,
			"spent":   stats.Spent,
			"average": stats.Average,
		},
	})
}

// HandleClear handles DELETE /api/history.
func (h *HistoryHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear history")
		WriteError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	h.logger.Info().Msg("analysis history cleared")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleItem handles GET /api/history/{id}. The stored payload is included.
func (h *HistoryHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := PathID(r.URL.Path, "/api/history")
	if !ok || id == "" {
		WriteError(w, http.StatusNotFound, "record not found")
		return
	}
	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// HandleExport handles GET /api/history.csv.
func (h *HistoryHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	list, _ := h.store.List(r.Context())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chartscope-history-%s.csv"`, time.Now().UTC().Format("20060102")))
	if err := history.WriteCSV(w, list); err != nil {
		h.logger.Error().Err(err).Msg("failed to export history")
	}
}
