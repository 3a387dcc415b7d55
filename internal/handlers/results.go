package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/history"
	"github.com/bobmcallan/chartscope-portal/internal/paginate"
	"github.com/bobmcallan/chartscope-portal/internal/results"
	"github.com/bobmcallan/chartscope-portal/internal/session"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
)

// Query keys for the page of each paginated list.
const (
	pageSupport    = "support"
	pageResistance = "resistance"
	pageDemand     = "demand"
	pageSupply     = "supply"
)

// ResultsHandler renders analysis payloads.
type ResultsHandler struct {
	logger   *common.Logger
	renderer *Renderer
	sessions *session.Registry
	history  *history.Store
	settings *settings.Store
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(logger *common.Logger, renderer *Renderer, sessions *session.Registry, store *history.Store, prefs *settings.Store) *ResultsHandler {
	return &ResultsHandler{
		logger:   logger,
		renderer: renderer,
		sessions: sessions,
		history:  store,
		settings: prefs,
	}
}

// PagerNav is the previous/next navigation of one list.
type PagerNav struct {
	Page  int
	Total int
	Prev  string
	Next  string
}

func pagerNav[T any](u *url.URL, key string, p *paginate.Pager[T]) PagerNav {
	nav := PagerNav{Page: p.Page(), Total: p.TotalPages()}
	link := func(page int) string {
		q := u.Query()
		q.Set(key, strconv.Itoa(page))
		return u.Path + "?" + q.Encode()
	}
	if p.HasPrev() {
		nav.Prev = link(p.Page() - 1)
	}
	if p.HasNext() {
		nav.Next = link(p.Page() + 1)
	}
	return nav
}

func pagesFromQuery(q url.Values) results.Pages {
	return results.Pages{
		Support:    QueryInt(q, pageSupport),
		Resistance: QueryInt(q, pageResistance),
		Demand:     QueryInt(q, pageDemand),
		Supply:     QueryInt(q, pageSupply),
	}
}

// ServeResults handles GET /results and GET /results/{id}. /results shows the
// session's last successful analysis; /results/{id} re-opens a stored record
// and makes it the session's current result.
func (h *ResultsHandler) ServeResults(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := PathID(r.URL.Path, "/results")
	if !ok {
		http.NotFound(w, r)
		return
	}
	st := h.sessions.FromRequest(w, r)

	var payload *analysis.Result
	symbol, warning := "", ""
	if id == "" {
		if handoff, ok := st.Result(); ok {
			payload, symbol = handoff.Result, handoff.Symbol
		}
		if last := st.Controller.Last(); last.State == submission.StateSucceeded {
			warning = last.Warning
		}
	} else {
		rec, err := h.history.Get(r.Context(), id)
		switch {
		case errors.Is(err, history.ErrNotFound):
			h.renderNoData(w, http.StatusNotFound, "This analysis is not in your history.")
			return
		case err != nil:
			h.logger.Error().Err(err).Str("id", id).Msg("failed to read analysis history")
			h.renderNoData(w, http.StatusInternalServerError, "History could not be read.")
			return
		case !rec.HasResults():
			h.renderNoData(w, http.StatusOK, "Only the summary of this analysis is still stored.")
			return
		}
		payload, err = analysis.Parse(rec.FullResults)
		if err != nil {
			h.logger.Warn().Err(err).Str("id", id).Msg("stored analysis payload is unreadable")
			h.renderNoData(w, http.StatusOK, "The stored results could not be read.")
			return
		}
		symbol = rec.Symbol
		st.SetResult(rec.Symbol, rec.Tier, payload)
	}

	prefs := h.settings.Get(r.Context())
	view, err := results.Build(payload, pagesFromQuery(r.URL.Query()), prefs.ColorVision)
	if errors.Is(err, results.ErrNoData) {
		h.renderNoData(w, http.StatusOK, "Run an analysis to see results here.")
		return
	}
	if view.Symbol == analysis.Placeholder && symbol != "" {
		view.Symbol = symbol
	}

	t := view.Technical
	h.renderer.Render(w, http.StatusOK, "results.html", "results", map[string]interface{}{
		"PageTitle": view.Symbol,
		"View":      view,
		"Warning":   warning,
		"Nav": map[string]PagerNav{
			"Support":    pagerNav(r.URL, pageSupport, t.Support),
			"Resistance": pagerNav(r.URL, pageResistance, t.Resistance),
			"Demand":     pagerNav(r.URL, pageDemand, t.Demand),
			"Supply":     pagerNav(r.URL, pageSupply, t.Supply),
		},
	})
}

func (h *ResultsHandler) renderNoData(w http.ResponseWriter, status int, detail string) {
	h.renderer.Render(w, status, "results.html", "results", map[string]interface{}{
		"PageTitle":    "RESULTS",
		"NoData":       true,
		"NoDataTitle":  results.NoDataTitle,
		"NoDataDetail": detail,
	})
}

// ResultResponse is the JSON form of the session's current result.
type ResultResponse struct {
	Symbol string           `json:"symbol"`
	Tier   string           `json:"tier"`
	Result *analysis.Result `json:"result"`
}

// HandleCurrent handles GET /api/results. ?format=markdown returns the
// rendered report instead of the raw payload.
func (h *ResultsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	st := h.sessions.FromRequest(w, r)
	handoff, ok := st.Result()
	if !ok {
		WriteError(w, http.StatusNotFound, results.NoDataTitle)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		view, err := results.Build(handoff.Result, pagesFromQuery(r.URL.Query()), h.settings.Get(r.Context()).ColorVision)
		if err != nil {
			WriteError(w, http.StatusNotFound, results.NoDataTitle)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(results.Markdown(view)))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ResultResponse{Symbol: handoff.Symbol, Tier: handoff.Tier, Result: handoff.Result})
}
