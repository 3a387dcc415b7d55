package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	a := s.app

	// UI page routes (HTML templates)
	mux.Handle("/", a.DashboardHandler)
	mux.HandleFunc("/analyze", a.AnalyzeHandler.ServePage)
	mux.HandleFunc("/results", a.ResultsHandler.ServeResults)
	mux.HandleFunc("/results/", a.ResultsHandler.ServeResults)
	mux.HandleFunc("/history", a.HistoryHandler.ServePage)
	mux.HandleFunc("/settings", a.SettingsHandler.HandleSettings)

	// MCP endpoint (JSON-RPC over HTTP)
	if a.MCPHandler != nil {
		mux.Handle("/mcp", a.MCPHandler)
	}

	// Analysis lifecycle
	mux.HandleFunc("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{http.MethodPost: a.AnalyzeHandler.HandleSubmit})
	})
	mux.HandleFunc("/api/analyze/cancel", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{http.MethodPost: a.AnalyzeHandler.HandleCancel})
	})
	mux.HandleFunc("/api/analyze/status", a.AnalyzeHandler.HandleStatus)
	mux.HandleFunc("/api/results", a.ResultsHandler.HandleCurrent)

	// History
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet:    a.HistoryHandler.HandleList,
			http.MethodDelete: a.HistoryHandler.HandleClear,
		})
	})
	mux.HandleFunc("/api/history/", a.HistoryHandler.HandleItem)
	mux.HandleFunc("/api/history.csv", a.HistoryHandler.HandleExport)

	// Settings and catalog
	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet: a.SettingsHandler.HandleGetAPI,
			http.MethodPut: a.SettingsHandler.HandlePutAPI,
		})
	})
	mux.HandleFunc("/api/tiers", a.TiersHandler.ServeHTTP)

	// Service status
	mux.HandleFunc("/api/health", a.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", a.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/server-health", a.ServerHealthHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
