package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/chartscope-portal/internal/cache"
	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// healthTTL is how long a backend probe result is reused. Every open page
// polls this endpoint.
const healthTTL = 5 * time.Second

// Pinger checks whether the analysis backend is up.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerHealthHandler reports the analysis backend status.
type ServerHealthHandler struct {
	logger *common.Logger
	pinger Pinger
	status *cache.TTL[bool]
}

// NewServerHealthHandler creates a new server health handler.
func NewServerHealthHandler(logger *common.Logger, pinger Pinger) *ServerHealthHandler {
	return &ServerHealthHandler{logger: logger, pinger: pinger, status: cache.New[bool](healthTTL, 1)}
}

// ServeHTTP handles GET /api/server-health.
func (h *ServerHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if !h.backendUp(r.Context()) {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ServerHealthHandler) backendUp(parent context.Context) bool {
	if h.pinger == nil {
		return false
	}
	if up, ok := h.status.Get("backend"); ok {
		return up
	}

	ctx, cancel := context.WithTimeout(parent, 3*time.Second)
	defer cancel()

	err := h.pinger.Ping(ctx)
	if err != nil && h.logger != nil {
		h.logger.Debug().Err(err).Msg("analysis backend health check failed")
	}
	// A probe abandoned by the caller says nothing about the backend.
	if parent.Err() == nil {
		h.status.Set("backend", err == nil)
	}
	return err == nil
}
