package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/handlers"
)

// MethodRouter maps HTTP methods to the handler serving them on one path.
type MethodRouter map[string]http.HandlerFunc

// allowed lists the routed methods in a stable order for the Allow header.
func (m MethodRouter) allowed() string {
	methods := make([]string, 0, len(m)+1)
	for method, h := range m {
		if h != nil {
			methods = append(methods, method)
		}
	}
	if m[http.MethodGet] != nil && m[http.MethodHead] == nil {
		methods = append(methods, http.MethodHead)
	}
	slices.Sort(methods)
	return strings.Join(methods, ", ")
}

// RouteByMethod dispatches r to the handler for its method. HEAD is served
// by the GET handler. Any other method gets a JSON 405 with an Allow header.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	h := routes[r.Method]
	if h == nil && r.Method == http.MethodHead {
		h = routes[http.MethodGet]
	}
	if h == nil {
		w.Header().Set("Allow", routes.allowed())
		handlers.WriteError(w, http.StatusMethodNotAllowed, r.Method+" is not supported on "+r.URL.Path)
		return
	}
	h(w, r)
}
