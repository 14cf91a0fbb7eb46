package http

import (
	"errors"
	"log/slog"
	"net/http"

	"breakerkit/internal/handler/http/respond"
	"breakerkit/pkg/breaker"
)

// ErrBreakerNotFound is returned for administrative operations targeting a
// breaker name that was never created.
var ErrBreakerNotFound = errors.New("breaker not found")

// BreakerHandler exposes circuit breaker introspection and manual controls.
//
// Routes (registered via Register):
//
//	GET  /breakers                      all breaker snapshots
//	GET  /breakers/open                 names of open breakers
//	GET  /breakers/{name}               one breaker snapshot
//	POST /breakers/{name}/reset         reset a breaker to closed, counters cleared
//	POST /breakers/{name}/force-open    open a breaker immediately
//	POST /breakers/{name}/force-close   close a breaker immediately
//	POST /breakers/reset                reset every breaker
//
// This surface is for operators; it carries no authentication and must only
// be bound to an internal listener.
type BreakerHandler struct {
	Registry *breaker.Registry
}

// Register attaches all breaker routes to the given mux.
func (h *BreakerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /breakers", h.list)
	mux.HandleFunc("GET /breakers/open", h.listOpen)
	mux.HandleFunc("GET /breakers/{name}", h.get)
	mux.HandleFunc("POST /breakers/reset", h.resetAll)
	mux.HandleFunc("POST /breakers/{name}/reset", h.reset)
	mux.HandleFunc("POST /breakers/{name}/force-open", h.forceOpen)
	mux.HandleFunc("POST /breakers/{name}/force-close", h.forceClose)
}

func (h *BreakerHandler) list(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Registry.Snapshots())
}

func (h *BreakerHandler) listOpen(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string][]string{"open": h.Registry.ListOpen()})
}

func (h *BreakerHandler) get(w http.ResponseWriter, r *http.Request) {
	b, exists := h.Registry.Get(r.PathValue("name"))
	if !exists {
		respond.Error(w, http.StatusNotFound, ErrBreakerNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, b.Snapshot())
}

func (h *BreakerHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "reset", (*breaker.Breaker).Reset)
}

func (h *BreakerHandler) forceOpen(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "force-open", (*breaker.Breaker).ForceOpen)
}

func (h *BreakerHandler) forceClose(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "force-close", (*breaker.Breaker).ForceClose)
}

// control applies a manual breaker operation and returns the resulting
// snapshot so operators see the effect immediately.
func (h *BreakerHandler) control(w http.ResponseWriter, r *http.Request, action string, apply func(*breaker.Breaker)) {
	name := r.PathValue("name")

	b, exists := h.Registry.Get(name)
	if !exists {
		respond.Error(w, http.StatusNotFound, ErrBreakerNotFound)
		return
	}

	apply(b)

	slog.InfoContext(r.Context(), "manual breaker control applied",
		slog.String("circuit", name),
		slog.String("action", action))

	respond.JSON(w, http.StatusOK, b.Snapshot())
}

func (h *BreakerHandler) resetAll(w http.ResponseWriter, r *http.Request) {
	h.Registry.ResetAll()

	slog.InfoContext(r.Context(), "all breakers reset")

	respond.JSON(w, http.StatusOK, h.Registry.Snapshots())
}
