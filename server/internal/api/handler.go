package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/painless-params/painless/server/internal/store"
)

//go:embed index.html
var indexHTML []byte

// maxBodySize bounds the JSON body of the legacy POST routes.
const maxBodySize = 64 * 1024

// Hub is the realtime channel as seen by the HTTP layer.
type Hub interface {
	http.Handler
	Broadcast()
	Count() int
}

// Handler is the HTTP handler for the page, the legacy routes, the JSON API
// and the metrics endpoint.
type Handler struct {
	store *store.Store
	hub   Hub
	mux   *http.ServeMux
}

// New creates a Handler wired to st and registers all routes. hub may be
// nil, in which case /socket is not served and nothing is broadcast.
func New(st *store.Store, hub Hub) http.Handler {
	h := &Handler{store: st, hub: hub, mux: http.NewServeMux()}

	h.mux.HandleFunc("/", h.index)
	h.mux.HandleFunc("/update", h.update)
	h.mux.HandleFunc("/remove", h.remove)
	h.mux.HandleFunc("/api/v1/parameters", h.listParameters)
	h.mux.HandleFunc("/api/v1/parameters/", h.getParameter) // subtree, extracts {name}
	h.mux.HandleFunc("/metrics", h.metrics)
	if hub != nil {
		h.mux.Handle("/socket", hub)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// index serves the editor page on GET /.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML) //nolint:errcheck
}

// update handles POST /update: overwrite or create one parameter.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	slog.Info("api: updating parameter", "parameter", req.Name, "value", req.Value)
	if err := h.store.Set(req.Name, req.Value); err != nil {
		storeErr(w, err)
		return
	}

	h.broadcast()
	w.WriteHeader(http.StatusOK)
}

// remove handles POST /remove: delete one parameter.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req RemoveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	slog.Info("api: removing parameter", "parameter", req.Name)
	if err := h.store.Remove(req.Name); err != nil {
		storeErr(w, err)
		return
	}

	h.broadcast()
	w.WriteHeader(http.StatusNoContent)
}

// listParameters returns GET /api/v1/parameters: all parameters.
func (h *Handler) listParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	params, err := h.store.List()
	if err != nil {
		storeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, ParametersResponse{Parameters: params, Count: len(params)})
}

// getParameter returns GET /api/v1/parameters/{name}: a single parameter.
func (h *Handler) getParameter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/parameters/")
	if name == "" {
		h.listParameters(w, r)
		return
	}

	p, err := h.store.Get(name)
	if err != nil {
		storeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, p)
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) broadcast() {
	if h.hub != nil {
		h.hub.Broadcast()
	}
}

// decodeBody parses a JSON request body into v. On failure it writes a 400
// response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// storeErr maps a store error to an HTTP status.
func storeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidName):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("api: store operation failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
