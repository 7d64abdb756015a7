package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/jonwraymond/rendercache/auth"
	"github.com/jonwraymond/rendercache/invalidate"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
)

// Route paths.
const (
	PathPrefix     = "/__admin/"
	PathCache      = "/__admin/ssr-cache"
	PathWarm       = "/__admin/ssr-cache/warm"
	PathInvalidate = "/__admin/ssr-cache/invalidate"
)

const maxBodyBytes = 1 << 20

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Authenticator guards every route. Required.
	Authenticator auth.Authenticator

	// Origin overrides the origin used for warm renders. Empty means derive
	// it from the admin request.
	Origin string

	// Logger receives auth rejections.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// NewHandler returns the admin API routed with httprouter.
func NewHandler(svc *Service, cfg HandlerConfig) http.Handler {
	h := &handler{svc: svc, origin: cfg.Origin}
	guard := auth.Middleware(cfg.Authenticator, cfg.Logger)

	r := httprouter.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Handler(http.MethodPost, PathWarm, guard(http.HandlerFunc(h.warm)))
	r.Handler(http.MethodDelete, PathCache, guard(http.HandlerFunc(h.purge)))
	r.Handler(http.MethodGet, PathCache, guard(http.HandlerFunc(h.inspect)))
	r.Handler(http.MethodPost, PathInvalidate, guard(http.HandlerFunc(h.invalidate)))

	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		loggerOrNop(cfg.Logger).Error(req.Context(), "admin handler panic", observe.F("panic", v))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return r
}

func loggerOrNop(l observe.Logger) observe.Logger {
	if l == nil {
		return observe.NopLogger()
	}
	return l
}

type handler struct {
	svc    *Service
	origin string
}

type warmRequest struct {
	Paths []string `json:"paths"`
}

func (h *handler) warm(w http.ResponseWriter, r *http.Request) {
	var req warmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rc := render.NewContext(render.OriginFromRequest(r, h.origin))
	result, err := h.svc.Warm(r.Context(), req.Paths, rc)
	if errors.Is(err, ErrNoPaths) {
		writeError(w, http.StatusBadRequest, `Provide { "paths": ["/foo", "/bar"] }`)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) purge(w http.ResponseWriter, r *http.Request) {
	if path := r.URL.Query().Get("path"); path != "" {
		writeJSON(w, http.StatusOK, h.svc.PurgeOne(r.Context(), path))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.PurgeAll(r.Context()))
}

func (h *handler) inspect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Inspect(r.Context()))
}

func (h *handler) invalidate(w http.ResponseWriter, r *http.Request) {
	var p invalidate.Payload
	if !decodeBody(w, r, &p) {
		return
	}

	ev, err := invalidate.ParseEvent(p)
	if err == nil {
		var result InvalidateResult
		result, err = h.svc.Invalidate(r.Context(), ev)
		if err == nil {
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	var verr *invalidate.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(),
			"kind":  verr.Kind(),
			"field": verr.Field,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeBody reads a JSON body into v, answering 400 on failure. An empty
// body leaves v at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
