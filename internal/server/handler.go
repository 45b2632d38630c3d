package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/app"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// SnapshotHeader names the response header carrying the id of the
// snapshot a response was served from.
const SnapshotHeader = "X-Registry-Snapshot"

const maxResolveBody = 1 << 20

type handler struct {
	holder  *Holder
	backend Backend
	metrics *Metrics
}

// NewRouter mounts the registry API.
func NewRouter(holder *Holder, backend Backend, metrics *Metrics) chi.Router {
	h := handler{holder: holder, backend: backend, metrics: metrics}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/index", h.index)
		r.Get("/modules", h.modules)
		r.Get("/modules/{name}", h.moduleVersions)
		r.Get("/modules/{name}/{version}", h.module)
		r.Get("/components/{name}/{version}", h.component)
		r.Get("/graph", h.graph)
		r.Post("/resolve", h.resolve)
	})
	return r
}

// observe logs one line per request and records request metrics under
// the matched route pattern.
func (h handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.Ctx(r.Context()).With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		h.metrics.RequestsInFlight.Inc()
		defer h.metrics.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		h.metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// snapshot pins the snapshot for the whole request and stamps its id.
func (h handler) snapshot(w http.ResponseWriter) (*app.Snapshot, bool) {
	snapshot := h.holder.Get()
	if snapshot == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errorDetail{
			Code:    "unavailable",
			Message: "registry is not loaded yet",
		}})
		return nil, false
	}
	w.Header().Set(SnapshotHeader, snapshot.ID)
	return snapshot, true
}

type healthResponse struct {
	Status   string    `json:"status"`
	Snapshot string    `json:"snapshot"`
	LoadedAt time.Time `json:"loadedAt"`
}

func (h handler) health(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Snapshot: snapshot.ID, LoadedAt: snapshot.LoadedAt})
}

func (h handler) index(w http.ResponseWriter, r *http.Request) {
	if snapshot, ok := h.snapshot(w); ok {
		writeJSON(w, http.StatusOK, snapshot.Index)
	}
}

func (h handler) modules(w http.ResponseWriter, r *http.Request) {
	if snapshot, ok := h.snapshot(w); ok {
		modules := snapshot.Index.Modules
		if modules == nil {
			modules = []types.ModuleEntry{}
		}
		writeJSON(w, http.StatusOK, modules)
	}
}

func (h handler) moduleVersions(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	entry, found := snapshot.Index.Module(name)
	if !found {
		writeError(w, notFound("module not found: %s", name))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h handler) module(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w)
	if !ok {
		return
	}
	name, version := pathParam(r, "name"), pathParam(r, "version")
	module, found := snapshot.Set.Module(name, version)
	if !found {
		writeError(w, notFound("module not found: %s@%s", name, version))
		return
	}
	writeJSON(w, http.StatusOK, module)
}

func (h handler) component(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w)
	if !ok {
		return
	}
	name, version := pathParam(r, "name"), pathParam(r, "version")
	component, found := snapshot.Set.Component(name, version)
	if !found {
		writeError(w, notFound("component not found: %s@%s", name, version))
		return
	}
	writeJSON(w, http.StatusOK, component)
}

// graph returns the edge list. ?node= keeps only edges touching that node.
func (h handler) graph(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w)
	if !ok {
		return
	}
	report := snapshot.Graph
	node := r.URL.Query().Get("node")
	if node == "" {
		writeJSON(w, http.StatusOK, report)
		return
	}
	known := false
	for _, id := range report.Nodes {
		if id == node {
			known = true
			break
		}
	}
	if !known {
		writeError(w, notFound("graph node not found: %s", node))
		return
	}
	focused := types.GraphReport{Nodes: []string{node}, Edges: []types.GraphEdge{}}
	for _, edge := range report.Edges {
		if edge.From == node || edge.To == node {
			focused.Edges = append(focused.Edges, edge)
		}
	}
	writeJSON(w, http.StatusOK, focused)
}

func (h handler) resolve(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshot(w)
	if !ok {
		return
	}
	var application types.Application
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResolveBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&application); err != nil {
		writeError(w, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("request body is not a valid application document").
			WithCause(err))
		return
	}
	if application.Kind == "" {
		application.Kind = types.KindApplication
	}
	if application.Kind != types.KindApplication {
		writeError(w, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("document kind is %q, not Application", application.Kind)))
		return
	}
	if len(application.Modules) == 0 {
		writeError(w, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("application selects no modules"))
		return
	}
	result, err := h.backend.ResolveApplication(r.Context(), application, snapshot.Set)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Lock)
}

func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func notFound(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf(format, args...))
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

// errorStatus maps an error code onto an HTTP status and a stable code
// string for the response body.
func errorStatus(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge, "too_large"
	}
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument:
		return http.StatusBadRequest, "invalid_argument"
	case errbuilder.CodeNotFound:
		return http.StatusNotFound, "not_found"
	case errbuilder.CodeAlreadyExists:
		return http.StatusConflict, "already_exists"
	case errbuilder.CodeFailedPrecondition:
		return http.StatusConflict, "failed_precondition"
	case errbuilder.CodePermissionDenied:
		return http.StatusForbidden, "permission_denied"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
