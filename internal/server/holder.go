package server

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/app"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// Backend is the slice of app.Service the server depends on.
type Backend interface {
	LoadSnapshot(ctx context.Context, req app.SnapshotRequest) (*app.Snapshot, error)
	ResolveApplication(ctx context.Context, application types.Application, set types.DocumentSet) (app.ResolveResult, error)
	WatchSource(ctx context.Context, opts app.SourceOptions, onChange func(context.Context)) error
}

// Holder keeps the current registry snapshot. Readers never block; a
// failed reload keeps serving the previous snapshot.
type Holder struct {
	backend Backend
	request app.SnapshotRequest
	metrics *Metrics
	current atomic.Pointer[app.Snapshot]
}

func NewHolder(backend Backend, request app.SnapshotRequest, metrics *Metrics) *Holder {
	return &Holder{backend: backend, request: request, metrics: metrics}
}

// Get returns the current snapshot, or nil before the first load.
func (h *Holder) Get() *app.Snapshot {
	return h.current.Load()
}

// Reload loads a fresh snapshot and swaps it in.
func (h *Holder) Reload(ctx context.Context) error {
	snapshot, err := h.backend.LoadSnapshot(ctx, h.request)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ReloadErrors.Inc()
		}
		if previous := h.Get(); previous != nil {
			log.Ctx(ctx).Error().Err(err).Str("snapshot", previous.ID).Msg("registry reload failed, keeping previous snapshot")
		}
		return err
	}
	h.current.Store(snapshot)
	if h.metrics != nil {
		h.metrics.Reloads.Inc()
		h.metrics.LastReload.Set(float64(snapshot.LoadedAt.Unix()))
		h.metrics.Modules.Set(float64(snapshot.Index.Summary.Modules))
		h.metrics.ModuleVersions.Set(float64(snapshot.Index.Summary.ModuleVersions))
		h.metrics.Components.Set(float64(len(snapshot.Set.Components)))
		h.metrics.ValidationIssues.WithLabelValues(string(types.SeverityError)).Set(float64(snapshot.Report.Errors()))
		h.metrics.ValidationIssues.WithLabelValues(string(types.SeverityWarning)).Set(float64(snapshot.Report.Warnings()))
	}
	return nil
}

// Watch reloads after every settled change under the source root until
// ctx is done.
func (h *Holder) Watch(ctx context.Context) error {
	return h.backend.WatchSource(ctx, h.request.Source, func(ctx context.Context) {
		_ = h.Reload(ctx)
	})
}
