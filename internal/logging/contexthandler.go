package logging

import (
	"context"
	"log/slog"
)

// RunContext reports where the simulation is when a record is logged.
// Implementations are called on every record and must not block.
type RunContext interface {
	RunState() string
	RunID() uint
	CurrentTick() uint64
}

// ContextHandler stamps records with the run state. The run id and tick
// are only added while a run is in progress.
type ContextHandler struct {
	inner slog.Handler
	run   RunContext
}

// NewContextHandler wraps inner with run context stamping.
func NewContextHandler(inner slog.Handler, run RunContext) *ContextHandler {
	return &ContextHandler{inner: inner, run: run}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.run == nil {
		return h.inner.Handle(ctx, r)
	}
	r.AddAttrs(slog.String("state", h.run.RunState()))
	if id := h.run.RunID(); id != 0 {
		r.AddAttrs(slog.Uint64("run", uint64(id)), slog.Uint64("tick", h.run.CurrentTick()))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.wrap(h.inner.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.wrap(h.inner.WithGroup(name))
}

func (h *ContextHandler) wrap(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner, run: h.run}
}
