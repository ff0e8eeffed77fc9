package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// Chain combines several hook sets. Each callback calls the non-nil
// callbacks of every set, in argument order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnPassStart = chain(out.OnPassStart, s.OnPassStart)
		out.OnUnit = chain(out.OnUnit, s.OnUnit)
		out.OnYield = chain(out.OnYield, s.OnYield)
		out.OnCommit = chain(out.OnCommit, s.OnCommit)
		out.OnAbort = chain(out.OnAbort, s.OnAbort)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LogHooks returns hooks that write an audit trail of passes to logger.
// Units are logged at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *domain.PassEvent) {
			logger.InfoContext(ctx, "pass_start", "pass", e.Pass, "reason", e.Reason)
		},
		OnUnit: func(ctx context.Context, e *domain.UnitEvent) {
			logger.DebugContext(ctx, "unit", "pass", e.Pass, "kind", e.Kind, "component", e.Component)
		},
		OnYield: func(ctx context.Context, e *domain.PassEvent) {
			logger.DebugContext(ctx, "yield", "pass", e.Pass, "units", e.Units)
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.InfoContext(ctx, "commit",
				"pass", e.Pass,
				"placed", e.Placed,
				"updated", e.Updated,
				"deleted", e.Deleted,
				"host_ops", e.HostOps,
				"slices", e.Slices,
			)
		},
		OnAbort: func(ctx context.Context, e *domain.AbortEvent) {
			logger.WarnContext(ctx, "abort", "pass", e.Pass, "units", e.Units, "error", e.Err)
		},
	}
}
