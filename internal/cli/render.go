package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/adapters/idle"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// Output formats of the render command.
const (
	FormatMarkup = "markup"
	FormatOps    = "ops"
	FormatJSON   = "json"
	FormatReport = "report"
	FormatGraph  = "graph"
)

// maxSlices bounds time-sliced rendering so a component that keeps
// scheduling updates cannot hang the CLI.
const maxSlices = 100000

// RenderOptions configures Render.
type RenderOptions struct {
	Format string
	Pretty bool
	// Slice renders with an idle scheduler granting Slice per callback
	// instead of flushing synchronously.
	Slice time.Duration
	// Dispatch lists "tag:event" steps applied after the first render.
	Dispatch []string
	Logger   *slog.Logger
}

// Render decodes doc, renders it into an in-memory host and writes the
// result to w in the requested format.
func Render(ctx context.Context, w io.Writer, doc []byte, reg *registry.Registry, opts RenderOptions) error {
	el, err := dsl.Decode(doc, reg)
	if err != nil {
		return err
	}
	switch opts.Format {
	case "":
		opts.Format = FormatMarkup
	case FormatMarkup, FormatOps, FormatJSON, FormatReport, FormatGraph:
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var lastCommit *domain.CommitEvent
	var sliceErr error
	engineOpts := []arbor.Option{
		arbor.WithLogger(opts.Logger),
		arbor.WithLifecycleHooks(domain.LifecycleHooks{
			OnCommit: func(_ context.Context, e *domain.CommitEvent) { lastCommit = e },
		}),
	}

	var sched *idle.Manual
	if opts.Slice > 0 {
		sched = idle.NewManual()
		engineOpts = append(engineOpts,
			arbor.WithScheduler(sched),
			arbor.WithErrorHandler(func(err error) { sliceErr = err }),
		)
	}

	host := memory.NewHost()
	eng, err := arbor.New(host, engineOpts...)
	if err != nil {
		return err
	}

	drive := func() error {
		if sched == nil {
			return eng.Flush(ctx)
		}
		sched.Drain(func() ports.Deadline { return idle.Timer(opts.Slice) }, maxSlices)
		if sliceErr != nil {
			return sliceErr
		}
		if !eng.Idle() {
			return fmt.Errorf("render did not settle after %d slices", maxSlices)
		}
		return nil
	}

	profile := tui.Profile(opts.Pretty)
	step := func(label string) {
		if opts.Format != FormatOps {
			return
		}
		printSystemMessage(w, "%s", label)
		tui.PrintOps(w, profile, host.ResetOps())
	}

	eng.Mount(ctx, el)
	if err := drive(); err != nil {
		return err
	}
	step("mount")

	for _, d := range opts.Dispatch {
		tag, event, ok := strings.Cut(d, ":")
		if !ok || tag == "" || event == "" {
			return fmt.Errorf("invalid dispatch step %q (want tag:event)", d)
		}
		node := host.FindTag(tag)
		if node == nil {
			return fmt.Errorf("dispatch %q: no <%s> in the tree", d, tag)
		}
		if err := host.Dispatch(node.ID, event, nil); err != nil {
			return fmt.Errorf("dispatch %q: %w", d, err)
		}
		if err := drive(); err != nil {
			return err
		}
		step(d)
	}

	switch opts.Format {
	case FormatOps:
		return nil
	case FormatMarkup:
		_, err := io.WriteString(w, host.Markup())
		return err
	}

	snap, err := eng.Snapshot()
	if err != nil {
		return err
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatGraph:
		_, err := io.WriteString(w, graph.GenerateMermaid(snap, graph.Options{Effects: true, Props: true}))
		return err
	case FormatReport:
		md := tui.Report(lastCommit, snap)
		if !opts.Pretty {
			_, err := io.WriteString(w, md)
			return err
		}
		render, err := tui.NewRenderer("")
		if err != nil {
			return err
		}
		out, err := render(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return nil
}
