package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects light or dark backgrounds automatically.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// Report builds a markdown summary of a committed pass and the tree it left.
// Either argument may be nil.
func Report(ev *domain.CommitEvent, snap *domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("# Pass report\n\n")

	if ev != nil {
		sb.WriteString("| pass | units | placed | updated | deleted | host ops | slices | duration |\n")
		sb.WriteString("|---|---|---|---|---|---|---|---|\n")
		sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %d | %d | %s |\n\n",
			ev.Pass, ev.Units, ev.Placed, ev.Updated, ev.Deleted, ev.HostOps, ev.Slices, ev.Duration))
		if ev.Restarted > 0 {
			sb.WriteString(fmt.Sprintf("> restarted %d time(s) before settling\n\n", ev.Restarted))
		}
	}

	if snap == nil {
		sb.WriteString("_nothing mounted_\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("## Tree (%d nodes, %d host)\n\n", snap.Count(), snap.HostCount()))
	snap.Walk(func(node *domain.Snapshot, depth int) bool {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString("- ")
		switch {
		case node.Kind == domain.TextTag:
			sb.WriteString(fmt.Sprintf("%q", node.Text))
		case node.Component:
			sb.WriteString(fmt.Sprintf("**%s**", node.Kind))
		default:
			sb.WriteString(fmt.Sprintf("`%s`", node.Kind))
		}
		if len(node.Events) > 0 {
			sb.WriteString(" on " + strings.Join(node.Events, ", "))
		}
		if node.Effect != "" && node.Effect != domain.EffectNone.String() {
			sb.WriteString(fmt.Sprintf(" _(%s)_", node.Effect))
		}
		sb.WriteString("\n")
		return true
	})
	return sb.String()
}
