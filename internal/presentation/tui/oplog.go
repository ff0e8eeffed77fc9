package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/muesli/termenv"
)

var opColors = map[memory.OpKind]string{
	memory.OpCreate:      "#4ade80",
	memory.OpAttach:      "#22d3ee",
	memory.OpDetach:      "#fb7185",
	memory.OpSet:         "#facc15",
	memory.OpRemove:      "#f97316",
	memory.OpSubscribe:   "#a78bfa",
	memory.OpUnsubscribe: "#c084fc",
}

// PrintOps writes one line per host mutation, colored by kind.
// With termenv.Ascii the output is plain text.
func PrintOps(w io.Writer, p termenv.Profile, ops []memory.Op) {
	for i, op := range ops {
		tag := p.String(fmt.Sprintf("%-11s", op.Kind)).Foreground(p.Color(opColors[op.Kind]))
		fmt.Fprintf(w, "%3d %s %s\n", i+1, tag, op)
	}
}
