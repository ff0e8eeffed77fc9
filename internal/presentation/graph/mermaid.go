package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Options controls GenerateMermaid output.
type Options struct {
	// Effects colors nodes by the effect of the pass that produced them.
	Effects bool
	// Props appends property values to host labels.
	Props bool
}

// GenerateMermaid produces a Mermaid flowchart of a committed tree.
// It applies semantic styling:
// - Component: [[Subroutine]]
// - Text: [/Parallelogram/]
// - Host: [Rectangle]
// Nodes are numbered in pre-order, so ids are stable for a given shape.
func GenerateMermaid(snap *domain.Snapshot, opts Options) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if snap == nil {
		return sb.String()
	}

	classes := make(map[string][]string)
	next := 0
	var visit func(node *domain.Snapshot) string
	visit = func(node *domain.Snapshot) string {
		id := fmt.Sprintf("n%d", next)
		next++

		opener, closer := "[", "]"
		switch {
		case node.Component:
			opener, closer = "[[", "]]"
		case node.Kind == domain.TextTag:
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label(node, opts), closer))

		if opts.Effects && node.Effect != "" && node.Effect != domain.EffectNone.String() {
			classes[node.Effect] = append(classes[node.Effect], id)
		}

		for _, child := range node.Children {
			childID := visit(child)
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, childID))
		}
		return id
	}
	visit(snap)

	if opts.Effects && len(classes) > 0 {
		sb.WriteString("\n    %% Effect Styles\n")
		sb.WriteString("    classDef place fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef update fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
		for _, effect := range []string{domain.EffectPlace.String(), domain.EffectUpdate.String()} {
			if ids := classes[effect]; len(ids) > 0 {
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", strings.Join(ids, ","), effect))
			}
		}
	}

	return sb.String()
}

func label(node *domain.Snapshot, opts Options) string {
	text := node.Kind
	if node.Kind == domain.TextTag {
		text = node.Text
	}
	text = escape(text)

	if opts.Props && len(node.Props) > 0 {
		keys := make([]string, 0, len(node.Props))
		for k := range node.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			text += fmt.Sprintf(" <br/> %s=%s", escape(k), escape(fmt.Sprint(node.Props[k])))
		}
	}
	for _, ev := range node.Events {
		text += " <br/> ⚡ " + escape(ev)
	}
	return text
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
