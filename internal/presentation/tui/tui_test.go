package tui_test

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintOps_Plain(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintOps(&buf, termenv.Ascii, []memory.Op{
		{Kind: memory.OpCreate, Node: 1, Tag: "div"},
		{Kind: memory.OpSet, Node: 1, Key: "id", Value: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, "  1 create      create #1 <div>")
	assert.Contains(t, out, "  2 set         set #1 id=x")
	assert.NotContains(t, out, "\x1b[", "ascii profile emits no escapes")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii)
	assert.Contains(t, buf.String(), "|_.__/")
}

func TestReport(t *testing.T) {
	snap := &domain.Snapshot{
		Kind:      "Counter",
		Component: true,
		Children: []*domain.Snapshot{
			{
				Kind:   "button",
				Events: []string{"click"},
				Effect: "update",
				Children: []*domain.Snapshot{
					{Kind: domain.TextTag, Text: "1", Effect: "place"},
				},
			},
		},
	}
	md := tui.Report(&domain.CommitEvent{
		EventBase: domain.EventBase{Pass: 2},
		Units:     4,
		Placed:    1,
		Duration:  time.Millisecond,
		Restarted: 1,
	}, snap)

	assert.Contains(t, md, "| 2 | 4 | 1 | 0 | 0 | 0 | 0 | 1ms |")
	assert.Contains(t, md, "restarted 1 time(s)")
	assert.Contains(t, md, "## Tree (3 nodes, 2 host)")
	assert.Contains(t, md, "- **Counter**\n  - `button` on click _(update)_\n    - \"1\" _(place)_\n")

	assert.Contains(t, tui.Report(nil, nil), "_nothing mounted_")
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer("notty")
	require.NoError(t, err)

	out, err := render("# Pass report")
	require.NoError(t, err)
	assert.Contains(t, out, "Pass report")
}

func TestResolvePretty(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	pretty, err := tui.ResolvePretty(tui.PrettyAuto, f)
	require.NoError(t, err)
	assert.False(t, pretty, "regular files are not terminals")

	pretty, err = tui.ResolvePretty(tui.PrettyAlways, f)
	require.NoError(t, err)
	assert.True(t, pretty)

	_, err = tui.ResolvePretty("sometimes", f)
	assert.Error(t, err)

	assert.Equal(t, termenv.Ascii, tui.Profile(false))
}
