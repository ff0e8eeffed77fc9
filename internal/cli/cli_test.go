package cli_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterDoc = `
kind: Counter
props:
  label: Clicks
  start: 4
`

func render(t *testing.T, doc string, opts cli.RenderOptions) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, cli.Render(context.Background(), &buf, []byte(doc), cli.NewRegistry(), opts))
	return buf.String()
}

func TestRender_Markup(t *testing.T) {
	out := render(t, counterDoc, cli.RenderOptions{})
	assert.True(t, strings.HasPrefix(out, "<div class=\"counter\">\n  <span>\n    Clicks\n"), out)
	assert.Contains(t, out, "    4\n")
	assert.Contains(t, out, "  <button @click>\n    +\n  </button>\n")
}

func TestRender_Dispatch(t *testing.T) {
	out := render(t, counterDoc, cli.RenderOptions{Dispatch: []string{"button:click", "button:click"}})
	assert.Contains(t, out, "    6\n")
}

func TestRender_Ops(t *testing.T) {
	out := render(t, counterDoc, cli.RenderOptions{
		Format:   cli.FormatOps,
		Dispatch: []string{"button:click"},
	})

	mount, click, ok := strings.Cut(out, ">>> button:click\n")
	require.True(t, ok, out)
	assert.Contains(t, mount, ">>> mount\n")
	assert.Contains(t, mount, "create #1 <div>")
	assert.Contains(t, click, "set #5 nodeValue=5")
	assert.Contains(t, click, "subscribe #6 click")
	assert.NotContains(t, click, "create", "an update pass creates nothing")
}

func TestRender_TimeSliced(t *testing.T) {
	flushed := render(t, counterDoc, cli.RenderOptions{})
	sliced := render(t, counterDoc, cli.RenderOptions{Slice: time.Nanosecond, Dispatch: []string{"button:click"}})
	assert.Equal(t, strings.Replace(flushed, "    4\n", "    5\n", 1), sliced)
}

func TestRender_Formats(t *testing.T) {
	out := render(t, counterDoc, cli.RenderOptions{Format: cli.FormatJSON})
	assert.Contains(t, out, `"kind": "Counter"`)

	out = render(t, counterDoc, cli.RenderOptions{Format: cli.FormatReport})
	assert.Contains(t, out, "# Pass report")
	assert.Contains(t, out, "- **Counter**")

	out = render(t, counterDoc, cli.RenderOptions{Format: cli.FormatGraph})
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `n0[["Counter"]]`)
}

func TestRender_Errors(t *testing.T) {
	ctx := context.Background()
	reg := cli.NewRegistry()

	err := cli.Render(ctx, io.Discard, []byte(counterDoc), reg, cli.RenderOptions{Format: "xml"})
	assert.ErrorContains(t, err, "unknown format")

	err = cli.Render(ctx, io.Discard, []byte(counterDoc), reg, cli.RenderOptions{Dispatch: []string{"button"}})
	assert.ErrorContains(t, err, "tag:event")

	err = cli.Render(ctx, io.Discard, []byte(counterDoc), reg, cli.RenderOptions{Dispatch: []string{"video:play"}})
	assert.ErrorContains(t, err, "no <video>")

	err = cli.Render(ctx, io.Discard, []byte("kind: Widget"), reg, cli.RenderOptions{})
	assert.ErrorContains(t, err, "unknown component")

	err = cli.Render(ctx, io.Discard, []byte("kind: Counter\nprops: {step: fast}"), reg, cli.RenderOptions{})
	assert.ErrorContains(t, err, `prop "step"`)
}

func TestStack_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	stack, err := cli.NewStack(cli.StackOptions{RedisAddr: mr.Addr(), LockTTL: time.Second})
	require.NoError(t, err)
	defer stack.Close()

	h := cli.NewHTTPHandler(stack, nil)
	req := httptest.NewRequest("PUT", "/roots/demo", strings.NewReader("kind: Toggle\n"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.True(t, mr.Exists("arbor:snapshot:demo"), "snapshot persisted to redis")
	assert.False(t, mr.Exists("arbor:lock:demo"), "lock released")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), "arbor_units_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestStack_StoreMiddlewares(t *testing.T) {
	key := strings.Repeat("ab", 32)
	parsed, err := cli.ParseEncryptionKey(key)
	require.NoError(t, err)

	stack, err := cli.NewStack(cli.StackOptions{MaskProps: []string{"^aria-"}, EncryptionKey: parsed})
	require.NoError(t, err)
	defer stack.Close()

	h := cli.NewHTTPHandler(stack, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("PUT", "/roots/secret", strings.NewReader("kind: Toggle\n")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"aria-pressed":false`, "live snapshot is not masked")

	stored, err := stack.Manager.Store().Load(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "Toggle", stored.Kind)
	require.Len(t, stored.Children, 1)
	assert.Equal(t, "***", stored.Children[0].Props["aria-pressed"])

	_, err = cli.NewStack(cli.StackOptions{MaskProps: []string{"("}})
	assert.Error(t, err)
}

func TestStack_DataDir(t *testing.T) {
	dir := t.TempDir()
	stack, err := cli.NewStack(cli.StackOptions{DataDir: dir})
	require.NoError(t, err)

	_, err = stack.Manager.Render(context.Background(), "saved", dsl.H(cli.Toggle, nil))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "saved.json"))
}

func TestParseEncryptionKey(t *testing.T) {
	key, err := cli.ParseEncryptionKey("")
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = cli.ParseEncryptionKey("zz")
	assert.ErrorContains(t, err, "hex")

	_, err = cli.ParseEncryptionKey("abcd")
	assert.ErrorContains(t, err, "32 bytes")
}

func TestNewLogger(t *testing.T) {
	logger, err := cli.NewLogger(cli.LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = cli.NewLogger(cli.LogConfig{Level: "debug", JSON: true})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	_, err = cli.NewLogger(cli.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
