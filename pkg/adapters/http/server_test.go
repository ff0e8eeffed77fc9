package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var counter = dsl.Func("Counter", func(h domain.Hooks, props domain.Props) *domain.Element {
	start, _ := props["start"].(int)
	n, set := dsl.UseState(h, start)
	return dsl.El("button").
		On("click", func(any) { set(func(v int) int { return v + 1 }) }).
		Child(n).
		Ptr()
})

func newTestHandler(t *testing.T, opts ...Option) (http.Handler, *session.Manager) {
	t.Helper()
	reg := registry.NewRegistry()
	reg.Register(counter)
	reg.RegisterSchema("Counter", schema.Schema{"start": schema.Int()})
	manager := session.NewManager(arbor.NewSessionFactory())
	return NewHandler(manager, reg, opts...), manager
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) *domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap), w.Body.String())
	return &snap
}

func TestServer_HealthAndInfo(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"components":["Counter"]`)
	assert.Contains(t, w.Body.String(), `"schemas":{"Counter":{"start":"int"}}`)
	assert.Contains(t, w.Body.String(), arbor.Version)
}

func TestServer_RootLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "PUT", "/roots/demo", "kind: Counter\nprops: {start: 2}\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	assert.Equal(t, "Counter", snap.Kind)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "2", snap.Children[0].Children[0].Text)

	w = do(t, h, "GET", "/roots", "")
	assert.JSONEq(t, `["demo"]`, w.Body.String())

	w = do(t, h, "GET", "/roots/demo/markup", "")
	assert.Equal(t, "<button @click>\n  2\n</button>\n", w.Body.String())

	w = do(t, h, "POST", "/roots/demo/dispatch", `{"node":1,"event":"click"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "3", decodeSnapshot(t, w).Children[0].Children[0].Text)

	w = do(t, h, "GET", "/roots/demo", "")
	assert.Equal(t, "3", decodeSnapshot(t, w).Children[0].Children[0].Text)

	w = do(t, h, "GET", "/roots/demo/graph?effects=true", "")
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), `n0[["Counter"]]`)

	w = do(t, h, "DELETE", "/roots/demo", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/roots/demo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_BadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "PUT", "/roots/x", "kind: Missing\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown component")

	w = do(t, h, "PUT", "/roots/x", "kind: Counter\nprops: {start: many}\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `prop "start"`)

	w = do(t, h, "PUT", "/roots/x", "kind: [unclosed")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/roots/x/dispatch", `{"node":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/roots/ghost/dispatch", `{"node":1,"event":"click"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/roots/ghost/markup", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	manager := session.NewManager(arbor.NewSessionFactory(arbor.WithMetrics(metrics)))
	h := NewHandler(manager, registry.NewRegistry(), WithMetrics(reg))

	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/roots/m", "kind: box\n").Code)

	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `arbor_passes_total{outcome="committed"} 1`)
}

func TestSubscribeEvents_Root(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register(counter)
	h := NewHandler(session.NewManager(arbor.NewSessionFactory()), reg)

	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/roots/live", "kind: Counter\n").Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/roots/live/events", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(wSub, reqSub)
	}()

	// Wait for the subscription to register, then trigger a pass.
	time.Sleep(100 * time.Millisecond)
	wNav := httptest.NewRecorder()
	h.ServeHTTP(wNav, httptest.NewRequest("POST", "/roots/live/dispatch", bytes.NewReader([]byte(`{"node":1,"event":"click"}`))))
	require.Equal(t, http.StatusOK, wNav.Code, wNav.Body.String())

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"text":"1"`)
}
