package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/pangraph/pkg/cache"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/observability"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/session"
)

const testGFA = "H\tVN:Z:1.0\tORI:Z:A;B\n" +
	"S\t1\tACGT\tORI:Z:A;B\n" +
	"S\t2\tT\tORI:Z:A\n" +
	"S\t3\tGG\tORI:Z:A;B\n" +
	"S\t4\tC\tORI:Z:B\n" +
	"S\t5\tAA\tORI:Z:A;B\n" +
	"S\t6\tTTT\tORI:Z:A;B\n" +
	"L\t1\t+\t2\t+\t0M\n" +
	"L\t2\t+\t3\t+\t0M\n" +
	"L\t3\t+\t4\t+\t0M\n" +
	"L\t4\t+\t5\t+\t0M\n" +
	"L\t5\t+\t6\t+\t0M\n" +
	"L\t3\t+\t5\t+\t0M\n"

type fixture struct {
	srv    *Server
	h      http.Handler
	source string
	store  *session.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	source := filepath.Join(t.TempDir(), "test.gfa")
	if err := os.WriteFile(source, []byte(testGFA), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := pipeline.NewLoader(pipeline.NewRunner(cache.NewNullCache(), nil))
	t.Cleanup(func() { _ = loader.Close() })
	store := session.NewMemoryStore()
	srv := New(loader, store, Config{})
	return &fixture{srv: srv, h: srv.Handler(), source: source, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	rec := f.do(t, "POST", "/api/v1/load", map[string]any{"source": f.source, "wait": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d: %s", rec.Code, rec.Body)
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func viewIDs(v viewResponse) []int {
	ids := make([]int, len(v.View.Nodes))
	for i, n := range v.View.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["status"] != "healthy" || body["loaded"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestNoGraphLoaded(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/v1/graph", "/api/v1/nodes/0"} {
		rec := f.do(t, "GET", path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
		if e := decodeBody[errorResponse](t, rec); e.Code != string(perrors.ErrCodeNotFound) {
			t.Errorf("%s code = %q", path, e.Code)
		}
	}
	if rec := f.do(t, "POST", "/api/v1/views", nil); rec.Code != http.StatusNotFound {
		t.Errorf("create view status = %d, want 404", rec.Code)
	}
}

func TestLoadAndGraph(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	rec := f.do(t, "GET", "/api/v1/status", nil)
	st := decodeBody[statusResponse](t, rec)
	if st.Status != "loaded" || st.Source != f.source || st.Stats == nil || st.Stats.Nodes != 6 || st.Stats.Edges != 6 {
		t.Errorf("status = %+v", st)
	}
	if st.Stats.Genomes != 2 {
		t.Errorf("genomes = %d, want 2", st.Stats.Genomes)
	}

	rec = f.do(t, "GET", "/api/v1/graph", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("graph status = %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	g := decodeBody[struct {
		Nodes []struct{ ID int } `json:"nodes"`
	}](t, rec)
	if len(g.Nodes) != 6 {
		t.Errorf("graph nodes = %d, want 6", len(g.Nodes))
	}

	req := httptest.NewRequest("GET", "/api/v1/graph", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", rec.Code)
	}
}

func TestLoadAsync(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "POST", "/api/v1/load", map[string]any{"source": f.source})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if task := f.srv.loader.Running(); task != nil {
		if _, err := task.Join(); err != nil {
			t.Fatal(err)
		}
	}
	if f.srv.loader.Current() == nil {
		t.Fatal("no current result after async load")
	}
}

func TestLoadErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		body   any
		status int
		code   perrors.Code
	}{
		{"missing source", map[string]any{"wait": true}, http.StatusBadRequest, perrors.ErrCodeInvalidInput},
		{"unknown field", map[string]any{"source": "x.gfa", "bogus": 1}, http.StatusBadRequest, perrors.ErrCodeInvalidInput},
		{"no such file", map[string]any{"source": filepath.Join(t.TempDir(), "none.gfa"), "wait": true}, http.StatusNotFound, perrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, "POST", "/api/v1/load", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if e := decodeBody[errorResponse](t, rec); e.Code != string(tt.code) {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
		})
	}
}

func TestNodeAndSegment(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	rec := f.do(t, "GET", "/api/v1/nodes/2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	n := decodeBody[nodeResponse](t, rec)
	if n.Length != 2 || !slices.Equal(n.Parents, []int{1}) || !slices.Equal(n.Children, []int{3, 4}) {
		t.Errorf("node = %+v", n)
	}
	if !slices.Equal(n.Genomes, []string{"A", "B"}) {
		t.Errorf("genomes = %v", n.Genomes)
	}

	rec = f.do(t, "GET", "/api/v1/nodes/5/segment", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "TTT" {
		t.Errorf("segment = %d %q", rec.Code, rec.Body)
	}

	for _, path := range []string{"/api/v1/nodes/6", "/api/v1/nodes/-1", "/api/v1/nodes/x"} {
		if rec := f.do(t, "GET", path, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestViewLifecycle(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	rec := f.do(t, "POST", "/api/v1/views", map[string]any{"center": 2, "radius": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	v := decodeBody[viewResponse](t, rec)
	if got := viewIDs(v); !slices.Equal(got, []int{1, 2, 3, 4}) {
		t.Fatalf("visible = %v, want [1 2 3 4]", got)
	}
	base := "/api/v1/views/" + v.ID

	rec = f.do(t, "POST", base+"/zoom", map[string]any{"steps": 1})
	d := decodeBody[deltaResponse](t, rec)
	if got := viewIDs(d.viewResponse); !slices.Equal(got, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("after zoom out = %v", got)
	}
	if len(d.Added) != 2 {
		t.Errorf("added = %v, want 2 nodes", d.Added)
	}

	rec = f.do(t, "POST", base+"/shrink-leaf", nil)
	d = decodeBody[deltaResponse](t, rec)
	if !slices.Equal(d.Removed, []int{5}) {
		t.Errorf("shrink-leaf removed = %v, want [5]", d.Removed)
	}

	rec = f.do(t, "POST", base+"/conditions", map[string]any{"expr": "count<2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add condition = %d: %s", rec.Code, rec.Body)
	}
	d = decodeBody[deltaResponse](t, rec)
	if !slices.Equal(d.Conditions, []string{"count<2"}) {
		t.Errorf("conditions = %v", d.Conditions)
	}
	for _, n := range d.View.Nodes {
		if want := n.ID == 1 || n.ID == 3; (len(n.Colors) == 1) != want {
			t.Errorf("node %d colors = %v", n.ID, n.Colors)
		}
	}

	state, err := f.store.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if state.Lo != 0 || state.Hi != 4 || len(state.Conditions) != 1 {
		t.Errorf("stored state = %+v", state)
	}

	if rec := f.do(t, "POST", base+"/conditions", map[string]any{"expr": "count~~"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad condition status = %d", rec.Code)
	}
	if rec := f.do(t, "DELETE", base+"/conditions/0", nil); rec.Code != http.StatusOK {
		t.Errorf("remove condition status = %d", rec.Code)
	}
	if rec := f.do(t, "DELETE", base+"/conditions/3", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("remove missing condition status = %d", rec.Code)
	}

	if rec := f.do(t, "DELETE", base, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := f.do(t, "GET", base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d", rec.Code)
	}
}

func TestViewClick(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	rec := f.do(t, "POST", "/api/v1/views", map[string]any{"center": 2, "radius": 1, "mode": "info"})
	v := decodeBody[viewResponse](t, rec)
	base := "/api/v1/views/" + v.ID

	rec = f.do(t, "POST", base+"/click", map[string]any{"kind": "node", "node": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("click status = %d: %s", rec.Code, rec.Body)
	}
	c := decodeBody[clickResponse](t, rec)
	if !strings.HasPrefix(c.Message, "node 3: 1 bp, 1 genomes (B)") || !strings.Contains(c.Message, "\nC") {
		t.Errorf("info message = %q", c.Message)
	}
	if len(c.Added) != 0 {
		t.Errorf("info click changed the window: %v", c.Added)
	}

	rec = f.do(t, "POST", base+"/click", map[string]any{"kind": "node", "node": 3, "mode": "center"})
	c = decodeBody[clickResponse](t, rec)
	if got := viewIDs(c.viewResponse); !slices.Equal(got, []int{2, 3, 4, 5}) {
		t.Errorf("after center click = %v, want [2 3 4 5]", got)
	}
	state, _ := f.store.Get(context.Background(), v.ID)
	if state.Center != 3 {
		t.Errorf("stored center = %d, want 3", state.Center)
	}

	if rec := f.do(t, "POST", base+"/click", map[string]any{"kind": "node", "node": 0}); rec.Code != http.StatusBadRequest {
		t.Errorf("hidden node click status = %d, want 400", rec.Code)
	}
	if rec := f.do(t, "POST", base+"/click", map[string]any{"kind": "vertex"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rec.Code)
	}

	rec = f.do(t, "POST", base+"/click", map[string]any{"kind": "edge", "from": 2, "to": 4})
	c = decodeBody[clickResponse](t, rec)
	if c.Message != "edge from node 2 to node 4: 2 shared genomes" {
		t.Errorf("edge message = %q", c.Message)
	}

	rec = f.do(t, "PUT", base+"/mode", map[string]any{"mode": "center"})
	if d := decodeBody[deltaResponse](t, rec); d.Mode != session.ModeCenter {
		t.Errorf("mode = %q", d.Mode)
	}
}

func TestViewCenter(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	v := decodeBody[viewResponse](t, f.do(t, "POST", "/api/v1/views", map[string]any{"center": 0, "radius": 1}))
	base := "/api/v1/views/" + v.ID

	rec := f.do(t, "POST", base+"/center", map[string]any{"node": 4, "radius": 1})
	d := decodeBody[deltaResponse](t, rec)
	if got := viewIDs(d.viewResponse); !slices.Equal(got, []int{3, 4, 5}) {
		t.Errorf("visible = %v, want [3 4 5]", got)
	}
	if !slices.Equal(d.Removed, []int{0, 1, 2}) {
		t.Errorf("removed = %v", d.Removed)
	}
	if rec := f.do(t, "POST", base+"/center", map[string]any{"node": 60}); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range center status = %d", rec.Code)
	}
}

func TestViewRestoredFromStore(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	v := decodeBody[viewResponse](t, f.do(t, "POST", "/api/v1/views", map[string]any{"center": 2, "radius": 1, "conditions": []string{"count>=2"}}))
	base := "/api/v1/views/" + v.ID
	f.do(t, "POST", base+"/grow-leaf", nil)

	// A second instance sharing the store rebuilds the window.
	other := New(f.srv.loader, f.store, Config{})
	rec := httptest.NewRecorder()
	other.Handler().ServeHTTP(rec, httptest.NewRequest("GET", base, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decodeBody[viewResponse](t, rec)
	if ids := viewIDs(got); !slices.Equal(ids, []int{1, 2, 3, 4, 5}) {
		t.Errorf("restored visible = %v, want [1 2 3 4 5]", ids)
	}
	if !slices.Equal(got.Conditions, []string{"count>=2"}) {
		t.Errorf("restored conditions = %v", got.Conditions)
	}
}

func TestViewConcurrentFirstRequests(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	v := decodeBody[viewResponse](t, f.do(t, "POST", "/api/v1/views", map[string]any{"center": 2, "radius": 1}))
	base := "/api/v1/views/" + v.ID

	// A fresh instance has no live window, so both requests restore one.
	other := New(f.srv.loader, f.store, Config{})
	h := other.Handler()
	var wg sync.WaitGroup
	for _, op := range []string{"/grow-root", "/grow-leaf"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("POST", base+op, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("%s status = %d: %s", op, rec.Code, rec.Body)
			}
		}()
	}
	wg.Wait()

	state, err := f.store.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if state.Lo != 0 || state.Hi != 5 {
		t.Errorf("stored range = [%d, %d], want [0, 5]", state.Lo, state.Hi)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", base, nil))
	if ids := viewIDs(decodeBody[viewResponse](t, rec)); !slices.Equal(ids, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("visible = %v, want both grows applied", ids)
	}
}

func TestViewErrors(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	tests := []struct {
		method, path string
		body         any
		status       int
	}{
		{"GET", "/api/v1/views/unknown", nil, http.StatusNotFound},
		{"GET", "/api/v1/views/bad%20id", nil, http.StatusBadRequest},
		{"POST", "/api/v1/views", map[string]any{"radius": -1}, http.StatusBadRequest},
		{"POST", "/api/v1/views", map[string]any{"mode": "paint"}, http.StatusBadRequest},
		{"POST", "/api/v1/views/unknown/zoom", map[string]any{"steps": 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := f.do(t, tt.method, tt.path, tt.body)
		if rec.Code != tt.status {
			t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, rec.Code, tt.status, rec.Body)
		}
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	v := decodeBody[viewResponse](t, f.do(t, "POST", "/api/v1/views", map[string]any{"center": 2, "radius": 1}))
	base := "/api/v1/views/" + v.ID

	rec := f.do(t, "GET", base+"/export?format=dot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "digraph") {
		t.Errorf("body is not DOT: %s", rec.Body)
	}

	if rec := f.do(t, "GET", base+"/export?format=gif", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	observability.Reset()
	defer observability.Reset()

	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetHTTPHooks(hooks)
	observability.SetWindowHooks(hooks)

	f := newFixture(t)
	f.srv.cfg.Registry = reg
	f.h = f.srv.Handler()
	f.load(t)
	f.do(t, "POST", "/api/v1/views", map[string]any{"center": 0, "radius": 1})

	rec := f.do(t, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`pangraph_http_requests_total{method="POST",route="/api/v1/load",status="200"} 1`,
		`pangraph_window_operations_total{op="create"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{perrors.New(perrors.ErrCodeNotFound, "x"), http.StatusNotFound},
		{session.ErrNotFound, http.StatusNotFound},
		{perrors.New(perrors.ErrCodeOutOfRange, "x"), http.StatusBadRequest},
		{perrors.New(perrors.ErrCodeCyclicGraph, "x"), http.StatusUnprocessableEntity},
		{&perrors.LineError{Line: 3, Err: os.ErrInvalid}, http.StatusUnprocessableEntity},
		{pipeline.ErrBusy, http.StatusConflict},
		{perrors.New(perrors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{os.ErrClosed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestResolveSource(t *testing.T) {
	s := New(nil, nil, Config{DataDir: "/data"})
	tests := map[string]string{
		"a.gfa":         "/data/a.gfa",
		"/data/b/c.gfa": "/data/b/c.gfa",
		"../etc/passwd": "/data/etc/passwd",
		"/etc/passwd":   "/data/etc/passwd",
	}
	for in, want := range tests {
		if got := s.resolveSource(in); got != want {
			t.Errorf("resolveSource(%q) = %q, want %q", in, got, want)
		}
	}
}
