package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/pangraph/pkg/cache"
	"github.com/matzehuels/pangraph/pkg/dag"
	"github.com/matzehuels/pangraph/pkg/dag/transform"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

const testGFA = "H\tVN:Z:1.0\tORI:Z:A;B\n" +
	"S\t1\tACGT\tORI:Z:A;B\n" +
	"S\t2\tT\tORI:Z:A\n" +
	"S\t3\tGG\tORI:Z:A;B\n" +
	"L\t1\t+\t2\t+\t0M\n" +
	"L\t2\t+\t3\t+\t0M\n" +
	"L\t1\t+\t3\t+\t0M\n"

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gfa")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache("")
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestLoadParsesAndCaches(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)

	first, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer first.Close()

	if first.CacheInfo.GraphHit || !first.CacheInfo.Saved {
		t.Errorf("first load cache info = %+v, want miss and saved", first.CacheInfo)
	}
	if first.Stats.NodeCount != 3 || first.Stats.EdgeCount != 3 || first.Stats.GenomeCount != 2 {
		t.Errorf("stats = %+v", first.Stats)
	}
	for id, wantX := range []float64{0, 1, 2} {
		x, _, _ := first.Graph.Position(id)
		if x != wantX {
			t.Errorf("node %d x = %v, want %v", id, x, wantX)
		}
	}
	if seq, err := first.Segments.Get(0); err != nil || seq != "ACGT" {
		t.Errorf("Segments.Get(0) = %q, %v", seq, err)
	}
	if got := first.Genomes.Genomes(1); !slices.Equal(got, []string{"A"}) {
		t.Errorf("genomes of node 1 = %v, want [A]", got)
	}
	for _, path := range first.Files.All() {
		if !exists(path) {
			t.Errorf("companion file %s not written", path)
		}
	}

	second, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	defer second.Close()

	if !second.CacheInfo.GraphHit || !second.CacheInfo.GenomesHit {
		t.Errorf("second load cache info = %+v, want hits", second.CacheInfo)
	}
	if second.Graph.NodeCount() != first.Graph.NodeCount() {
		t.Fatalf("node count changed: %d vs %d", second.Graph.NodeCount(), first.Graph.NodeCount())
	}
	for id := range first.Graph.NodeCount() {
		if !slices.Equal(first.Graph.Outgoing(id), second.Graph.Outgoing(id)) {
			t.Errorf("node %d children %v vs %v", id, first.Graph.Outgoing(id), second.Graph.Outgoing(id))
		}
	}
	if seq, _ := second.Segments.Get(2); seq != "GG" {
		t.Errorf("cached Segments.Get(2) = %q", seq)
	}
	if second.Genomes.Count(0) != 2 {
		t.Errorf("cached genome count of node 0 = %d, want 2", second.Genomes.Count(0))
	}
}

func TestLoadReportsPhases(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)

	tests := []struct {
		name string
		opts Options
		want []Phase
	}{
		{"fresh", Options{}, []Phase{PhaseCache, PhaseParse, PhaseLayout, PhasePersist}},
		{"cached", Options{}, []Phase{PhaseCache}},
		{"refresh", Options{Refresh: true}, []Phase{PhaseParse, PhaseLayout, PhasePersist}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Phase
			tt.opts.Progress = func(p Phase) { got = append(got, p) }
			res, err := r.Load(ctx, source, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			res.Close()
			if !slices.Equal(got, tt.want) {
				t.Errorf("phases = %v, want %v", got, tt.want)
			}
		})
	}
	if s := Phase(9).String(); s != "Phase(9)" {
		t.Errorf("String() = %q", s)
	}
}

func TestLoadRefreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)

	res, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	res.Close()

	res, err = r.Load(ctx, source, Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if res.CacheInfo.GraphHit {
		t.Error("refresh should not hit the cache")
	}
	if res.Stats.Lines != 7 {
		t.Errorf("lines = %d, want 7", res.Stats.Lines)
	}
}

func TestLoadLayoutOptions(t *testing.T) {
	source := writeSource(t, testGFA)
	res, err := NewRunner(nil, nil).Load(context.Background(), source, Options{Layout: transform.DesktopLayout()})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	x, y, _ := res.Graph.Position(2)
	if x != 543+80 || y != 291 {
		t.Errorf("node 2 at (%v, %v), want (623, 291)", x, y)
	}
	if res.CacheInfo.GraphHit {
		t.Error("null cache should never hit")
	}
}

func TestLoadWithoutGenomes(t *testing.T) {
	source := writeSource(t, testGFA)
	r := newTestRunner(t)
	res, err := r.Load(context.Background(), source, Options{NoGenomes: true})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if res.Genomes.NumGenomes() != 0 {
		t.Errorf("genomes = %v, want none", res.Genomes.Names())
	}
	if exists(res.Files.Genomes) {
		t.Error("genome file written despite NoGenomes")
	}
}

// pathGFA names a genome only in the header and lists a path out of id
// order.
const pathGFA = "H\tVN:Z:1.0\tORI:Z:A;B;C\n" +
	"S\t1\tACGT\tORI:Z:A\n" +
	"S\t2\tT\tORI:Z:B\n" +
	"S\t3\tGG\n" +
	"L\t1\t+\t2\t+\t0M\n" +
	"L\t2\t+\t3\t+\t0M\n" +
	"P\tP1\t3+,1+,2+\t*\n"

func TestLoadGenomesSurviveCache(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, pathGFA)
	r := newTestRunner(t)

	first, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	second, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if !second.CacheInfo.GenomesHit {
		t.Fatalf("second load cache info = %+v, want genome hit", second.CacheInfo)
	}

	wantNames := []string{"A", "B", "C", "P1"}
	for _, res := range []*Result{first, second} {
		x := res.Genomes
		if !slices.Equal(x.Names(), wantNames) {
			t.Errorf("Names() = %v, want %v", x.Names(), wantNames)
		}
		if x.NumGenomes() != 4 || res.Stats.GenomeCount != 4 {
			t.Errorf("NumGenomes() = %d, stats %d; want 4", x.NumGenomes(), res.Stats.GenomeCount)
		}
		p, ok := x.Path("P1")
		if !ok || !slices.Equal(p.Nodes, []int{2, 0, 1}) {
			t.Errorf("Path(P1) = %v, want [2 0 1]", p.Nodes)
		}
	}
	fp, sp := first.Genomes.Paths(), second.Genomes.Paths()
	if len(fp) != len(sp) {
		t.Fatalf("Paths() lengths %d vs %d", len(fp), len(sp))
	}
	for i := range fp {
		if fp[i].Name != sp[i].Name || !slices.Equal(fp[i].Nodes, sp[i].Nodes) {
			t.Errorf("path %d: %v vs %v", i, fp[i], sp[i])
		}
	}
}

func TestLoadWithoutGenomesRemovesStaleFile(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)
	res, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	res.Close()

	if err := os.WriteFile(source, []byte("S\t1\tA\nS\t2\tC\nL\t1\t+\t2\t+\t0M\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err = r.Load(ctx, source, Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	res.Close()
	if exists(res.Files.Genomes) {
		t.Error("genome file of the previous source kept")
	}
}

// saveFailingCache refuses to store graphs.
type saveFailingCache struct {
	cache.Cache
}

func (c saveFailingCache) Save(ctx context.Context, source string, g *dag.Graph) error {
	return errors.New("disk full")
}

func TestLoadSaveFailureDropsStaleCache(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)
	res, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	res.Close()

	if err := os.WriteFile(source, []byte("S\t1\tA\nS\t2\tC\nS\t3\tG\nS\t4\tT\nL\t1\t+\t2\t+\t0M\n"), 0644); err != nil {
		t.Fatal(err)
	}
	failing := NewRunner(saveFailingCache{r.Cache}, nil)
	res, err = failing.Load(ctx, source, Options{Refresh: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res.Close()
	if res.CacheInfo.Saved {
		t.Error("Saved = true after a failed save")
	}
	if exists(res.Files.Cache) {
		t.Error("stale graph cache kept next to the new segment file")
	}

	res, err = r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if res.CacheInfo.GraphHit || res.Graph.NodeCount() != 4 {
		t.Errorf("reload hit=%v nodes=%d, want a fresh parse of 4 nodes", res.CacheInfo.GraphHit, res.Graph.NodeCount())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		gfa  string
		code perrors.Code
	}{
		{"bad segment id", "S\tx\tACGT\n", perrors.ErrCodeMalformedInput},
		{"duplicate segment", "S\t1\tA\nS\t1\tC\n", perrors.ErrCodeMalformedInput},
		{"undefined link target", "S\t1\tA\nL\t1\t+\t5\t+\t0M\n", perrors.ErrCodeMalformedInput},
		{"hole in ids", "S\t1\tA\nS\t3\tC\n", perrors.ErrCodeMalformedInput},
		{"cycle", "S\t1\tA\nS\t2\tC\nL\t1\t+\t2\t+\t0M\nL\t2\t+\t1\t+\t0M\n", perrors.ErrCodeCyclicGraph},
		{"huge segment id", "S\t2000000000\tA\n", perrors.ErrCodeMalformedInput},
		{"huge path step", "S\t1\tA\nP\tref\t1+,2000000000+\t*\n", perrors.ErrCodeMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := writeSource(t, tt.gfa)
			_, err := newTestRunner(t).Load(context.Background(), source, Options{})
			if !perrors.Is(err, tt.code) {
				t.Fatalf("Load error = %v, want %s", err, tt.code)
			}
			files := cache.Paths(source)
			for _, path := range append(files.All(), files.Segments+".tmp") {
				if exists(path) {
					t.Errorf("failed load left %s behind", path)
				}
			}
		})
	}
}

func TestLoadMissingSource(t *testing.T) {
	_, err := newTestRunner(t).Load(context.Background(), filepath.Join(t.TempDir(), "nope.gfa"), Options{})
	if !perrors.Is(err, perrors.ErrCodeNotFound) {
		t.Errorf("Load error = %v, want NOT_FOUND", err)
	}
}

func TestLoadRejectsCompanionPath(t *testing.T) {
	_, err := newTestRunner(t).Load(context.Background(), "data/testSegments.txt", Options{})
	if !perrors.Is(err, perrors.ErrCodeInvalidPath) {
		t.Errorf("Load error = %v, want INVALID_PATH", err)
	}
}

func TestLoadCorruptCache(t *testing.T) {
	source := writeSource(t, testGFA)
	if err := os.WriteFile(cache.Paths(source).Cache, []byte("3\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestRunner(t).Load(context.Background(), source, Options{})
	if !perrors.Is(err, perrors.ErrCodeCorruptCache) {
		t.Errorf("Load error = %v, want CORRUPT_CACHE", err)
	}
}

func TestLoadCacheWithoutSegmentsReparses(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)

	res, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	res.Close()
	if err := os.Remove(res.Files.Segments); err != nil {
		t.Fatal(err)
	}

	res, err = r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if res.CacheInfo.GraphHit {
		t.Error("cache without segment file should be a miss")
	}
	if seq, _ := res.Segments.Get(1); seq != "T" {
		t.Errorf("Segments.Get(1) = %q", seq)
	}
}

func TestLoadReadsRawSegmentFile(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, testGFA)
	r := newTestRunner(t)
	res, err := r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	res.Close()

	data, err := os.ReadFile(res.Files.Segments)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ACGT\nT\nGG\n" {
		t.Errorf("segment file = %q, want one raw sequence per line", data)
	}

	if err := os.WriteFile(res.Files.Segments, []byte("AAAA\nC\nTT\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err = r.Load(ctx, source, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if seq, _ := res.Segments.Get(2); !res.CacheInfo.GraphHit || seq != "TT" {
		t.Errorf("cached Get(2) = %q, hit %v", seq, res.CacheInfo.GraphHit)
	}
	res.Close()

	if err := os.WriteFile(res.Files.Segments, []byte("AAAA\nC\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Load(ctx, source, Options{}); !perrors.Is(err, perrors.ErrCodeCorruptCache) {
		t.Errorf("short segment file: Load error = %v, want CORRUPT_CACHE", err)
	}
}

func TestLoaderKeepsPreviousOnFailure(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(newTestRunner(t))
	defer l.Close()

	task, err := l.Start(ctx, writeSource(t, testGFA), Options{})
	if err != nil {
		t.Fatal(err)
	}
	<-task.Done()
	good, err := task.Join()
	if err != nil {
		t.Fatal(err)
	}
	if l.Current() != good {
		t.Fatal("Current should hold the successful result")
	}

	if _, err := l.Load(ctx, writeSource(t, "S\tx\n"), Options{}); err == nil {
		t.Fatal("expected load failure")
	}
	if l.Current() != good {
		t.Error("failed load replaced the current result")
	}
	if l.Running() != nil {
		t.Error("no load should be running")
	}
}

func TestLoaderBusy(t *testing.T) {
	l := NewLoader(newTestRunner(t))
	blocker := &Task{done: make(chan struct{})}
	l.running = blocker

	_, err := l.Start(context.Background(), "test.gfa", Options{})
	if !errors.Is(err, ErrBusy) || !perrors.Is(err, perrors.ErrCodeBusy) {
		t.Errorf("Start error = %v, want ErrBusy", err)
	}

	l.running = nil
	close(blocker.done)
}

func TestLoaderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader(newTestRunner(t)).Start(ctx, "test.gfa", Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Start error = %v, want context.Canceled", err)
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestRenderView(t *testing.T) {
	res, err := NewRunner(nil, nil).Load(context.Background(), writeSource(t, testGFA), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	w, err := res.NewWindow(DefaultCenter, 1)
	if err != nil {
		t.Fatal(err)
	}
	v := res.View(w, nil)
	if len(v.Nodes) != 3 {
		t.Fatalf("view has %d nodes, want 3", len(v.Nodes))
	}

	artifacts, err := Render(v, RenderOptions{Formats: []string{FormatDOT, FormatJSON}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(artifacts[FormatDOT]) == 0 || len(artifacts[FormatJSON]) == 0 {
		t.Errorf("missing artifacts: %v", artifacts)
	}

	if _, err := Render(v, RenderOptions{Formats: []string{"gif"}}); err == nil {
		t.Error("Render should reject unknown formats")
	}
}
