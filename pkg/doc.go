// Package pkg provides the core libraries for Pangraph pangenome graph
// exploration.
//
// # Overview
//
// Pangraph reads genome assembly graphs in GFA format, lays every segment
// out on one row in topological order, and shows windows of that layout
// around a center segment. Segments are colored by conditions over the
// genomes that pass through them.
//
// # Architecture
//
// The typical data flow:
//
//	GFA file
//	    ↓
//	[gfa] package (stream records)
//	    ↓
//	[pipeline] package (build graph, segment file, genome index)
//	    ↓
//	[dag/transform] package (Kahn layout)
//	    ↓
//	[cache] package (companion cache file)
//	    ↓
//	[window] package (visible range, zoom, long edges)
//	    ↓
//	[condition] + [io] + [render/nodelink] (colors, JSON, DOT/SVG/PNG/PDF)
//
// # Quick Start
//
// Load a graph and print a window:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil)
//	result, _ := runner.Load(ctx, "data/test.gfa", pipeline.Options{})
//	defer result.Close()
//
//	w, _ := result.NewWindow(0, 200)
//	set := condition.NewSet(result.Genomes)
//	set.AddExpr("count>=3")
//	_ = pio.WriteView(result.View(w, set), os.Stdout)
//
// # Main Packages
//
// [dag] - Directed graph of sequence segments keyed by dense integer ids.
//
// [dag/transform] - Layout: topological ranks and x/y coordinates.
//
// [gfa] - Streaming GFA reader for header, segment, link and path records.
//
// [segment] - Segment text file with an in-memory offset index.
//
// [genome] - Genome membership per node, path records and edge widths.
//
// [cache] - Companion cache file codec and file/null caches.
//
// [window] - Windowed exploration: centering, zoom steps and click targets.
//
// [condition] - Coloring conditions over genome membership.
//
// [pipeline] - Load orchestration shared by the CLI, explorer and API.
//
// [server] - HTTP API over a loader and a view store.
//
// [session] - View state stores: memory, file and Redis.
//
// [config] - TOML user configuration.
//
// [observability] - Metrics hooks with Prometheus and OpenTelemetry
// implementations.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/window/...             # Specific package
//	go test -run Example                 # Examples only
//	go test -tags integration ./pkg/...  # Include Redis tests
//
// [dag]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/dag/transform
// [gfa]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/gfa
// [segment]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/segment
// [genome]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/genome
// [cache]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/cache
// [window]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/window
// [condition]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/condition
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/server
// [session]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/observability
//
// [io]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/pangraph/pkg/render/nodelink
package pkg
