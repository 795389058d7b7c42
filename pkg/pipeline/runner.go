package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/pangraph/pkg/cache"
	"github.com/matzehuels/pangraph/pkg/dag"
	"github.com/matzehuels/pangraph/pkg/dag/transform"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/gfa"
	"github.com/matzehuels/pangraph/pkg/observability"
	"github.com/matzehuels/pangraph/pkg/segment"
)

var tracer = otel.Tracer("github.com/matzehuels/pangraph/pkg/pipeline")

// Runner encapsulates load execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store load results. Multiple goroutines can safely use the same Runner
// for different sources.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
// If logger is nil, log messages are discarded.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Cache: c, Logger: logger}
}

// Load returns the laid-out graph for source, from the cache when possible.
//
// Errors carry codes from package errors: NOT_FOUND when source is missing,
// MALFORMED_INPUT for an invalid GFA file, CORRUPT_CACHE for an unreadable
// cache and CYCLIC_GRAPH when the layout finds a cycle.
func (r *Runner) Load(ctx context.Context, source string, opts Options) (*Result, error) {
	if err := perrors.ValidateSourcePath(source); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)
	logger := opts.Logger.With("source", source)

	ctx, span := tracer.Start(ctx, "pipeline.Load",
		trace.WithAttributes(
			attribute.String("pangraph.source", source),
			attribute.Bool("pangraph.refresh", opts.Refresh),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := r.load(ctx, source, opts, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(perrors.GetCode(err)))
		return nil, err
	}
	result.Stats.TotalTime = time.Since(start)

	span.SetAttributes(
		attribute.Int("pangraph.nodes", result.Stats.NodeCount),
		attribute.Int("pangraph.edges", result.Stats.EdgeCount),
		attribute.Bool("pangraph.cache_hit", result.CacheInfo.GraphHit),
	)
	logger.Info("loaded graph",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"genomes", result.Stats.GenomeCount,
		"cached", result.CacheInfo.GraphHit,
		"duration", result.Stats.TotalTime)
	return result, nil
}

func (r *Runner) load(ctx context.Context, source string, opts Options, logger *log.Logger) (*Result, error) {
	files := cache.Paths(source)

	if !opts.Refresh {
		opts.report(PhaseCache)
		result, hit, err := r.fromCache(ctx, source, files, opts, logger)
		if err != nil {
			return nil, err
		}
		if hit {
			return result, nil
		}
	}
	return r.parse(ctx, source, files, opts, logger)
}

// fromCache restores a result from the companion files. A missing graph
// cache or segment file is a miss.
func (r *Runner) fromCache(ctx context.Context, source string, files cache.Companion, opts Options, logger *log.Logger) (*Result, bool, error) {
	hooks := observability.Cache()

	g, hit, err := r.Cache.Load(ctx, source)
	if err != nil {
		return nil, false, fmt.Errorf("read cache: %w", err)
	}
	if !hit {
		hooks.OnCacheMiss(ctx, "graph")
		logger.Debug("cache miss")
		return nil, false, nil
	}

	store, err := segment.Open(files.Segments)
	if perrors.Is(err, perrors.ErrCodeNotFound) {
		hooks.OnCacheMiss(ctx, "segments")
		logger.Warn("cache without segment file, reparsing", "segments", files.Segments)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if store.Len() != g.NodeCount() {
		_ = store.Close()
		return nil, false, perrors.New(perrors.ErrCodeCorruptCache,
			"segment file holds %d segments, cache holds %d nodes", store.Len(), g.NodeCount())
	}
	hooks.OnCacheHit(ctx, "graph")

	result := &Result{
		Source:    source,
		Graph:     g,
		Segments:  store,
		Genomes:   genome.NewIndex(),
		Files:     files,
		CacheInfo: CacheInfo{GraphHit: true},
	}
	if !opts.NoGenomes {
		idx, found, err := genome.Load(files.Genomes, g.NodeCount())
		if err != nil {
			_ = store.Close()
			return nil, false, fmt.Errorf("read genomes: %w", err)
		}
		result.Genomes = idx
		result.CacheInfo.GenomesHit = found
	}
	r.fillStats(result)
	result.Stats.Sources = len(g.Sources())
	return result, true, nil
}

func (r *Runner) parse(ctx context.Context, source string, files cache.Companion, opts Options, logger *log.Logger) (*Result, error) {
	f, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, perrors.Wrap(perrors.ErrCodeNotFound, err, "source %s", source)
		}
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	w, err := segment.Create(files.Segments)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = w.Abort()
		}
	}()

	var idx *genome.Index
	if !opts.NoGenomes {
		idx = genome.NewIndex()
	}

	// Stage 1: Parse
	opts.report(PhaseParse)
	hooks := observability.Load()
	hooks.OnParseStart(ctx, source)
	parseStart := time.Now()
	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}
	g, sum, err := parseGFA(ctx, f, size, w, idx)
	parseTime := time.Since(parseStart)
	hooks.OnParseComplete(ctx, source, nodeCount(g), parseTime, err)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	logger.Debug("parsed GFA",
		"lines", sum.Lines,
		"segments", sum.Segments,
		"links", sum.Links,
		"paths", sum.Paths,
		"skipped", sum.Skipped,
		"duration", parseTime)

	// Stage 2: Layout
	opts.report(PhaseLayout)
	layoutStart := time.Now()
	stats, err := Layout(ctx, g, opts.Layout)
	layoutTime := time.Since(layoutStart)
	if err != nil {
		return nil, err
	}
	logger.Debug("computed layout", "sources", stats.Sources, "width", stats.Width, "duration", layoutTime)

	store, err := w.Commit()
	committed = true
	if err != nil {
		return nil, err
	}

	result := &Result{
		Source:   source,
		Graph:    g,
		Segments: store,
		Genomes:  idx,
		Files:    files,
	}
	if idx == nil {
		result.Genomes = genome.NewIndex()
	}
	r.fillStats(result)
	result.Stats.Lines = sum.Lines
	result.Stats.Sources = stats.Sources
	result.Stats.ParseTime = parseTime
	result.Stats.LayoutTime = layoutTime

	// Stage 3: Persist. The graph is usable without its cache, so
	// failures here are logged and the load still succeeds.
	opts.report(PhasePersist)
	r.persist(ctx, result, opts, logger)
	return result, nil
}

func parseGFA(ctx context.Context, r io.Reader, size int64, w *segment.Writer, idx *genome.Index) (*dag.Graph, gfa.Summary, error) {
	_, span := tracer.Start(ctx, "pipeline.Parse")
	defer span.End()

	b := newBuilder(w, idx, size)
	sum, err := gfa.Parse(r, b)
	if err != nil {
		span.RecordError(err)
		return nil, sum, err
	}
	g, err := b.finish()
	if err != nil {
		span.RecordError(err)
		return nil, sum, err
	}
	span.SetAttributes(
		attribute.Int("gfa.lines", sum.Lines),
		attribute.Int("gfa.segments", sum.Segments),
		attribute.Int("gfa.links", sum.Links),
	)
	return g, sum, nil
}

// Layout assigns coordinates to g and reports the layout hooks.
func Layout(ctx context.Context, g *dag.Graph, opts transform.Options) (transform.LayoutStats, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Layout",
		trace.WithAttributes(attribute.Int("pangraph.nodes", g.NodeCount())))
	defer span.End()

	hooks := observability.Load()
	hooks.OnLayoutStart(ctx, g.NodeCount())
	start := time.Now()
	stats, err := transform.AssignPositions(g, opts)
	hooks.OnLayoutComplete(ctx, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "layout failed")
		return stats, fmt.Errorf("layout: %w", err)
	}
	return stats, nil
}

func (r *Runner) persist(ctx context.Context, result *Result, opts Options, logger *log.Logger) {
	if err := r.Cache.Save(ctx, result.Source, result.Graph); err != nil {
		logger.Warn("could not write cache", "error", err)
		// The segment file is already replaced; an older cache must not be
		// paired with it on the next load.
		if err := r.Cache.Delete(ctx, result.Source); err != nil {
			logger.Warn("could not remove stale cache", "error", err)
		}
	} else {
		result.CacheInfo.Saved = true
		observability.Cache().OnCacheSet(ctx, "graph", result.Graph.NodeCount())
	}

	if opts.NoGenomes {
		return
	}
	if result.Genomes.NumGenomes() == 0 {
		if err := os.Remove(result.Files.Genomes); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("could not remove stale genome file", "error", err)
		}
		return
	}
	if err := genome.Save(result.Files.Genomes, result.Genomes, result.Graph.NodeCount()); err != nil {
		logger.Warn("could not write genome file", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "genomes", result.Graph.NodeCount())
}

func (r *Runner) fillStats(result *Result) {
	result.Stats.NodeCount = result.Graph.NodeCount()
	result.Stats.EdgeCount = result.Graph.EdgeCount()
	result.Stats.GenomeCount = result.Genomes.NumGenomes()
}

func nodeCount(g *dag.Graph) int {
	if g == nil {
		return 0
	}
	return g.NodeCount()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
