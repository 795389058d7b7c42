// Package pipeline loads pangenome graphs for exploration.
//
// A load turns a GFA source file into a laid-out [dag.Graph] together with
// its segment text ([segment.Store]) and genome membership
// ([genome.Index]). By centralizing this logic the CLI, the explorer and the
// HTTP API all load graphs the same way.
//
// # Stages
//
// A load either hits the cache or runs the full pipeline:
//
//  1. Cache: read the companion cache file and segment file, skipping the
//     remaining stages
//  2. Parse: stream the GFA file into a graph, a segment file and a genome
//     index
//  3. Layout: assign x/y coordinates with [transform.AssignPositions]
//  4. Persist: write the graph cache and the genome side file
//
// Loads are all-or-nothing. A failed load returns an error and leaves no
// partially written companion files behind.
//
// # Usage
//
// Load synchronously:
//
//	runner := pipeline.NewRunner(cache, logger)
//	result, err := runner.Load(ctx, "data/test.gfa", pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer result.Close()
//
// Or start a joinable background load:
//
//	loader := pipeline.NewLoader(runner)
//	task, err := loader.Start(ctx, "data/test.gfa", pipeline.Options{})
//	result, err := task.Join()
package pipeline

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pangraph/pkg/cache"
	"github.com/matzehuels/pangraph/pkg/dag"
	"github.com/matzehuels/pangraph/pkg/dag/transform"
	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/segment"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Explorer
// =============================================================================

const (
	// DefaultCenter is the node a new view is centered on.
	DefaultCenter = 0

	// DefaultRadius is the hop radius of a new view.
	DefaultRadius = 200
)

// =============================================================================
// Options - Load Configuration
// =============================================================================

// Options contains all configuration for one load.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Refresh ignores an existing cache and reparses the source.
	Refresh bool `json:"refresh,omitempty"`

	// NoGenomes skips reading and writing the genome side file.
	NoGenomes bool `json:"no_genomes,omitempty"`

	// Layout configures coordinate assignment. A zero Step selects the
	// default step.
	Layout transform.Options `json:"-"`

	// Logger receives progress messages. Nil uses the runner's logger.
	Logger *log.Logger `json:"-"`

	// Progress, if set, is called as the load enters each phase.
	Progress func(Phase) `json:"-"`
}

func (o Options) report(p Phase) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// Phase is a stage of a load.
type Phase int

// Load phases in the order a fresh load passes them. A cached load only
// enters PhaseCache.
const (
	PhaseCache   Phase = iota // Reading the companion files
	PhaseParse                // Parsing the GFA source
	PhaseLayout               // Assigning coordinates
	PhasePersist              // Writing the companion files
)

func (p Phase) String() string {
	switch p {
	case PhaseCache:
		return "cache"
	case PhaseParse:
		return "parse"
	case PhaseLayout:
		return "layout"
	case PhasePersist:
		return "persist"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ValidateAndSetDefaults fills unset fields.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Layout.Step == 0 {
		o.Layout.Step = transform.DefaultOptions().Step
	}
	if o.Layout.Step < 0 {
		return fmt.Errorf("layout step must be positive, got %g", o.Layout.Step)
	}
	return nil
}

// Result contains the outputs of a load.
type Result struct {
	// Source is the GFA path the result was loaded for.
	Source string

	// Graph is the laid-out graph.
	Graph *dag.Graph

	// Segments serves the sequence text of every node.
	Segments *segment.Store

	// Genomes holds genome membership. It is empty when the source lists
	// no genomes or Options.NoGenomes was set.
	Genomes *genome.Index

	// Files lists the companion files backing this result.
	Files cache.Companion

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the cache was used.
	CacheInfo CacheInfo
}

// Close releases the segment file.
func (r *Result) Close() error {
	if r == nil || r.Segments == nil {
		return nil
	}
	return r.Segments.Close()
}

// Stats contains load statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	GenomeCount int
	Lines       int // GFA lines read, zero on a cache hit
	Sources     int // Nodes without parents
	ParseTime   time.Duration
	LayoutTime  time.Duration
	TotalTime   time.Duration
}

// CacheInfo tracks cache use for one load.
type CacheInfo struct {
	GraphHit   bool // Graph came from the cache file
	GenomesHit bool // Genome index came from the side file
	Saved      bool // A new cache file was written
}
