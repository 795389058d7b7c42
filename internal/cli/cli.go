package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pangraph/pkg/buildinfo"
	"github.com/matzehuels/pangraph/pkg/cache"
	"github.com/matzehuels/pangraph/pkg/condition"
	"github.com/matzehuels/pangraph/pkg/config"
	"github.com/matzehuels/pangraph/pkg/dag/transform"
	"github.com/matzehuels/pangraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pangraph"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config
	Status io.Writer // Spinners and other transient output
}

// New creates a new CLI instance with a default logger and default config.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		Status: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// LoadConfig reads the user config file into c.Config.
func (c *CLI) LoadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pangraph",
		Short: "Pangraph lays out and explores genome assembly graphs",
		Long: `Pangraph reads genome assembly graphs in GFA format, lays them out left to
right, and lets you explore windows of the graph around a center segment,
colored by which genomes pass through each segment.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.windowCommand())
	root.AddCommand(c.segmentCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if !c.Config.Cache.Shared {
		return cache.NewFileCache("")
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the shared cache directory using XDG standard (~/.cache/pangraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Load Flags
// =============================================================================

// loadFlags are the flags shared by every command that opens a graph.
type loadFlags struct {
	noCache   bool
	refresh   bool
	noGenomes bool
	desktop   bool
	step      float64
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "neither read nor write the graph cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "reparse the source even if a cache exists")
	cmd.Flags().BoolVar(&f.noGenomes, "no-genomes", false, "skip genome membership")
	cmd.Flags().BoolVar(&f.desktop, "desktop", false, "use desktop pixel layout (origin 543,291, step 40)")
	cmd.Flags().Float64Var(&f.step, "step", 0, "horizontal distance between nodes (default from config)")
}

// options converts the flags into pipeline options on top of the config.
func (c *CLI) options(f loadFlags) pipeline.Options {
	layout := c.Config.LayoutOptions()
	if f.desktop {
		layout = transform.DesktopLayout()
	}
	if f.step > 0 {
		layout.Step = f.step
	}
	return pipeline.Options{
		Refresh:   f.refresh,
		NoGenomes: f.noGenomes,
		Layout:    layout,
		Logger:    c.Logger,
	}
}

// loadGraph loads source behind a spinner.
func (c *CLI) loadGraph(ctx context.Context, source string, f loadFlags) (*pipeline.Result, error) {
	runner, err := c.newRunner(f.noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newLoadSpinner(ctx, c.Status, source)
	spinner.Start()

	opts := c.options(f)
	opts.Progress = spinner.Phase
	result, err := runner.Load(ctx, source, opts)
	if err != nil {
		spinner.StopWithError()
		return nil, err
	}
	spinner.Stop()
	logLoad(c.Logger, result)

	if ctx.Err() != nil {
		_ = result.Close()
		return nil, ctx.Err()
	}
	return result, nil
}

// =============================================================================
// View Flags
// =============================================================================

// viewFlags select a window and its conditions.
type viewFlags struct {
	center     int
	radius     int
	zoom       int
	conditions []string
}

func (c *CLI) registerViewFlags(cmd *cobra.Command, f *viewFlags) {
	f.center = c.Config.View.Center
	f.radius = c.Config.View.Radius
	cmd.Flags().IntVarP(&f.center, "center", "c", f.center, "center node id")
	cmd.Flags().IntVarP(&f.radius, "radius", "r", f.radius, "window radius in hops")
	cmd.Flags().IntVarP(&f.zoom, "zoom", "z", 0, "zoom steps after centering (positive zooms out)")
	cmd.Flags().StringArrayVar(&f.conditions, "condition", nil, `coloring condition, e.g. "count>=3", "count<2!", "name~^TKK" (repeatable)`)
}

// conditionSet builds a condition set over the result's genomes.
func (c *CLI) conditionSet(result *pipeline.Result, exprs []string) (*condition.Set, error) {
	palette, err := c.Config.Palette()
	if err != nil {
		return nil, err
	}
	set := condition.NewSet(result.Genomes, palette...)
	for _, expr := range exprs {
		if _, err := set.AddExpr(expr); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
