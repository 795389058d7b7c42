package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pangraph/pkg/pipeline"
)

// loadCommand creates the load command, which parses, lays out and caches a
// GFA file without showing anything.
func (c *CLI) loadCommand() *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "load [file.gfa]",
		Short: "Parse, lay out and cache a GFA file",
		Long: `Parse, lay out and cache a GFA file.

The layout is written to a companion cache file next to the source, along with
the segment text and genome membership, so later commands open the graph
without reparsing it:

  data/test.gfa          source
  data/test.txt          graph cache
  data/testSegments.txt  segment text
  data/testGenomes.txt   genome membership

Use --refresh to rebuild the companion files after the source changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoad(cmd.Context(), cmd.OutOrStdout(), args[0], flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func (c *CLI) runLoad(ctx context.Context, w io.Writer, source string, flags loadFlags) error {
	result, err := c.loadGraph(ctx, source, flags)
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}
	defer result.Close()

	out := newPrinter(w)
	printLoadSummary(out, result)
	if result.Genomes.NumGenomes() == 0 && !flags.noGenomes {
		out.warning("No genome names found; genome conditions will match nothing")
	}
	out.newline()
	out.nextStep("Explore", "pangraph explore "+source)
	return nil
}

func printLoadSummary(out printer, result *pipeline.Result) {
	out.success("Loaded %s", filepath.Base(result.Source))
	out.loadStats(result)
	if result.CacheInfo.Saved {
		for _, path := range result.Files.All() {
			if _, err := os.Stat(path); err == nil {
				out.file(path)
			}
		}
	}
}
