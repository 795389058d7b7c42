package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/pipeline"
)

// infoCommand creates the info command for graph and node summaries.
func (c *CLI) infoCommand() *cobra.Command {
	var (
		flags loadFlags
		node  int
	)

	cmd := &cobra.Command{
		Use:   "info [file.gfa]",
		Short: "Summarize a graph or describe one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.loadGraph(cmd.Context(), args[0], flags)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			defer result.Close()
			if cmd.Flags().Changed("node") {
				return printNodeInfo(cmd.OutOrStdout(), result, node)
			}
			printGraphInfo(cmd.OutOrStdout(), result)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&node, "node", "n", 0, "describe this node instead of the graph")

	return cmd
}

func printGraphInfo(w io.Writer, result *pipeline.Result) {
	g := result.Graph
	out := newPrinter(w)
	out.info("%s", StyleTitle.Render(result.Source))
	out.keyValue("Segments", strconv.Itoa(g.NodeCount()))
	out.keyValue("Links", strconv.Itoa(g.EdgeCount()))
	out.keyValue("Sources", strconv.Itoa(len(g.Sources())))
	out.keyValue("Sinks", strconv.Itoa(len(g.Sinks())))
	out.keyValue("Genomes", strconv.Itoa(result.Genomes.NumGenomes()))
	if names := result.Genomes.Names(); len(names) > 0 {
		out.keyValue("", strings.Join(names, ", "))
	}
	if n := g.NodeCount(); n > 0 {
		first, _ := g.Node(0)
		var lo, hi float64 = first.X, first.X
		for _, nd := range g.Nodes() {
			lo, hi = min(lo, nd.X), max(hi, nd.X)
		}
		out.keyValue("Width", fmt.Sprintf("%g", hi-lo))
	}
	out.keyValue("Cache", cacheState(result))
}

func printNodeInfo(w io.Writer, result *pipeline.Result, id int) error {
	g := result.Graph
	if err := perrors.ValidateNodeID(id, g.NodeCount()); err != nil {
		return err
	}
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	out := newPrinter(w)
	out.info("%s", StyleTitle.Render(fmt.Sprintf("Node %d", id)))
	out.keyValue("Length", fmt.Sprintf("%d bp", n.Length))
	out.keyValue("Position", fmt.Sprintf("%g, %g", n.X, n.Y))
	out.keyValue("Parents", joinInts(g.Incoming(id)))
	out.keyValue("Children", joinInts(g.Outgoing(id)))
	genomes := result.Genomes.Genomes(id)
	out.keyValue("Genomes", fmt.Sprintf("%d %s", len(genomes), StyleDim.Render(strings.Join(genomes, ", "))))

	seq, err := result.Segments.Get(id)
	if err != nil {
		return err
	}
	if len(seq) > 60 {
		seq = seq[:60] + "..."
	}
	out.keyValue("Sequence", seq)
	return nil
}

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
