package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// segmentCommand creates the segment command, which prints the sequence
// text of one node.
func (c *CLI) segmentCommand() *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "segment [file.gfa] [node]",
		Short: "Print the sequence of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return perrors.New(perrors.ErrCodeInvalidInput, "node id must be an integer, got %q", args[1])
			}
			result, err := c.loadGraph(cmd.Context(), args[0], flags)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			defer result.Close()

			if err := perrors.ValidateNodeID(id, result.Graph.NodeCount()); err != nil {
				return err
			}
			seq, err := result.Segments.Get(id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), seq)
			return err
		},
	}
	flags.register(cmd)

	return cmd
}
