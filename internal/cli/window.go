package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pangraph/pkg/condition"
	pio "github.com/matzehuels/pangraph/pkg/io"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/window"
)

// windowCommand creates the window command, which prints the visible nodes
// of one window as a table or as JSON.
func (c *CLI) windowCommand() *cobra.Command {
	var (
		flags  loadFlags
		view   viewFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "window [file.gfa]",
		Short: "Print the nodes of a window",
		Long: `Print the nodes of a window around a center node.

The window covers every node reachable within --radius hops of the center's
ancestor, plus the nodes laid out between them. --zoom widens (positive) or
narrows (negative) the window one rank per step on each side.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.loadGraph(cmd.Context(), args[0], flags)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			defer result.Close()

			w, set, err := c.openWindow(result, view)
			if err != nil {
				return err
			}
			v := result.View(w, set)
			if asJSON {
				return pio.WriteView(v, cmd.OutOrStdout())
			}
			return printWindow(cmd.OutOrStdout(), v, set)
		},
	}
	flags.register(cmd)
	c.registerViewFlags(cmd, &view)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the window as JSON")

	return cmd
}

// openWindow centers a window, applies the zoom and builds the condition set.
func (c *CLI) openWindow(result *pipeline.Result, f viewFlags) (*window.Window, *condition.Set, error) {
	w, err := result.NewWindow(f.center, f.radius)
	if err != nil {
		return nil, nil, err
	}
	if f.zoom != 0 {
		w.Zoom(f.zoom)
	}
	set, err := c.conditionSet(result, f.conditions)
	if err != nil {
		return nil, nil, err
	}
	return w, set, nil
}

func printWindow(out io.Writer, v pio.View, set *condition.Set) error {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		marker := ""
		if n.ID == v.Center {
			marker = "●"
		}
		rows = append(rows, []string{
			marker,
			strconv.Itoa(n.ID),
			strconv.Itoa(n.Length),
			strconv.Itoa(n.Genomes),
			fmt.Sprintf("%g", n.X),
			swatch(n.Color),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Length", "Genomes", "X", "Color").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < len(v.Nodes) && v.Nodes[row].ID == v.Center {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	var b strings.Builder
	b.WriteString(StyleTitle.Render(fmt.Sprintf("Window around %d (radius %d)", v.Center, v.Radius)))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  ranks %d..%d · %d nodes · %d edges · %d long", v.Lo, v.Hi, len(v.Nodes), len(v.Edges), len(v.Chains))))
	b.WriteString("\n")
	if set != nil {
		for i, expr := range set.Exprs() {
			color := set.Conditions()[i].Color().Hex()
			b.WriteString(fmt.Sprintf("  %s %s\n", swatch(color), expr))
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}

// swatch renders a colored block followed by the hex code.
func swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■") + " " + StyleDim.Render(hex)
}
