package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pangraph/pkg/pipeline"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	output   string   // output file (single format) or base path
	formats  []string // dot, svg, png, pdf, json
	detailed bool     // label nodes with length and genome count
	scale    float64  // inches per layout unit
}

// exportCommand creates the export command for writing a window to files.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		flags      loadFlags
		view       viewFlags
		opts       exportOpts
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "export [file.gfa]",
		Short: "Render a window to files",
		Long: `Render a window to DOT, SVG, PNG, PDF or JSON.

With one format, --output names the file. With several, --output is a base
path and each format gets its own extension. Without --output, files are
named after the source: data/test.gfa → data/test.svg.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runExport(cmd.Context(), cmd.OutOrStdout(), args[0], flags, view, opts)
		},
	}
	flags.register(cmd)
	c.registerViewFlags(cmd, &view)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png, pdf, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with length and genome count")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "inches per layout unit (default fits the window)")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, out io.Writer, source string, flags loadFlags, view viewFlags, opts exportOpts) error {
	logger := loggerFromContext(ctx)

	result, err := c.loadGraph(ctx, source, flags)
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}
	defer result.Close()

	w, set, err := c.openWindow(result, view)
	if err != nil {
		return err
	}
	v := result.View(w, set)
	logger.Infof("Window: %d nodes, %d edges", len(v.Nodes), len(v.Edges))

	artifacts, err := pipeline.Render(v, pipeline.RenderOptions{
		Formats:  opts.formats,
		Detailed: opts.detailed,
		Scale:    opts.scale,
	})
	if err != nil {
		return err
	}

	paths := outputPaths(opts.output, source, opts.formats)
	for _, format := range slices.Sorted(maps.Keys(artifacts)) {
		path := paths[format]
		if err := writeArtifact(path, artifacts[format]); err != nil {
			return err
		}
		logger.Infof("Generated %s", path)
		newPrinter(out).file(path)
	}
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPaths maps each format to its file. A single format with an
// explicit output is written to exactly that path.
func outputPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
