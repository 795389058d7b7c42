package pipeline

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/pangraph/pkg/condition"
	pio "github.com/matzehuels/pangraph/pkg/io"
	"github.com/matzehuels/pangraph/pkg/render/nodelink"
	"github.com/matzehuels/pangraph/pkg/window"
)

// Format constants for exported views.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// RenderOptions configures [Render].
type RenderOptions struct {
	Formats  []string
	Detailed bool    // Node labels include length and genome count
	Scale    float64 // Inches per layout unit for DOT based formats
}

// NewWindow creates a window over the result's graph centered on center.
func (r *Result) NewWindow(center, radius int, opts ...window.Option) (*window.Window, error) {
	w := window.New(r.Graph, opts...)
	if err := w.SetCenter(center, radius); err != nil {
		return nil, err
	}
	return w, nil
}

// View snapshots w and annotates it with the result's genomes and the
// colors of set, which may be nil.
func (r *Result) View(w *window.Window, set *condition.Set) pio.View {
	return pio.NewView(w.Snapshot(), pio.ViewOptions{
		Graph:      r.Graph,
		Genomes:    r.Genomes,
		Conditions: set,
	})
}

// Render generates output artifacts for a view in the requested formats.
func Render(v pio.View, opts RenderOptions) (map[string][]byte, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}

	dot := nodelink.ToDOT(v, nodelink.Options{Detailed: opts.Detailed, Scale: opts.Scale})
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = nodelink.RenderSVG(dot)
		case FormatPNG:
			data, err = nodelink.RenderPNG(dot, 2.0)
		case FormatPDF:
			data, err = nodelink.RenderPDF(dot)
		case FormatJSON:
			var buf bytes.Buffer
			err = pio.WriteView(v, &buf)
			data = buf.Bytes()
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
