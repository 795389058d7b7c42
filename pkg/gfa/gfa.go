// Package gfa reads pangenome graphs in the Graphical Fragment Assembly
// text format.
//
// # Records
//
// The parser understands four record types; every other line is skipped:
//
//	H  VN:Z:1.0  ORI:Z:TKK_REF;TKK-01-0066        header, genome names
//	S  1  ACGT  ORI:Z:TKK_REF                     segment 1 (node 0)
//	L  1  +  2  +  0M                             link 1 → 2
//	P  TKK_REF  1+,2+,4-  *                       genome path
//
// Segment ids must be positive integers; segment "k" becomes node k-1.
// Link orientations are read but not interpreted: every link becomes the
// edge from→to. Links may appear anywhere in the file.
//
// # Errors
//
// A malformed S, L or P record fails the parse with a MALFORMED_INPUT error
// wrapping an [errors.LineError] that names the line.
package gfa

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// OriginTag is the optional tag listing genome names on H and S records.
const OriginTag = "ORI:Z:"

// Sink receives records in file order.
type Sink interface {
	// Header receives the genome names listed by an H record's ORI tag.
	Header(genomes []string) error
	// Segment receives a segment with its 0-based id. genomes lists the
	// names from the segment's ORI tag, or nil.
	Segment(id int, seq string, genomes []string) error
	// Link receives an edge between two 0-based ids.
	Link(from, to int) error
	// Path receives a named walk through 0-based ids.
	Path(name string, nodes []int) error
}

// Summary counts what [Parse] saw.
type Summary struct {
	Lines    int      // Lines read
	Segments int      // S records
	Links    int      // L records
	Paths    int      // P records
	Skipped  int      // Lines of any other type
	Genomes  []string // Names from the header, in order
}

// Parse reads r line by line and forwards every record to sink. It stops at
// the first malformed record or sink error.
func Parse(r io.Reader, sink Sink) (Summary, error) {
	var sum Summary
	br := bufio.NewReaderSize(r, 1<<16)

	for {
		raw, readErr := br.ReadBytes('\n')
		if len(raw) > 0 {
			sum.Lines++
			if err := parseLine(bytes.TrimRight(raw, "\r\n"), sink, &sum); err != nil {
				le := &perrors.LineError{Line: sum.Lines, Record: recordType(raw), Err: err}
				return sum, perrors.Wrap(perrors.ErrCodeMalformedInput, le, "invalid GFA")
			}
		}
		if readErr == io.EOF {
			return sum, nil
		}
		if readErr != nil {
			return sum, fmt.Errorf("read GFA: %w", readErr)
		}
	}
}

func recordType(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case 'H', 'S', 'L', 'P':
		return string(raw[0])
	}
	return ""
}

func parseLine(line []byte, sink Sink, sum *Summary) error {
	if len(line) < 2 || line[1] != '\t' {
		if len(line) > 0 && line[0] != '#' {
			sum.Skipped++
		}
		return nil
	}
	fields := strings.Split(string(line), "\t")

	switch fields[0] {
	case "H":
		names := originTag(fields[1:])
		sum.Genomes = append(sum.Genomes, names...)
		return sink.Header(names)

	case "S":
		if len(fields) < 3 {
			return fmt.Errorf("segment needs id and sequence, got %d fields", len(fields))
		}
		id, err := segmentID(fields[1])
		if err != nil {
			return err
		}
		sum.Segments++
		return sink.Segment(id, fields[2], originTag(fields[3:]))

	case "L":
		if len(fields) < 5 {
			return fmt.Errorf("link needs from, orientation, to, orientation; got %d fields", len(fields))
		}
		from, err := segmentID(fields[1])
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		to, err := segmentID(fields[3])
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		if !orientation(fields[2]) || !orientation(fields[4]) {
			return fmt.Errorf("orientation must be + or -, got %q and %q", fields[2], fields[4])
		}
		sum.Links++
		return sink.Link(from, to)

	case "P":
		if len(fields) < 3 {
			return fmt.Errorf("path needs name and segment list, got %d fields", len(fields))
		}
		name := fields[1]
		if err := perrors.ValidateGenomeName(name); err != nil {
			return err
		}
		steps := strings.Split(fields[2], ",")
		nodes := make([]int, 0, len(steps))
		for _, step := range steps {
			if step == "" {
				continue
			}
			last := step[len(step)-1]
			if last == '+' || last == '-' {
				step = step[:len(step)-1]
			}
			id, err := segmentID(step)
			if err != nil {
				return fmt.Errorf("path %s: %w", name, err)
			}
			nodes = append(nodes, id)
		}
		sum.Paths++
		return sink.Path(name, nodes)
	}

	sum.Skipped++
	return nil
}

func segmentID(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("segment id %q is not a positive integer", s)
	}
	return n - 1, nil
}

func orientation(s string) bool { return s == "+" || s == "-" }

// originTag returns the genome names of the first ORI:Z: tag among tags.
func originTag(tags []string) []string {
	for _, tag := range tags {
		if rest, ok := strings.CutPrefix(tag, OriginTag); ok {
			var names []string
			for _, name := range strings.Split(rest, ";") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
			return names
		}
	}
	return nil
}
