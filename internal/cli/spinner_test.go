package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pangraph/pkg/pipeline"
)

func TestPhaseMessage(t *testing.T) {
	tests := []struct {
		phase pipeline.Phase
		want  string
	}{
		{pipeline.PhaseCache, "Opening test.gfa..."},
		{pipeline.PhaseParse, "Parsing test.gfa..."},
		{pipeline.PhaseLayout, "Laying out test.gfa..."},
		{pipeline.PhasePersist, "Writing companion files..."},
		{pipeline.Phase(42), "Loading test.gfa..."},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			if got := phaseMessage(tt.phase, "test.gfa"); got != tt.want {
				t.Errorf("phaseMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadSpinnerFollowsPhases(t *testing.T) {
	var buf bytes.Buffer
	s := newLoadSpinner(context.Background(), &buf, "data/test.gfa")
	if got := s.Message(); got != "Opening test.gfa..." {
		t.Errorf("initial message = %q", got)
	}
	s.Start()
	s.Phase(pipeline.PhaseLayout)
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if got := s.Message(); got != "Laying out test.gfa..." {
		t.Errorf("message = %q", got)
	}
	if !strings.Contains(buf.String(), "Laying out test.gfa...") {
		t.Errorf("output lacks the layout phase: %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\r") {
		t.Error("line not cleared after Stop")
	}
	if s.Cancelled() {
		t.Error("stopped spinner reports cancellation")
	}
}

func TestLoadSpinnerDrivenByLoad(t *testing.T) {
	source := isolate(t)
	var buf bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Status = &buf
	result, err := c.loadGraph(context.Background(), source, loadFlags{noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	defer result.Close()
	// The first frame is drawn at Start, before any phase is reported.
	if !strings.Contains(buf.String(), "Opening test.gfa...") {
		t.Errorf("spinner output = %q", buf.String())
	}
}

func TestLoadSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newLoadSpinner(ctx, &bytes.Buffer{}, "test.gfa")
	s.Start()
	cancel()
	time.Sleep(50 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestLoadSpinnerStop(t *testing.T) {
	// Stop without Start must not block.
	newLoadSpinner(context.Background(), &bytes.Buffer{}, "test.gfa").Stop()

	s := newLoadSpinner(context.Background(), &bytes.Buffer{}, "test.gfa")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestLoadSpinnerStopWithError(t *testing.T) {
	var buf bytes.Buffer
	s := newLoadSpinner(context.Background(), &buf, "test.gfa")
	s.Start()
	s.Phase(pipeline.PhaseParse)
	s.StopWithError()

	if !strings.Contains(buf.String(), "Parsing test.gfa failed") {
		t.Errorf("output = %q, want the failing phase", buf.String())
	}
}
