package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/pangraph/pkg/pipeline"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// loadSpinner animates the phase a graph load is in. It stops when its
// context is cancelled.
type loadSpinner struct {
	w      io.Writer
	name   string // Base name of the source
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	message string
	width   int // Widest line drawn so far
	started bool

	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

func newLoadSpinner(ctx context.Context, w io.Writer, source string) *loadSpinner {
	ctx, cancel := context.WithCancel(ctx)
	name := filepath.Base(source)
	return &loadSpinner{
		w:       w,
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
		message: phaseMessage(pipeline.PhaseCache, name),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// phaseMessage describes what a load of name is doing in phase p.
func phaseMessage(p pipeline.Phase, name string) string {
	switch p {
	case pipeline.PhaseCache:
		return "Opening " + name + "..."
	case pipeline.PhaseParse:
		return "Parsing " + name + "..."
	case pipeline.PhaseLayout:
		return "Laying out " + name + "..."
	case pipeline.PhasePersist:
		return "Writing companion files..."
	}
	return "Loading " + name + "..."
}

// Phase switches the message to p. It is meant as pipeline.Options.Progress.
func (s *loadSpinner) Phase(p pipeline.Phase) {
	s.mu.Lock()
	s.message = phaseMessage(p, s.name)
	s.mu.Unlock()
}

// Message returns the current message.
func (s *loadSpinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Start begins the animation.
func (s *loadSpinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.draw(spinnerFrames[i%len(spinnerFrames)])
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *loadSpinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message)+4)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
}

func (s *loadSpinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

// Stop ends the animation and clears the line. It may be called more than
// once, and without Start.
func (s *loadSpinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		close(s.done)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
		s.clearLine()
	})
}

// StopWithError stops the spinner and reports which phase failed.
func (s *loadSpinner) StopWithError() {
	msg := strings.TrimSuffix(s.Message(), "...")
	s.Stop()
	newPrinter(s.w).failure("%s failed", msg)
}

// Cancelled reports whether the spinner's context ended before Stop.
func (s *loadSpinner) Cancelled() bool {
	select {
	case <-s.done:
		return false
	default:
		return s.ctx.Err() != nil
	}
}
