package pipeline

import (
	"context"
	"sync"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// ErrBusy is returned by [Loader.Start] while another load is running.
var ErrBusy = perrors.New(perrors.ErrCodeBusy, "a load is already in progress")

// Task is a handle to a background load.
type Task struct {
	Source string

	done   chan struct{}
	result *Result
	err    error
}

// Done is closed when the load has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Join blocks until the load finishes and returns its outcome.
func (t *Task) Join() (*Result, error) {
	<-t.done
	return t.result, t.err
}

// Loader runs at most one load at a time and holds the last successful
// result. It is safe for concurrent use.
type Loader struct {
	runner *Runner

	mu      sync.Mutex
	running *Task
	current *Result
}

// NewLoader creates a loader that loads through runner.
func NewLoader(runner *Runner) *Loader {
	return &Loader{runner: runner}
}

// Start begins loading source in the background. It returns ErrBusy if a
// load is still running. ctx is only checked before the load starts; a
// running load is never interrupted.
//
// On success the result replaces Current and the previous result is
// closed. On failure Current is left untouched.
func (l *Loader) Start(ctx context.Context, source string, opts Options) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running != nil {
		return nil, ErrBusy
	}

	t := &Task{Source: source, done: make(chan struct{})}
	l.running = t

	go func() {
		result, err := l.runner.Load(context.WithoutCancel(ctx), source, opts)

		l.mu.Lock()
		if err == nil {
			prev := l.current
			l.current = result
			if prev != nil {
				_ = prev.Close()
			}
		}
		l.running = nil
		l.mu.Unlock()

		t.result, t.err = result, err
		close(t.done)
	}()
	return t, nil
}

// Load starts a load and waits for it.
func (l *Loader) Load(ctx context.Context, source string, opts Options) (*Result, error) {
	t, err := l.Start(ctx, source, opts)
	if err != nil {
		return nil, err
	}
	return t.Join()
}

// Current returns the last successfully loaded result, or nil.
func (l *Loader) Current() *Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Running returns the task of the load in progress, or nil.
func (l *Loader) Running() *Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Close waits for a running load and releases the current result.
func (l *Loader) Close() error {
	if t := l.Running(); t != nil {
		<-t.Done()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.current.Close()
	l.current = nil
	return err
}
