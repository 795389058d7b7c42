// Package cli implements the pangraph command-line interface.
//
// The CLI loads GFA graphs through the pipeline package, prints windows of
// them, exports windows as DOT, SVG, PNG, PDF or JSON, runs an interactive
// terminal explorer and serves the HTTP API. It is built using cobra and
// logs via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - load: Parse, lay out and cache a GFA file
//   - info: Summarize a graph or describe one node
//   - window: Print the nodes of a window
//   - segment: Print the sequence of a node
//   - export: Render a window to files
//   - explore: Browse a graph interactively
//   - serve: Run the HTTP API
//   - cache: Inspect and remove companion cache files
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/matzehuels/pangraph/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Stderr, os.Args[1:]); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pangraph/pkg/pipeline"
)

// newLogger creates a logger that writes to w with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logLoad logs where the time of a load went. A cached load has no parse or
// layout time, so only its total is logged.
func logLoad(l *log.Logger, result *pipeline.Result) {
	st := result.Stats
	if result.CacheInfo.GraphHit {
		l.Debug("Opened from cache", "segments", st.NodeCount, "total", round(st.TotalTime))
		return
	}
	l.Debug("Parsed and laid out",
		"segments", st.NodeCount,
		"lines", st.Lines,
		"parse", round(st.ParseTime),
		"layout", round(st.LayoutTime),
		"total", round(st.TotalTime),
		"saved", result.CacheInfo.Saved)
}

func round(d time.Duration) time.Duration { return d.Round(time.Millisecond) }

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
