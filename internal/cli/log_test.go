package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pangraph/pkg/pipeline"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestLogLoad(t *testing.T) {
	tests := []struct {
		name   string
		result *pipeline.Result
		want   []string
		absent []string
	}{
		{
			name: "parsed",
			result: &pipeline.Result{
				Stats: pipeline.Stats{
					NodeCount:  6,
					Lines:      13,
					ParseTime:  1500 * time.Microsecond,
					LayoutTime: 2 * time.Millisecond,
					TotalTime:  4 * time.Millisecond,
				},
				CacheInfo: pipeline.CacheInfo{Saved: true},
			},
			want: []string{"Parsed and laid out", "segments=6", "lines=13", "parse=2ms", "layout=2ms", "saved=true"},
		},
		{
			name: "cached",
			result: &pipeline.Result{
				Stats:     pipeline.Stats{NodeCount: 6, TotalTime: time.Millisecond},
				CacheInfo: pipeline.CacheInfo{GraphHit: true},
			},
			want:   []string{"Opened from cache", "segments=6", "total=1ms"},
			absent: []string{"parse="},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logLoad(newLogger(&buf, log.DebugLevel), tt.result)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output lacks %q: %s", w, out)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(out, a) {
					t.Errorf("output has %q: %s", a, out)
				}
			}
		})
	}
}

func TestLogLoadQuietAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logLoad(newLogger(&buf, log.InfoLevel), &pipeline.Result{})
	if buf.Len() != 0 {
		t.Errorf("load timings logged at info level: %s", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}

	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("loggerFromContext should return the attached logger")
	}
}
