package warmcache

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type line struct {
	level, msg string
	f          Fields
}

type captureLogger struct {
	mu    sync.Mutex
	lines []line
}

func (c *captureLogger) add(level, msg string, f Fields) {
	c.mu.Lock()
	c.lines = append(c.lines, line{level, msg, f})
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, f Fields) { c.add("debug", msg, f) }
func (c *captureLogger) Info(msg string, f Fields)  { c.add("info", msg, f) }
func (c *captureLogger) Warn(msg string, f Fields)  { c.add("warn", msg, f) }
func (c *captureLogger) Error(msg string, f Fields) { c.add("error", msg, f) }

func TestWithFields(t *testing.T) {
	if _, ok := withFields(NopLogger{}, Fields{"key": "faqs"}).(NopLogger); !ok {
		t.Fatal("NopLogger should not be wrapped")
	}

	capture := &captureLogger{}
	l := withFields(capture, Fields{"key": "faqs", "family": "none"})
	l.Warn("fetch failed", Fields{"family": "coin-count", "err": "x"})
	l.Debug("hit", nil)

	want := []line{
		{"warn", "fetch failed", Fields{"key": "faqs", "family": "coin-count", "err": "x"}},
		{"debug", "hit", Fields{"key": "faqs", "family": "none"}},
	}
	if diff := cmp.Diff(want, capture.lines, cmp.AllowUnexported(line{})); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

func TestCacheLogsCarryKey(t *testing.T) {
	capture := &captureLogger{}
	cc := newTestCache[int](t, func(o *Options[int]) { o.Key = "faqs"; o.Logger = capture })
	cc.Seed(1)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if len(capture.lines) == 0 || capture.lines[0].f["key"] != "faqs" {
		t.Fatalf("lines=%v", capture.lines)
	}
}
