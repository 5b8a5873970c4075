package logger

import (
	"fmt"
	"testing"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) record(level, message string, keyvals ...any) {
	r.lines = append(r.lines, fmt.Sprintf("%s %s %v", level, message, keyvals))
}

func (r *recordingLogger) Log(m string, kv ...any)   { r.record("log", m, kv...) }
func (r *recordingLogger) Debug(m string, kv ...any) { r.record("debug", m, kv...) }
func (r *recordingLogger) Info(m string, kv ...any)  { r.record("info", m, kv...) }
func (r *recordingLogger) Warn(m string, kv ...any)  { r.record("warn", m, kv...) }
func (r *recordingLogger) Error(m string, kv ...any) { r.record("error", m, kv...) }
func (r *recordingLogger) Fatal(m string, kv ...any) { r.record("fatal", m, kv...) }

func TestDispatchToAllBackends(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	Init(a, b)
	defer Init()

	Info("[Test] hello", "key", "value")
	Warn("[Test] careful")
	Log("[Test] plain", "n", 1)

	for i, r := range []*recordingLogger{a, b} {
		if len(r.lines) != 3 {
			t.Fatalf("backend %d: expected 3 lines, got %d", i, len(r.lines))
		}
		if r.lines[0] != "info [Test] hello [key value]" {
			t.Fatalf("backend %d: unexpected line %q", i, r.lines[0])
		}
		if r.lines[2] != "log [Test] plain [n 1]" {
			t.Fatalf("backend %d: keyvals not forwarded for Log: %q", i, r.lines[2])
		}
	}
}

func TestNoBackendsIsNoop(t *testing.T) {
	Init()
	Info("dropped")
	Error("dropped", "err", "x")
}
