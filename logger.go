package warmcache

// Fields carries structured context for one log line.
type Fields map[string]any

// Logger is the leveled logger warmcache writes through. Adapters for zap,
// logrus and slog live under log/. A nil Logger in any Options disables logging.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// withFields returns a Logger that adds base to every line. Fields given at
// the call site win over base.
func withFields(l Logger, base Fields) Logger {
	if _, nop := l.(NopLogger); nop || len(base) == 0 {
		return l
	}
	return fieldLogger{l: l, base: base}
}

type fieldLogger struct {
	l    Logger
	base Fields
}

func (f fieldLogger) merge(extra Fields) Fields {
	out := make(Fields, len(f.base)+len(extra))
	for k, v := range f.base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (f fieldLogger) Debug(msg string, x Fields) { f.l.Debug(msg, f.merge(x)) }
func (f fieldLogger) Info(msg string, x Fields)  { f.l.Info(msg, f.merge(x)) }
func (f fieldLogger) Warn(msg string, x Fields)  { f.l.Warn(msg, f.merge(x)) }
func (f fieldLogger) Error(msg string, x Fields) { f.l.Error(msg, f.merge(x)) }
