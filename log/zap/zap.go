// Package zap adapts a *zap.Logger to warmcache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/pennybot/warmcache"
)

var _ warmcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "warmcache". A nil l yields a no-op zap logger.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l.Named("warmcache")}
}

func (z Logger) Debug(msg string, f warmcache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f warmcache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f warmcache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f warmcache.Fields) { z.L.Error(msg, fields(f)...) }

// fields sorts by key so that output is stable; errors become zap.Error.
func fields(f warmcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
