// Package logrus adapts a *logrus.Entry to warmcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/pennybot/warmcache"
)

var _ warmcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every line with component=warmcache. A nil l uses the standard logger.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{E: l.WithField("component", "warmcache")}
}

func (l Logger) Debug(msg string, f warmcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f warmcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f warmcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f warmcache.Fields) { l.with(f).Error(msg) }

// with routes an "err" field through WithError so formatters treat it as one.
func (l Logger) with(f warmcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	e := l.E
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		out[k] = v
	}
	return e.WithFields(out)
}
