package log

import "github.com/sirupsen/logrus"

// Logrus adapts a logrus.FieldLogger (a *logrus.Logger or *logrus.Entry)
// to Logger.
type Logrus struct {
	logrus.FieldLogger
}

var _ Logger = Logrus{}

// NewLogrus wraps l, defaulting to logrus.StandardLogger() when l is nil.
func NewLogrus(l logrus.FieldLogger) Logrus {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logrus{FieldLogger: l}
}

func (x Logrus) WithField(key string, value any) Logger {
	return Logrus{FieldLogger: x.FieldLogger.WithField(key, value)}
}

func (x Logrus) WithFields(fields map[string]any) Logger {
	return Logrus{FieldLogger: x.FieldLogger.WithFields(fields)}
}

func (x Logrus) WithError(err error) Logger {
	return Logrus{FieldLogger: x.FieldLogger.WithError(err)}
}

func (x Logrus) Debug(args ...any) { x.FieldLogger.Debug(args...) }
func (x Logrus) Info(args ...any)  { x.FieldLogger.Info(args...) }
func (x Logrus) Warn(args ...any)  { x.FieldLogger.Warn(args...) }
func (x Logrus) Error(args ...any) { x.FieldLogger.Error(args...) }
