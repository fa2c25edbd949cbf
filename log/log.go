// Package log defines the logging interface used throughout the
// scheduler, plus a no-op and a logrus-backed implementation.
package log

type (
	// Logger is the logging interface the scheduler logs through. It is a
	// narrow subset of logrus.FieldLogger, letting callers plug in any
	// structured logger without the rest of the module depending on one
	// concrete library.
	Logger interface {
		WithField(key string, value any) Logger
		WithFields(fields map[string]any) Logger
		WithError(err error) Logger
		Debug(args ...any)
		Info(args ...any)
		Warn(args ...any)
		Error(args ...any)
	}

	// Discard implements Logger by doing nothing. It is the default when
	// no logger is configured.
	Discard struct{}
)

var _ Logger = Discard{}

func (Discard) WithField(string, any) Logger     { return Discard{} }
func (Discard) WithFields(map[string]any) Logger { return Discard{} }
func (Discard) WithError(error) Logger           { return Discard{} }
func (Discard) Debug(...any)                     {}
func (Discard) Info(...any)                      {}
func (Discard) Warn(...any)                      {}
func (Discard) Error(...any)                     {}
