package logger

import "errors"

const (
	levelTrace = iota - 2
	levelDebug
	levelInfo
	levelError
)

var (
	ErrInvalidLevel = errors.New("invalid log level")
)

type (
	// External is implemented by logging backends.
	// Fields are passed as flat key/value pairs.
	External interface {
		Error(string, []any)
		Info(string, []any)
		Debug(string, []any)
		Trace(string, []any)
	}

	Logger struct {
		ext    External
		fields []any
		lvl    int
	}
)

func parseLevel(level string) (int, error) {
	switch level {
	case "trace":
		return levelTrace, nil
	case "debug":
		return levelDebug, nil
	case "info":
		return levelInfo, nil
	case "error":
		return levelError, nil
	default:
		return 0, ErrInvalidLevel
	}
}

// ValidLevel reports whether level can be used with NewWithLevel.
func ValidLevel(level string) bool {
	_, err := parseLevel(level)
	return err == nil
}

func New(ext External) Logger {
	return Logger{ext: ext}
}

func NewWithLevel(ext External, level string) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return Logger{}, err
	}

	l := New(ext)
	l.lvl = lvl

	return l, nil
}

// With returns a copy of the logger that adds kv to every record.
func (l Logger) With(kv ...any) Logger {
	fields := make([]any, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)

	return Logger{
		ext:    l.ext,
		fields: fields,
		lvl:    l.lvl,
	}
}

func (l *Logger) merge(args []any) []any {
	if len(l.fields) == 0 {
		return args
	}
	merged := make([]any, 0, len(l.fields)+len(args))
	merged = append(merged, l.fields...)

	return append(merged, args...)
}

func (l *Logger) Trace(msg string, args ...any) {
	if l.lvl > levelTrace {
		return
	}

	l.ext.Trace(msg, l.merge(args))
}

func (l *Logger) Debug(msg string, args ...any) {
	if l.lvl > levelDebug {
		return
	}

	l.ext.Debug(msg, l.merge(args))
}

func (l *Logger) Info(msg string, args ...any) {
	if l.lvl > levelInfo {
		return
	}

	l.ext.Info(msg, l.merge(args))
}

func (l *Logger) Error(msg string, args ...any) {
	if l.lvl > levelError {
		return
	}

	l.ext.Error(msg, l.merge(args))
}

func (l *Logger) TraceFunc(f func() (string, []any)) {
	if l.lvl > levelTrace {
		return
	}

	msg, args := f()
	l.ext.Trace(msg, l.merge(args))
}

func (l *Logger) DebugFunc(f func() (string, []any)) {
	if l.lvl > levelDebug {
		return
	}

	msg, args := f()
	l.ext.Debug(msg, l.merge(args))
}
