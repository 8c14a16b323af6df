package logrus

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

func NewLogger(logger *logrus.Logger) *Logger {
	return &Logger{
		Logger: logger,
	}
}

func (l *Logger) Error(msg string, fields []any) {
	l.WithFields(logrusFields(fields)).Error(msg)
}

func (l *Logger) Info(msg string, fields []any) {
	l.WithFields(logrusFields(fields)).Info(msg)
}

func (l *Logger) Debug(msg string, fields []any) {
	l.WithFields(logrusFields(fields)).Debug(msg)
}

func (l *Logger) Trace(msg string, fields []any) {
	l.WithFields(logrusFields(fields)).Trace(msg)
}

func logrusFields(fields []any) logrus.Fields {
	lf := make(logrus.Fields, len(fields)/2)

	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch val := fields[i+1].(type) {
		case error:
			lf[key] = val.Error()
		case fmt.Stringer:
			lf[key] = val.String()
		default:
			lf[key] = val
		}
	}

	return lf
}
