package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus to provide structured logging with preset fields.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus settings. It should be called once at startup.
func Init(level logrus.Level) {
	// JSON output so log lines can be collected and indexed downstream.
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(level)
}

// ParseLevel maps a config string to a logrus level, defaulting to Info.
func ParseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

// New creates a Logger scoped to a service and component.
func New(serviceName, component string) *Logger {
	return &Logger{
		entry: logrus.WithFields(logrus.Fields{
			"service_name": serviceName,
			"component":    component,
		}),
	}
}

// WithField returns a Logger with an extra field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithError returns a Logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithField("error", err.Error())}
}

// Info logs a message at info level.
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn logs a message at warning level.
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error logs a message at error level.
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug logs a message at debug level.
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal logs a message at fatal level and terminates the process.
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
