// Provides a generic interface for logging
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tim-beatham/outliermask/pkg/conf"
)

var (
	Log Logger
)

type Logger interface {
	WriteInfof(msg string, args ...interface{})
	WriteErrorf(msg string, args ...interface{})
	WriteWarnf(msg string, args ...interface{})
	WriteDebugf(msg string, args ...interface{})
	Writer() io.Writer
}

type LogrusLogger struct {
	logger *logrus.Logger
}

func (l *LogrusLogger) WriteInfof(msg string, args ...interface{}) {
	l.logger.Infof(msg, args...)
}

func (l *LogrusLogger) WriteErrorf(msg string, args ...interface{}) {
	l.logger.Errorf(msg, args...)
}

func (l *LogrusLogger) WriteWarnf(msg string, args ...interface{}) {
	l.logger.Warnf(msg, args...)
}

func (l *LogrusLogger) WriteDebugf(msg string, args ...interface{}) {
	l.logger.Debugf(msg, args...)
}

func (l *LogrusLogger) Writer() io.Writer {
	return l.logger.Writer()
}

// ParseLevel maps the configured level onto a logrus level. Unknown levels
// fall back to info
func ParseLevel(confLevel conf.LogLevel) logrus.Level {
	switch confLevel {
	case conf.ERROR:
		return logrus.ErrorLevel
	case conf.WARNING:
		return logrus.WarnLevel
	case conf.DEBUG:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogrusLogger writes to out so that stdout stays free for query results
func NewLogrusLogger(confLevel conf.LogLevel, out io.Writer) *LogrusLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(out)
	logger.SetLevel(ParseLevel(confLevel))

	return &LogrusLogger{logger: logger}
}

func init() {
	SetLogger(NewLogrusLogger(conf.INFO, os.Stderr))
}

func SetLogger(l Logger) {
	Log = l
}
