package keyfob

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component writes through.
type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

var (
	logger   Logger
	loggerMu sync.Mutex
)

// SetLogger replaces the package logger. Component loggers taken before
// the call keep writing to the old one.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = newLogrusLogger(os.Stderr)
	}
	return logger
}

// SetLogLevel sets the level of the default logger, e.g. "debug" or "warn".
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}

	l, err := defaultLogger()
	if err != nil {
		return err
	}
	l.Logger.SetLevel(lvl)
	return nil
}

// SetLogOutput redirects the default logger.
func SetLogOutput(w io.Writer) error {
	l, err := defaultLogger()
	if err != nil {
		return err
	}
	l.Logger.SetOutput(w)
	return nil
}

// ComponentLogger returns a child of the package logger tagged with the
// component name.
func ComponentLogger(name string) Logger {
	return GetLogger().ChildLogger(map[string]interface{}{"pkg": name})
}

func defaultLogger() (*logrusLogger, error) {
	l, ok := GetLogger().(*logrusLogger)
	if !ok {
		return nil, errors.New("non-default logger, don't know how to configure it")
	}
	return l, nil
}

type logrusLogger struct {
	*logrus.Entry
}

func newLogrusLogger(out io.Writer) *logrusLogger {
	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Level:     logrus.InfoLevel,
		Out:       out,
		Hooks:     make(logrus.LevelHooks),
	}
	return &logrusLogger{Entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) ChildLogger(tags map[string]interface{}) Logger {
	return &logrusLogger{l.Entry.WithFields(tags)}
}
