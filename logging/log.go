package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	LogLevelError   LogLevel = 0
	LogLevelWarning LogLevel = 1
	LogLevelInfo    LogLevel = 2
	LogLevelDebug   LogLevel = 3
)

// stamp matches what operators grep for in litd.log, keep it stable.
const stamp = "2006-01-02 15:04:05.000000"

var log = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	formatter := &logrus.TextFormatter{
		TimestampFormat: stamp,
		FullTimestamp:   true,
	}
	return &logrus.Logger{
		Out:       out,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.ErrorLevel,
	}
}

func toLogrus(l LogLevel) (logrus.Level, error) {
	switch {
	case l <= LogLevelError:
		return logrus.ErrorLevel, nil
	case l == LogLevelWarning:
		return logrus.WarnLevel, nil
	case l == LogLevelInfo:
		return logrus.InfoLevel, nil
	case l >= LogLevelDebug:
		return logrus.DebugLevel, nil
	}
	return logrus.ErrorLevel, fmt.Errorf("invalid log level %d", l)
}

// SetLogLevel sets the verbosity, 0 (errors only) through 3 (debug).
// Out of range values are clamped.
func SetLogLevel(newLevel int) {
	lvl, _ := toLogrus(LogLevel(newLevel))
	log.SetLevel(lvl)
}

// SetupLogs sends every message at or above level to the terminal and
// mirrors it into the file at logFilePath.
func SetupLogs(logFilePath string, level int) error {
	if level < 0 || LogLevel(level) > LogLevelDebug {
		return fmt.Errorf("invalid log level %d, want 0-3", level)
	}
	SetLogLevel(level)

	pathMap := lfshook.PathMap{
		logrus.DebugLevel: logFilePath,
		logrus.InfoLevel:  logFilePath,
		logrus.WarnLevel:  logFilePath,
		logrus.ErrorLevel: logFilePath,
		logrus.FatalLevel: logFilePath,
		logrus.PanicLevel: logFilePath,
	}
	log.Hooks = make(logrus.LevelHooks)
	log.Hooks.Add(lfshook.NewHook(pathMap, &logrus.TextFormatter{
		TimestampFormat: stamp,
		FullTimestamp:   true,
	}))
	return nil
}

// SetOutput redirects terminal output. Used by tests and by the shell so
// log lines do not tear the prompt.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Fatalln(args ...interface{}) {
	log.Fatalln(args...)
}

func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

func Fatal(args ...interface{}) {
	log.Fatal(args...)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func Debugln(args ...interface{}) {
	log.Debugln(args...)
}

func Infoln(args ...interface{}) {
	log.Infoln(args...)
}

func Warnln(args ...interface{}) {
	log.Warnln(args...)
}

func Errorln(args ...interface{}) {
	log.Errorln(args...)
}

func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func SetupTestLogs() {
	log.SetLevel(logrus.DebugLevel)
}
