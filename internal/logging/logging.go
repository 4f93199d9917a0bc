package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Log levels constants.
const (
	None = iota
	Error
	Warning
	Info
	Debug
)

var currentLevel atomic.Int32 // Stores the current logging level atomically.

// logger is the process-wide logrus instance. Level filtering happens in logf,
// so logrus itself is left at its most verbose level.
var logger = newLogger(os.Stderr)

func init() {
	// Default log level is Info.
	currentLevel.Store(Info)
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05.000000",
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})
	return l
}

// SetLevel atomically sets the global logging level.
// It clamps the input level to the valid range [None, Debug].
func SetLevel(level int) {
	if level < None {
		level = None
	} else if level > Debug {
		level = Debug
	}
	currentLevel.Store(int32(level))
	if level >= Debug {
		logf(Debug, nil, "Log level set to %d", level)
	}
}

// GetLevel atomically retrieves the current logging level.
func GetLevel() int {
	return int(currentLevel.Load())
}

// ParseLevel converts a log level string (case-insensitive) to its integer representation.
// Returns Info level and an error if the string is invalid.
func ParseLevel(levelStr string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "none":
		return None, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warning, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	default:
		return Info, fmt.Errorf("invalid log level string: '%s'", levelStr)
	}
}

// SetupLogging configures the logging level based on an input string.
// Logs a warning and uses Info level if the input string is invalid.
// Returns the finally set log level.
func SetupLogging(levelStr string) int {
	level, err := ParseLevel(levelStr)
	if err != nil {
		logf(Warning, nil, "Invalid log level '%s' provided, defaulting to 'info'. Error: %v", levelStr, err)
	}
	SetLevel(level)
	return level
}

// SetOutput changes the output destination of the global logger.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Fields carries structured key/value pairs attached to a log line.
type Fields = logrus.Fields

// logf is the internal logging function that handles level checking and caller lookup.
func logf(level int, fields Fields, format string, v ...interface{}) {
	if level <= None || int32(level) > currentLevel.Load() {
		return
	}

	entry := logrus.NewEntry(logger)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}

	// Debug lines carry the caller of the public function (Logf/WithFields).
	if level == Debug {
		pc, file, line, ok := runtime.Caller(2)
		caller := "???:0:???"
		if ok {
			funcName := "???"
			if f := runtime.FuncForPC(pc); f != nil {
				funcName = filepath.Base(f.Name())
			}
			caller = fmt.Sprintf("%s:%d:%s", filepath.Base(file), line, funcName)
		}
		entry = entry.WithField("caller", caller)
	}

	message := fmt.Sprintf(format, v...)
	switch level {
	case Error:
		entry.Error(message)
	case Warning:
		entry.Warn(message)
	case Info:
		entry.Info(message)
	default:
		entry.Debug(message)
	}
}

// Logf logs a formatted message if the specified level is enabled according to the global setting.
func Logf(level int, format string, v ...interface{}) {
	logf(level, nil, format, v...)
}

// WithFields logs a formatted message with structured fields attached.
func WithFields(level int, fields Fields, format string, v ...interface{}) {
	logf(level, fields, format, v...)
}
