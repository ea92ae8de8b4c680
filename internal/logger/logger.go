// Package logger is a small leveled wrapper around the standard log package.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type sink struct {
	debug, info, warn, error *log.Logger
}

var (
	mu       sync.RWMutex
	current  = newSink(os.Stdout, isTerminal(os.Stdout))
	minLevel atomic.Int32
)

func init() { minLevel.Store(int32(INFO)) }

// isTerminal reports whether f is a character device. Colors are only
// written to terminals.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func newSink(w io.Writer, color bool) *sink {
	flags := log.Ldate | log.Ltime
	prefix := func(c, tag string) string {
		if !color {
			return tag
		}
		return c + tag + colorReset
	}
	return &sink{
		debug: log.New(w, prefix(colorGray, "[DEBUG] "), flags),
		info:  log.New(w, prefix(colorReset, "[INFO]  "), flags),
		warn:  log.New(w, prefix(colorYellow, "[WARN]  "), flags),
		error: log.New(w, prefix(colorRed, "[ERROR] "), flags),
	}
}

// SetLevel sets the minimum level that is written.
func SetLevel(level Level) {
	minLevel.Store(int32(level))
}

// CurrentLevel returns the minimum level that is written.
func CurrentLevel() Level {
	return Level(minLevel.Load())
}

// SetOutput redirects all levels to w without colors.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current = newSink(w, false)
}

func output(level Level, msg string) {
	if level < CurrentLevel() {
		return
	}

	mu.RLock()
	s := current
	mu.RUnlock()

	var l *log.Logger
	switch level {
	case DEBUG:
		l = s.debug
	case INFO:
		l = s.info
	case WARN:
		l = s.warn
	default:
		l = s.error
	}
	l.Output(3, msg)
}

func Debugf(format string, v ...interface{}) { output(DEBUG, fmt.Sprintf(format, v...)) }

func Infof(format string, v ...interface{}) { output(INFO, fmt.Sprintf(format, v...)) }

func Info(v ...interface{}) { output(INFO, fmt.Sprint(v...)) }

func Warnf(format string, v ...interface{}) { output(WARN, fmt.Sprintf(format, v...)) }

func Errorf(format string, v ...interface{}) { output(ERROR, fmt.Sprintf(format, v...)) }

// Fatalf logs at ERROR and exits the process.
func Fatalf(format string, v ...interface{}) {
	output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
