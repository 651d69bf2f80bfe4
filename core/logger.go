package core

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel accepts the level names case-insensitively ("debug", "INFO", ...).
// An empty string maps to LevelInfo.
func ParseLevel(s string) (Level, error) {
	if strings.TrimSpace(s) == "" {
		return LevelInfo, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "WARNING" {
		upper = "WARN"
	}
	for lvl, name := range levelNames {
		if name == upper {
			return lvl, nil
		}
	}
	return LevelInfo, fmt.Errorf("logger: unknown level %q", s)
}

var (
	loggerMu       sync.RWMutex
	loggerInstance = NewDevelopmentLogger() // default to development logger
)

// SetLogger sets the global logger instance
func SetLogger(logger *Logger) {
	if logger == nil {
		return
	}
	loggerMu.Lock()
	loggerInstance = logger
	loggerMu.Unlock()
}

// GetLogger retrieves the global logger instance
func GetLogger() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return loggerInstance
}

type HandlerFunc func(level Level, msg string, attrs map[string]interface{})

type Logger struct {
	handlerFunc HandlerFunc
	attrs       map[string]interface{}
	minLevel    Level
}

func NewLogger(handler HandlerFunc) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
		minLevel:    LevelTrace,
	}
}

// NewDevelopmentLogger creates a new development logger with pretty console output
func NewDevelopmentLogger() *Logger {
	return NewConsoleLogger(os.Stdout, LevelDebug)
}

// NewConsoleLogger writes human readable lines to w. Attributes are printed in
// key order so identical events produce identical lines.
func NewConsoleLogger(w io.Writer, minLevel Level) *Logger {
	var mu sync.Mutex
	handler := func(level Level, msg string, attrs map[string]interface{}) {
		timestamp := time.Now().Format(time.RFC3339)
		logLine := fmt.Sprintf("%s [%s] %s%s\n", timestamp, level, msg, formatAttrs(attrs))

		mu.Lock()
		fmt.Fprint(w, logLine)
		mu.Unlock()

		if level == LevelFatal {
			os.Exit(1)
		}
	}

	l := NewLogger(handler)
	l.minLevel = minLevel
	return l
}

// Discard returns a logger that drops everything. Useful in tests and in the
// terminal UI where stdout belongs to the renderer.
func Discard() *Logger {
	return NewLogger(nil)
}

func formatAttrs(attrs map[string]interface{}) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(" |")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, attrs[k])
	}
	return b.String()
}

// SetLevel drops every message below minLevel.
func (l *Logger) SetLevel(minLevel Level) {
	l.minLevel = minLevel
}

func (l *Logger) Enabled(level Level) bool {
	return l.handlerFunc != nil && level >= l.minLevel
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	if len(args) > 0 {
		// Detect slog-style key-value pairs: even number of args where
		// odd-positioned args (keys) are strings.
		if isKeyValuePairs(msg, args) {
			attrs := make(map[string]interface{}, len(l.attrs)+len(args)/2)
			for k, v := range l.attrs {
				attrs[k] = v
			}
			for i := 0; i < len(args)-1; i += 2 {
				key, _ := args[i].(string)
				attrs[key] = args[i+1]
			}
			l.handlerFunc(level, msg, attrs)
			return
		}
		msg = fmt.Sprintf(msg, args...)
	}
	l.handlerFunc(level, msg, l.attrs)
}

// isKeyValuePairs returns true if args look like slog-style key-value pairs:
// even count, every key (even index) is a string and msg has no verbs.
func isKeyValuePairs(msg string, args []interface{}) bool {
	if len(args)%2 != 0 || strings.Contains(msg, "%") {
		return false
	}
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(string); !ok {
			return false
		}
	}
	return true
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(LevelFatal, msg, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(LevelFatal, format, args...)
}

func (l *Logger) Trace(msg string, args ...interface{}) {
	l.log(LevelTrace, msg, args...)
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

func (l *Logger) With(attrs map[string]interface{}) *Logger {
	combinedAttrs := make(map[string]interface{}, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combinedAttrs[k] = v
	}
	for k, v := range attrs {
		combinedAttrs[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combinedAttrs,
		minLevel:    l.minLevel,
	}
}
