// internal/logger/logger.go

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

type Mode int

const (
	MINIMAL Mode = iota
	NORMAL
	FULL
)

var (
	levelNames = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}

	levelColors = map[Level]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
		FATAL: "\033[35m",
	}

	resetColor = "\033[0m"
)

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// sink is shared by a logger and every component logger derived from it.
type sink struct {
	mu         sync.Mutex
	level      Level
	mode       Mode
	consoleOut io.Writer
	fileOut    io.Writer
	logFile    *os.File
	useColors  bool
	exit       func(int)
}

type Logger struct {
	sink      *sink
	component string
}

type Config struct {
	Level       Level
	Mode        Mode
	LogFilePath string
	UseColors   bool
	// Output replaces stdout as the console writer when set.
	Output io.Writer
}

func New(cfg Config) (*Logger, error) {
	s := &sink{
		level:      cfg.Level,
		mode:       cfg.Mode,
		consoleOut: os.Stdout,
		useColors:  cfg.UseColors,
		exit:       os.Exit,
	}
	if cfg.Output != nil {
		s.consoleOut = cfg.Output
	}

	if cfg.LogFilePath != "" {
		if err := s.openFile(cfg.LogFilePath); err != nil {
			return nil, fmt.Errorf("failed to setup log file: %w", err)
		}
	}

	return &Logger{sink: s}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{sink: &sink{level: FATAL + 1, exit: func(int) {}}}
}

func (s *sink) openFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	s.logFile = file
	s.fileOut = file
	return nil
}

// WithComponent returns a logger that tags every line with name. It shares
// outputs and level with l.
func (l *Logger) WithComponent(name string) *Logger {
	component := name
	if l.component != "" {
		component = l.component + "." + name
	}
	return &Logger{sink: l.sink, component: component}
}

func (l *Logger) Close() error {
	if l.sink.logFile != nil {
		return l.sink.logFile.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	s := l.sink

	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = "[" + l.component + "] " + message
	}

	location := ""
	if s.mode == FULL {
		file, line := caller()
		location = fmt.Sprintf("%s:%d", file, line)
	}

	if s.consoleOut != nil {
		fmt.Fprintln(s.consoleOut, s.formatConsole(level, timestamp, location, message))
	}
	if s.fileOut != nil {
		fmt.Fprintln(s.fileOut, formatFile(level, timestamp, location, message))
	}

	if level == FATAL {
		s.exit(1)
	}
}

func (s *sink) formatConsole(level Level, timestamp, location, msg string) string {
	tag := "[" + levelNames[level] + "]"
	if s.useColors {
		tag = levelColors[level] + tag + resetColor
	}

	switch s.mode {
	case MINIMAL:
		return tag + " " + msg
	case FULL:
		return fmt.Sprintf("%s %s | %s | %s", tag, timestamp, location, msg)
	default:
		return fmt.Sprintf("%s %s | %s", tag, timestamp, msg)
	}
}

func formatFile(level Level, timestamp, location, msg string) string {
	if location != "" {
		return fmt.Sprintf("%s [%s] %s | %s", timestamp, levelNames[level], location, msg)
	}
	return fmt.Sprintf("%s [%s] %s", timestamp, levelNames[level], msg)
}

func caller() (string, int) {
	// log <- Info/Warn/... <- call site
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return "unknown", 0
	}
	return filepath.Base(file), line
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
}

func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "minimal":
		return MINIMAL
	case "full":
		return FULL
	default:
		return NORMAL
	}
}

var defaultLogger *Logger

func init() {
	defaultLogger, _ = New(Config{
		Level:     INFO,
		Mode:      NORMAL,
		UseColors: true,
	})
}

// SetDefault replaces the logger behind the package-level functions.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.Fatal(format, args...)
}
