// Package logger is the process-wide leveled logger used by every clusterfs
// component. It intentionally stays small: four levels, printf formatting,
// and a swappable output for tests.
package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu           sync.Mutex
	currentLevel = LevelInfo
	out          = stdlog.New(os.Stdout, "", 0)
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SetLevel sets the minimum level from its string name. Unknown names are
// ignored.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetOutput redirects log output. Used by tests and by the file output
// option in the logging configuration.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = stdlog.New(w, "", 0)
}

func logf(level Level, format string, v ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	out.Println(prefix + fmt.Sprintf(format, v...))
}

func Debug(format string, v ...any) {
	logf(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	logf(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	logf(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	logf(LevelError, format, v...)
}
