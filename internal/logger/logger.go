package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
)

// Log levels
const (
	LevelError = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	Info    *log.Logger
	Debug   *log.Logger
	Warning *log.Logger
	Error   *log.Logger

	// Control overall logging level
	LogLevel = LevelInfo

	useColors = true

	// writers last passed to Initialize, reused when colors are toggled
	outputs [4]io.Writer
	mu      sync.Mutex
)

// Initialize sets up the loggers with the specified output.
// Info, debug and warning default to stderr so stdout stays free for
// command results; errors always default to stderr.
func Initialize(infoHandle, debugHandle, warningHandle, errorHandle io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if infoHandle == nil {
		infoHandle = os.Stderr
	}
	if debugHandle == nil {
		debugHandle = os.Stderr
	}
	if warningHandle == nil {
		warningHandle = os.Stderr
	}
	if errorHandle == nil {
		errorHandle = os.Stderr
	}
	outputs = [4]io.Writer{infoHandle, debugHandle, warningHandle, errorHandle}

	flags := log.Ldate | log.Ltime | log.Lshortfile
	Info = log.New(infoHandle, prefix(colorBlue, "INFO"), flags)
	Debug = log.New(debugHandle, prefix(colorPurple, "DEBUG"), flags)
	Warning = log.New(warningHandle, prefix(colorYellow, "WARNING"), flags)
	Error = log.New(errorHandle, prefix(colorRed, "ERROR"), flags)
}

func prefix(color, name string) string {
	if useColors {
		return color + name + ": " + colorReset
	}
	return name + ": "
}

// EnableColors enables colored output
func EnableColors() {
	setColors(true)
}

// DisableColors disables colored output
func DisableColors() {
	setColors(false)
}

func setColors(enabled bool) {
	mu.Lock()
	useColors = enabled
	current := outputs
	mu.Unlock()

	// Re-initialize on the current writers to apply the change
	Initialize(current[0], current[1], current[2], current[3])
}

// SetLevel sets the logging level
func SetLevel(level int) {
	if level >= LevelError && level <= LevelDebug {
		LogLevel = level
	}
}

// ParseLevel maps a level name to its constant
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Helper functions with level checking
func Infof(format string, v ...interface{}) {
	if LogLevel >= LevelInfo {
		Info.Output(2, fmt.Sprintf(format, v...))
	}
}

func Debugf(format string, v ...interface{}) {
	if LogLevel >= LevelDebug {
		Debug.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warningf(format string, v ...interface{}) {
	if LogLevel >= LevelWarning {
		Warning.Output(2, fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if LogLevel >= LevelError {
		Error.Output(2, fmt.Sprintf(format, v...))
	}
}

// Init is called automatically to initialize the logger with defaults
func init() {
	Initialize(nil, nil, nil, nil)
}
