// Package debug provides conditional debug logging for gramline.
//
// Debug logging is enabled by setting the GL_DEBUG environment variable:
//
//	GL_DEBUG=1 gramline --data weights.db
//
// When enabled, debug messages are written to stderr with timestamps.
// Stderr is safe even while the TUI owns the terminal: redirect it to a
// file (2>debug.log) to capture a session trace.
// When disabled (default), all debug functions are no-ops with zero overhead.
//
// Usage:
//
//	import "github.com/vanderheijden86/gramline/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("recomputing domain for %d points", len(pts))
//	    // ...
//	    debug.LogTiming("myFunc", elapsed)
//	}
package debug

import (
	"log"
	"os"
	"time"
)

var (
	// enabled is true when GL_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [GL_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("GL_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[GL_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
// Note: This also requires initializing the logger if not already done.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[GL_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}
