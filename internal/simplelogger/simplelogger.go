// Package simplelogger is a printf-style debug log for tracing streaming sessions. Output goes to the file named by LIVEDIFF_LOG_FILE; with the variable unset,
// logging is a no-op.
package simplelogger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// EnvVar names the environment variable holding the log file path.
const EnvVar = "LIVEDIFF_LOG_FILE"

// stampLayout prefixes every line, so frame timings can be read straight from the file.
const stampLayout = "15:04:05.000"

var mu sync.Mutex

// Enabled reports whether Log writes anywhere. Callers can use it to skip building expensive arguments.
func Enabled() bool {
	return os.Getenv(EnvVar) != ""
}

// Log appends one timestamped line to the log file. A trailing newline in the formatted message is dropped, so each call is exactly one line. Failures to open
// or write the file are ignored.
func Log(format string, args ...any) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return
	}
	line := time.Now().Format(stampLayout) + " " + strings.TrimSuffix(fmt.Sprintf(format, args...), "\n") + "\n"

	mu.Lock()
	defer mu.Unlock()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	f.WriteString(line)
	f.Close()
}

// Since logs msg with the time elapsed since start, in milliseconds.
func Since(start time.Time, msg string) {
	if !Enabled() {
		return
	}
	Log("%s (%.1fms)", msg, float64(time.Since(start).Microseconds())/1000)
}
