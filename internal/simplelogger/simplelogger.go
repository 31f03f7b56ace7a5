package simplelogger

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"
)

// EnvLogFile names the environment variable consulted when no file was set with SetFile.
const EnvLogFile = "BLOCKDIFF_LOG_FILE"

var (
	mu   sync.Mutex
	file string
)

// SetFile directs Log to path, overriding BLOCKDIFF_LOG_FILE. An empty path reverts to the environment variable.
func SetFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	file = path
}

// Log is a minimal printf-style logger. It appends one timestamped line to the file set with SetFile, or else to the file named by BLOCKDIFF_LOG_FILE.
//
// If no file is configured or the path can't be opened as a file, Log is a no-op.
func Log(format string, args ...any) {
	// Serialize open/write/close to reduce interleaving within a single process.
	mu.Lock()
	defer mu.Unlock()

	path := file
	if path == "" {
		path = os.Getenv(EnvLogFile)
	}
	if path == "" {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	var b bytes.Buffer
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	_, _ = fmt.Fprintf(&b, format, args...)
	if b.Bytes()[b.Len()-1] != '\n' {
		_ = b.WriteByte('\n')
	}
	_, _ = f.Write(b.Bytes())
}
