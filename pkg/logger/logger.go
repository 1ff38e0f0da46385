// Package logger provides leveled, category-tagged logging for partyline.
//
// Log lines carry a short category ("chat", "events", "sweeper") so a single
// client log can be filtered per subsystem. Structured fields are rendered as
// key=value pairs appended to the message.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	level atomic.Int32

	mu  sync.Mutex
	out io.Writer = os.Stderr
)

func init() {
	level.Store(int32(INFO))
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// SetOutput redirects log output. Intended for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

func logCF(l Level, category, msg string, fields map[string]any) {
	if int32(l) < level.Load() {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(l.String())
	b.WriteString("] [")
	b.WriteString(category)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	b.WriteByte('\n')

	mu.Lock()
	defer mu.Unlock()
	io.WriteString(out, b.String())
}

func DebugC(category, msg string) { logCF(DEBUG, category, msg, nil) }
func InfoC(category, msg string)  { logCF(INFO, category, msg, nil) }
func WarnC(category, msg string)  { logCF(WARN, category, msg, nil) }
func ErrorC(category, msg string) { logCF(ERROR, category, msg, nil) }

func DebugCF(category, msg string, fields map[string]any) { logCF(DEBUG, category, msg, fields) }
func InfoCF(category, msg string, fields map[string]any)  { logCF(INFO, category, msg, fields) }
func WarnCF(category, msg string, fields map[string]any)  { logCF(WARN, category, msg, fields) }
func ErrorCF(category, msg string, fields map[string]any) { logCF(ERROR, category, msg, fields) }
