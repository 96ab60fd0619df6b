package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled lines either as plain text or as one JSON object per line.
// It is safe for concurrent use; loggers returned by With share the writer.
type Logger struct {
	json  bool
	debug bool
	out   io.Writer
	mu    *sync.Mutex
	base  map[string]any
	now   func() time.Time
}

func New(jsonOutput bool) *Logger {
	return NewWriter(os.Stdout, jsonOutput)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, jsonOutput bool) *Logger {
	return &Logger{json: jsonOutput, out: w, mu: &sync.Mutex{}, now: time.Now}
}

// Discard returns a logger that drops everything.
func Discard() *Logger { return NewWriter(io.Discard, false) }

// SetDebug toggles DEBUG output.
func (l *Logger) SetDebug(on bool) { l.debug = on }

// With returns a child logger that adds fields to every line.
func (l *Logger) With(fields map[string]any) *Logger {
	child := *l
	child.base = make(map[string]any, len(l.base)+len(fields))
	for k, v := range l.base {
		child.base[k] = v
	}
	for k, v := range fields {
		child.base[k] = v
	}
	return &child
}

func (l *Logger) log(level string, msg string, fields map[string]any) {
	merged := fields
	if len(l.base) > 0 {
		merged = make(map[string]any, len(l.base)+len(fields))
		for k, v := range l.base {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.json {
		if len(merged) > 0 {
			b, _ := json.Marshal(merged)
			fmt.Fprintf(l.out, "[%s] %s %s\n", level, msg, string(b))
		} else {
			fmt.Fprintf(l.out, "[%s] %s\n", level, msg)
		}
		return
	}
	payload := map[string]any{
		"ts":    l.now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range merged {
		if k == "ts" || k == "level" || k == "msg" {
			k = "field." + k
		}
		payload[k] = v
	}
	_ = json.NewEncoder(l.out).Encode(payload)
}

func (l *Logger) Info(msg string, fields map[string]any)  { l.log("INFO", msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.log("WARN", msg, fields) }
func (l *Logger) Error(msg string, fields map[string]any) { l.log("ERROR", msg, fields) }

func (l *Logger) Debug(msg string, fields map[string]any) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

// Err is shorthand for a fields map carrying only an error.
func Err(err error) map[string]any {
	if err == nil {
		return nil
	}
	return map[string]any{"error": err.Error()}
}

// JSONEnabled reports whether this logger is configured to emit JSON output.
func (l *Logger) JSONEnabled() bool { return l.json }

// Level names accepted by ParseLevel.
const (
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// ParseLevel reports whether level enables debug output.
func ParseLevel(level string) (debug bool, err error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return false, nil
	case LevelDebug:
		return true, nil
	default:
		return false, fmt.Errorf("unknown log level %q", level)
	}
}
