package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	file     io.Writer
	verbose  bool
	runID    string
	onceKeys map[string]struct{}
}

type Event struct {
	TS         string `json:"ts"`
	Level      string `json:"level"`
	Event      string `json:"event"`
	RunID      string `json:"run_id,omitempty"`
	Input      string `json:"input,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
	WaitMS     int64  `json:"wait_ms,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
	Chars      int    `json:"chars,omitempty"`
	Topics     int    `json:"topics,omitempty"`
	Removed    int    `json:"removed,omitempty"`
	OutputFile string `json:"output_file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// New writes human-readable lines to stdout, or NDJSON when verbose is set.
// The optional log file always receives NDJSON.
func New(stdout io.Writer, logFile string, verbose bool) (*Logger, io.Closer, error) {
	l := &Logger{w: stdout, verbose: verbose, onceKeys: map[string]struct{}{}}
	if logFile == "" {
		return l, nil, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	l.file = f
	return l, f, nil
}

func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

// WithRunID stamps every later event with id.
func (l *Logger) WithRunID(id string) *Logger {
	if l != nil {
		l.mu.Lock()
		l.runID = id
		l.mu.Unlock()
	}
	return l
}

func (l *Logger) Emit(ev Event) {
	if l == nil || (l.w == nil && l.file == nil) {
		return
	}
	if ev.TS == "" {
		ev.TS = time.Now().Format(time.RFC3339Nano)
	}
	if ev.Level == "" {
		ev.Level = "info"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if ev.RunID == "" {
		ev.RunID = l.runID
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	b = append(b, '\n')
	if l.file != nil {
		_, _ = l.file.Write(b)
	}
	if l.w == nil {
		return
	}
	if l.verbose {
		_, _ = l.w.Write(b)
		return
	}
	if line := l.formatHuman(ev); line != "" {
		_, _ = io.WriteString(l.w, line+"\n")
	}
}
