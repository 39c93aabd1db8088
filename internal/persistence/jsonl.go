// Package persistence writes the engine's two append-only record streams:
// one line-delimited JSON file per BlockLifecycle observation and one for
// settled execution reports, plus an optional MySQL secondary sink.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shadowline-labs/monadarb/internal/execution"
	"github.com/shadowline-labs/monadarb/internal/lifecycle"
)

// JSONLWriter appends one JSON-encoded value per line to a file. Writes
// are serialized by mu since both the observer and executor write
// concurrently.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenJSONLWriter opens (creating if absent, appending if present) the file
// at path for line-delimited JSON writes.
func OpenJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file %s: %w", path, err)
	}
	return &JSONLWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write encodes v as one JSON line and appends it, flushing to disk
// immediately so a crash doesn't lose the last few records.
func (w *JSONLWriter) Write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encode jsonl record: %w", err)
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// LifecycleLogName returns the canonical mev_validation_<timestamp>.jsonl
// filename for a process starting at startedAt.
func LifecycleLogName(startedAt time.Time) string {
	return fmt.Sprintf("mev_validation_%s.jsonl", startedAt.Format("20060102_150405"))
}

// ExecutionLogName returns the companion execution-report log filename for
// a process starting at startedAt.
func ExecutionLogName(startedAt time.Time) string {
	return fmt.Sprintf("arb_execution_%s.jsonl", startedAt.Format("20060102_150405"))
}

// ExecutionRecord is one line of the execution log: either a sequential or
// an atomic report, tagged by Mode. Every settled attempt produces exactly
// one record, success or named failure.
type ExecutionRecord struct {
	Mode       string                        `json:"mode"` // "sequential" | "atomic"
	Sequential *execution.SequentialReport   `json:"sequential,omitempty"`
	Atomic     *execution.AtomicReport       `json:"atomic,omitempty"`
	RecordedAt time.Time                     `json:"recordedAt"`
}

// Recorder is the canonical JSONL sink: one writer for block-lifecycle
// records, one for execution reports, both opened against the same
// process-start timestamp.
type Recorder struct {
	lifecycle *JSONLWriter
	execution *JSONLWriter
}

// NewRecorder opens both canonical JSONL files under dir, named from
// startedAt.
func NewRecorder(dir string, startedAt time.Time) (*Recorder, error) {
	lc, err := OpenJSONLWriter(filepath.Join(dir, LifecycleLogName(startedAt)))
	if err != nil {
		return nil, err
	}
	ex, err := OpenJSONLWriter(filepath.Join(dir, ExecutionLogName(startedAt)))
	if err != nil {
		lc.Close()
		return nil, err
	}
	return &Recorder{lifecycle: lc, execution: ex}, nil
}

// RecordLifecycle appends one BlockLifecycle line.
func (r *Recorder) RecordLifecycle(b *lifecycle.BlockLifecycle) error {
	return r.lifecycle.Write(b)
}

// RecordSequential appends one sequential-path execution report.
func (r *Recorder) RecordSequential(rep *execution.SequentialReport) error {
	return r.execution.Write(ExecutionRecord{Mode: "sequential", Sequential: rep, RecordedAt: time.Now()})
}

// RecordAtomic appends one atomic-path execution report.
func (r *Recorder) RecordAtomic(rep *execution.AtomicReport) error {
	return r.execution.Write(ExecutionRecord{Mode: "atomic", Atomic: rep, RecordedAt: time.Now()})
}

// Close closes both underlying files.
func (r *Recorder) Close() error {
	err1 := r.lifecycle.Close()
	err2 := r.execution.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
