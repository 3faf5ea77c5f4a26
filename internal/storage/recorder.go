package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/sim"
	"go.uber.org/zap"
)

// Recorder streams a run's frames into states.csv as they are produced, so a
// session of unbounded length never holds its history in memory. Finish
// writes metadata.json once the run is over.
type Recorder struct {
	id     string
	dir    string
	file   *os.File
	w      *csv.Writer
	logger *zap.Logger
	rows   int
	err    error
}

// Begin creates the run directory and the states.csv header.
func (s *Store) Begin(controller string, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := newRunID(controller)
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, statesFile))
	if err != nil {
		return nil, err
	}
	r := &Recorder{id: id, dir: dir, file: f, w: csv.NewWriter(f), logger: logger}
	if err := r.w.Write(stateHeader()); err != nil {
		f.Close()
		return nil, fmt.Errorf("write states: %w", err)
	}
	return r, nil
}

func (r *Recorder) ID() string { return r.id }
func (r *Recorder) Rows() int  { return r.rows }

// OnTick appends one row. After the first write error the recorder stops
// writing and Finish reports that error.
func (r *Recorder) OnTick(f dynamo.Frame) {
	if r.err != nil {
		return
	}
	if err := r.w.Write(stateRow(f)); err != nil {
		r.err = err
		r.logger.Warn("state recording failed", zap.Error(err), zap.Int("tick", f.Tick), zap.String("run", r.id))
		return
	}
	r.rows++
}

// Finish flushes states.csv and writes metadata.json. The run ID is returned
// even when recording failed part way, since the rows written so far are kept.
func (r *Recorder) Finish(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = r.id
	r.w.Flush()
	flushErr := errors.Join(r.err, r.w.Error(), r.file.Close())
	if err := writeMetadata(r.dir, meta, result); err != nil {
		return r.id, err
	}
	if flushErr != nil {
		return r.id, fmt.Errorf("write states: %w", flushErr)
	}
	return r.id, nil
}

// Abort discards the run directory.
func (r *Recorder) Abort() error {
	r.file.Close()
	return os.RemoveAll(r.dir)
}
