package storage

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/san-kum/hoversim/internal/dynamo"
	"go.uber.org/zap"
)

// TraceLog appends one CSV record per tick: the nine normalized inputs and
// the two unscaled controller outputs. The records double as a training set
// for the learned controller. Write failures are logged and never stop the
// loop.
type TraceLog struct {
	w      *csv.Writer
	closer io.Closer
	logger *zap.Logger
	rows   int
	failed int
}

func NewTraceLog(w io.Writer, logger *zap.Logger) *TraceLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &TraceLog{w: csv.NewWriter(w), logger: logger}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// OpenTraceLog appends to path, creating it if needed.
func OpenTraceLog(path string, logger *zap.Logger) (*TraceLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewTraceLog(f, logger), nil
}

func (t *TraceLog) OnTick(f dynamo.Frame) {
	vals := make([]float64, 0, dynamo.InputDim+dynamo.OutputDim)
	vals = append(vals, f.Input[:]...)
	vals = append(vals, f.Command.Left, f.Command.Right)

	if err := t.w.Write(formatRow(vals)); err != nil {
		t.fail(f.Tick, err)
		return
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		t.fail(f.Tick, err)
		return
	}
	t.rows++
}

func (t *TraceLog) fail(tick int, err error) {
	t.failed++
	// Only the first failure and then every 600th are logged.
	if t.failed == 1 || t.failed%600 == 0 {
		t.logger.Warn("trace log write failed", zap.Error(err), zap.Int("tick", tick), zap.Int("failures", t.failed))
	}
}

func (t *TraceLog) Rows() int     { return t.rows }
func (t *TraceLog) Failures() int { return t.failed }

func (t *TraceLog) Close() error {
	t.w.Flush()
	if t.closer != nil {
		return t.closer.Close()
	}
	return t.w.Error()
}
