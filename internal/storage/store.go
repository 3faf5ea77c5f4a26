// Package storage persists finished runs and streams the per-tick trace log.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// StateColumns is the header of states.csv after the leading time column.
var StateColumns = []string{
	"x", "y", "angle", "vx", "vy", "omega",
	"target_x", "target_y", "left", "right", "wind_x", "wind_y",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset,omitempty"`
	Scenario   string             `json:"scenario,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Ticks      int                `json:"ticks"`
	Stopped    bool               `json:"stopped"`
	Controller string             `json:"controller"`
	Params     map[string]float64 `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes metadata.json and states.csv under a fresh run directory and
// returns the run ID. ID, Ticks, Stopped and Metrics are taken from result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = newRunID(result.Controller)
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(runDir, meta, result); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result.Frames); err != nil {
		return "", fmt.Errorf("write states: %w", err)
	}
	return meta.ID, nil
}

func newRunID(controller string) string {
	return fmt.Sprintf("%s_%s", controller, uuid.NewString()[:8])
}

func writeMetadata(runDir string, meta RunMetadata, result *sim.Result) error {
	meta.Controller = result.Controller
	meta.Ticks = result.Ticks
	meta.Stopped = result.Stopped
	meta.Metrics = result.Metrics
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStates(path string, frames []dynamo.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(stateHeader()); err != nil {
		return err
	}
	for _, fr := range frames {
		if err := w.Write(stateRow(fr)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func stateHeader() []string {
	return append([]string{"time"}, StateColumns...)
}

func stateRow(fr dynamo.Frame) []string {
	return formatRow([]float64{
		fr.Time,
		fr.Pose.Position.X(), fr.Pose.Position.Y(), fr.Pose.Angle,
		fr.Pose.Velocity.X(), fr.Pose.Velocity.Y(), fr.Pose.AngularVelocity,
		fr.Target.Position.X(), fr.Target.Position.Y(),
		fr.Command.Left, fr.Command.Right,
		fr.Wind.Force.X(), fr.Wind.Force.Y(),
	})
}

func formatRow(vals []float64) []string {
	row := make([]string, len(vals))
	for i, v := range vals {
		row[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return row
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// Series is states.csv loaded column-wise.
type Series struct {
	Times   []float64
	Columns map[string][]float64
}

func (s *Series) Column(name string) ([]float64, error) {
	col, ok := s.Columns[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	return col, nil
}

func (s *Store) LoadStates(runID string) (*Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	series := &Series{Columns: make(map[string][]float64)}
	if len(records) == 0 {
		return series, nil
	}
	header := records[0]
	for _, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: column %s: %w", runID, header[j], err)
			}
			vals[j] = v
		}
		series.Times = append(series.Times, vals[0])
		for j := 1; j < len(vals); j++ {
			series.Columns[header[j]] = append(series.Columns[header[j]], vals[j])
		}
	}
	return series, nil
}
