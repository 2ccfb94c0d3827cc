package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/text2video/internal/engine"
	"github.com/ivlev/text2video/internal/planner"
)

// Manifest records what one run produced
type Manifest struct {
	RunID      string          `yaml:"run_id"`
	Query      string          `yaml:"query"`
	Scenes     []string        `yaml:"scenes"`
	FPS        int             `yaml:"fps"`
	NumFrames  int             `yaml:"num_frames"`
	CreatedAt  time.Time       `yaml:"created_at"`
	Candidates []CandidateFile `yaml:"candidates"`
}

type CandidateFile struct {
	Index  int    `yaml:"index"`
	Seed   int64  `yaml:"seed"`
	File   string `yaml:"file"`
	Frames int    `yaml:"frames"`
	Bytes  int    `yaml:"bytes"`
}

// Writer persists candidate videos as output_{index}.mp4 under Dir.
type Writer struct {
	Dir   string
	RunID string
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, RunID: uuid.NewString()}
}

// CandidatePath returns the file name for candidate index.
func (w *Writer) CandidatePath(index int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("output_%d.mp4", index))
}

func (w *Writer) WriteCandidates(candidates []engine.Candidate) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		path := w.CandidatePath(c.Index)
		if err := os.WriteFile(path, c.Video, 0644); err != nil {
			return paths, fmt.Errorf("write candidate %d: %w", c.Index, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// BuildManifest describes a finished run.
func (w *Writer) BuildManifest(plan *planner.Plan, candidates []engine.Candidate, fps, numFrames int) *Manifest {
	m := &Manifest{
		RunID:     w.RunID,
		Query:     plan.Query,
		Scenes:    plan.Scenes,
		FPS:       fps,
		NumFrames: numFrames,
		CreatedAt: time.Now().UTC(),
	}
	for _, c := range candidates {
		m.Candidates = append(m.Candidates, CandidateFile{
			Index:  c.Index,
			Seed:   c.Seed,
			File:   filepath.Base(w.CandidatePath(c.Index)),
			Frames: c.FrameCount,
			Bytes:  len(c.Video),
		})
	}
	return m
}

func (w *Writer) WriteManifest(m *Manifest) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, "manifest.yaml")
	return path, os.WriteFile(path, data, 0644)
}

// WritePlan stores the scene plan next to the videos so the run can be
// replayed with the same scenes.
func (w *Writer) WritePlan(plan *planner.Plan) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, "plan.yaml")
	return path, planner.WritePlan(plan, path)
}
