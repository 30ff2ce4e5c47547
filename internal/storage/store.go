package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Rule       string             `json:"rule"`
	Bodies     []string           `json:"bodies"`
	Steps      int                `json:"steps"`
	Joined     int                `json:"joined"`
	Released   int                `json:"released"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewMetadata describes a finished run.
func NewMetadata(cfg *config.Config, result *dynamo.Result) RunMetadata {
	meta := RunMetadata{
		Scene:      cfg.Scene,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Rule:       cfg.Rule,
		Steps:      result.StepsTaken,
		Joined:     result.Joined,
		Released:   result.Released,
		Metrics:    result.Metrics,
	}
	if len(result.Frames) > 0 {
		for _, b := range result.Frames[0].Bodies {
			meta.Bodies = append(meta.Bodies, b.Name)
		}
	}
	return meta
}

// Config rebuilds the run settings recorded in the metadata. Layout and
// solver tuning are not recorded and come back as defaults.
func (m *RunMetadata) Config() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scene = m.Scene
	cfg.Seed = m.Seed
	cfg.Dt = m.Dt
	cfg.Duration = m.Duration
	cfg.Integrator = m.Integrator
	cfg.Controller = m.Controller
	cfg.Rule = m.Rule
	return cfg
}

// Result reassembles a stored run from its metadata and frames.
func (m *RunMetadata) Result(frames []dynamo.Frame) *dynamo.Result {
	return &dynamo.Result{
		Frames:     frames,
		Metrics:    m.Metrics,
		StepsTaken: m.Steps,
		Joined:     m.Joined,
		Released:   m.Released,
	}
}

// Save writes metadata.json and frames.csv into a fresh run directory and
// returns the run id.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (string, error) {
	meta := NewMetadata(cfg, result)
	runID, runDir, err := s.newRunDir(cfg.Scene, meta.Timestamp)
	if err != nil {
		return "", err
	}
	meta.ID = runID

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := WriteFramesFile(filepath.Join(runDir, "frames.csv"), result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) newRunDir(scene string, ts time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%d", scene, ts.Unix())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

// List returns stored runs, oldest first.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadFrames reads back the recorded frames of a run.
func (s *Store) LoadFrames(runID string) ([]dynamo.Frame, error) {
	return ReadFramesFile(filepath.Join(s.baseDir, runID, "frames.csv"))
}
