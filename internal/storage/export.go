package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
)

type BodyTrack struct {
	Positions  [][3]float64 `json:"positions"`
	Velocities [][3]float64 `json:"velocities"`
}

type ExportData struct {
	Scene      string               `json:"scene"`
	Integrator string               `json:"integrator"`
	Controller string               `json:"controller"`
	Rule       string               `json:"rule"`
	Dt         float64              `json:"dt"`
	Duration   float64              `json:"duration"`
	Steps      int                  `json:"steps"`
	Times      []float64            `json:"times"`
	Joints     []int                `json:"joints"`
	Bodies     map[string]BodyTrack `json:"bodies"`
	Metrics    map[string]float64   `json:"metrics"`
}

func NewExportData(cfg *config.Config, result *dynamo.Result) ExportData {
	data := ExportData{
		Scene:      cfg.Scene,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Rule:       cfg.Rule,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Steps:      result.StepsTaken,
		Times:      result.Times(),
		Joints:     make([]int, len(result.Frames)),
		Bodies:     make(map[string]BodyTrack),
		Metrics:    result.Metrics,
	}
	for i, f := range result.Frames {
		data.Joints[i] = f.Joints
		for _, b := range f.Bodies {
			tr := data.Bodies[b.Name]
			tr.Positions = append(tr.Positions, [3]float64(b.Position))
			tr.Velocities = append(tr.Velocities, [3]float64(b.Velocity))
			data.Bodies[b.Name] = tr
		}
	}
	return data
}

// WriteJSON encodes a run as indented JSON.
func WriteJSON(w io.Writer, cfg *config.Config, result *dynamo.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(cfg, result))
}

func ExportJSON(path string, cfg *config.Config, result *dynamo.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, cfg, result)
}

func ExportJSONStdout(cfg *config.Config, result *dynamo.Result) error {
	return WriteJSON(os.Stdout, cfg, result)
}

// WriteMetadata encodes run metadata as indented JSON.
func WriteMetadata(w io.Writer, meta *RunMetadata) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(meta)
}
