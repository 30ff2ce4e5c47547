package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/dynamo"
)

var frameColumns = []string{"time", "joints", "peak_force", "kinetic_energy"}

var bodyColumns = []string{"x", "y", "z", "vx", "vy", "vz"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteFrames writes one CSV row per frame: the frame summary followed by
// position and velocity columns for every body of the first frame.
func WriteFrames(out io.Writer, frames []dynamo.Frame) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if len(frames) == 0 {
		return nil
	}

	names := make([]string, len(frames[0].Bodies))
	header := append([]string(nil), frameColumns...)
	for i, b := range frames[0].Bodies {
		names[i] = b.Name
		for _, c := range bodyColumns {
			header = append(header, b.Name+"."+c)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range frames {
		f := &frames[i]
		row := []string{
			formatFloat(f.T),
			strconv.Itoa(f.Joints),
			formatFloat(f.PeakForce),
			formatFloat(f.KineticEnergy),
		}
		for _, name := range names {
			b, _ := f.Body(name)
			for _, v := range [...]float64{b.Position[0], b.Position[1], b.Position[2], b.Velocity[0], b.Velocity[1], b.Velocity[2]} {
				row = append(row, formatFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WriteFramesFile(path string, frames []dynamo.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteFrames(f, frames)
}

// ReadFrames parses what WriteFrames produced.
func ReadFrames(in io.Reader) ([]dynamo.Frame, error) {
	r := csv.NewReader(in)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []dynamo.Frame{}, nil
	}

	header := records[0]
	fixed := len(frameColumns)
	if len(header) < fixed || (len(header)-fixed)%len(bodyColumns) != 0 {
		return nil, fmt.Errorf("frames: unexpected header %v", header)
	}
	var names []string
	for i := fixed; i < len(header); i += len(bodyColumns) {
		names = append(names, strings.TrimSuffix(header[i], ".x"))
	}

	frames := make([]dynamo.Frame, 0, len(records)-1)
	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("frames: line %d column %d: %w", line+2, j+1, err)
			}
			vals[j] = v
		}

		f := dynamo.Frame{
			T:             vals[0],
			Joints:        int(vals[1]),
			PeakForce:     vals[2],
			KineticEnergy: vals[3],
			Bodies:        make([]dynamo.BodyState, len(names)),
		}
		for k, name := range names {
			v := vals[fixed+k*len(bodyColumns):]
			f.Bodies[k] = dynamo.BodyState{
				Name:     name,
				Position: mgl64.Vec3{v[0], v[1], v[2]},
				Velocity: mgl64.Vec3{v[3], v[4], v[5]},
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func ReadFramesFile(path string) ([]dynamo.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrames(f)
}
