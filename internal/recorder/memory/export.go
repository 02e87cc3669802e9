// internal/recorder/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zkplatoon/platoon/pkg/core"
)

// ReplayExport is the root JSON structure of an exported run.
type ReplayExport struct {
	RunID          uint                `json:"runId"`
	StartTime      time.Time           `json:"startTime"`
	TickIntervalMs int64               `json:"tickIntervalMs"`
	Seed           uint64              `json:"seed,omitempty"`
	EndTick        uint64              `json:"endTick"`
	Trucks         []TrackJSON         `json:"trucks"`
	Faults         []core.FaultEvent   `json:"faults"`
	Shuffles       []core.ShuffleEvent `json:"shuffles"`
	Final          *core.Snapshot      `json:"final,omitempty"`
}

// TrackJSON is one truck of the replay.
type TrackJSON struct {
	ID        uint8         `json:"id"`
	Name      string        `json:"name"`
	Positions []int64       `json:"positions"`
	Labels    []LabelChange `json:"labels"`
	FaultTick *uint64       `json:"faultTick,omitempty"`
}

// ExportedFilePath returns the path of the last export, or "".
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// exportJSON writes the run to OutputDir, gzipped when CompressOutput is set.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	filename := fmt.Sprintf("run_%03d_%s.json", b.run.ID, b.run.StartTime.UTC().Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() ReplayExport {
	export := ReplayExport{
		RunID:          b.run.ID,
		StartTime:      b.run.StartTime,
		TickIntervalMs: b.run.TickInterval.Milliseconds(),
		Seed:           b.run.Seed,
		EndTick:        b.lastTick,
		Trucks:         make([]TrackJSON, 0, len(b.order)),
		Faults:         append([]core.FaultEvent{}, b.faults...),
		Shuffles:       append([]core.ShuffleEvent{}, b.shuffles...),
		Final:          b.final,
	}
	if b.final != nil && b.final.Tick > export.EndTick {
		export.EndTick = b.final.Tick
	}

	for _, id := range b.order {
		t := b.tracks[id]
		export.Trucks = append(export.Trucks, TrackJSON{
			ID:        uint8(t.ID),
			Name:      t.ID.Name(),
			Positions: t.Positions,
			Labels:    t.Labels,
			FaultTick: t.FaultTick,
		})
	}
	return export
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return f.Close()
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return f.Close()
}

// ReadExport loads an exported replay, gzipped or not.
func ReadExport(path string) (ReplayExport, error) {
	var out ReplayExport

	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var dec *json.Decoder
	if filepath.Ext(path) == ".gz" {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return out, fmt.Errorf("failed to open gzip reader: %w", err)
		}
		defer gr.Close()
		dec = json.NewDecoder(gr)
	} else {
		dec = json.NewDecoder(f)
	}
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode replay: %w", err)
	}
	return out, nil
}
