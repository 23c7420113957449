package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

// JSONFileSink appends each flushed event to a file as one JSON object per
// line, grounded on the source's export/continuous/JsonOutput.py (one
// shared file, rather than one file per object).
type JSONFileSink struct {
	mu   sync.Mutex
	path string
}

func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{path: path}
}

func (s *JSONFileSink) Write(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("exporter: open json sink: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("exporter: encode event: %w", err)
		}
	}
	return nil
}

// WriteGraphSnapshotJSON is a TriggeredFunc that dumps a resolved-view
// snapshot of the graph's hosts/networks to <outputDir>/snapshot.json.
func WriteGraphSnapshotJSON(ctx context.Context, outputDir string, snapshot *core.Graph) error {
	type doc struct {
		Hosts      []string `json:"hosts"`
		L2Networks []string `json:"l2Networks"`
		L3Networks []string `json:"l3Networks"`
	}
	d := doc{}
	for _, h := range snapshot.Hosts() {
		d.Hosts = append(d.Hosts, h.GlobalID())
	}
	for _, n := range snapshot.Layer2Networks() {
		d.L2Networks = append(d.L2Networks, n.GlobalID())
	}
	for _, n := range snapshot.Layer3Networks() {
		d.L3Networks = append(d.L3Networks, n.GlobalID())
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("exporter: create output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(outputDir, "snapshot.json"))
	if err != nil {
		return fmt.Errorf("exporter: create snapshot file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
