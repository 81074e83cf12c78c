package forge

import (
	"encoding/json"
	"fmt"
	"os"
)

// ScalingMetadata is optional scaling/units metadata a collaborator may
// want preserved alongside the TSP file. It is not part of the fixed
// 44-byte TSP header, so it is written as a JSON sidecar instead.
type ScalingMetadata struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Units string  `json:"units,omitempty"`
}

// WriteScalingSidecar writes metadata as "<outFilename>.json".
func WriteScalingSidecar(outFilename string, metadata ScalingMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("forge: marshal scaling metadata: %w", err)
	}
	if err := os.WriteFile(outFilename+".json", data, 0o644); err != nil {
		return fmt.Errorf("forge: write scaling sidecar: %w", err)
	}
	return nil
}
