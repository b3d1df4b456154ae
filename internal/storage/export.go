package storage

import (
	"encoding/json"
	"fmt"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"gopkg.in/yaml.v3"
)

// Export formats for snapshots.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// EncodeSnapshot renders a snapshot record in the given format.
func EncodeSnapshot(rec *SnapshotRecord, format string) ([]byte, string, error) {
	switch format {
	case "", FormatJSON:
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return data, "application/json", nil
	case FormatYAML:
		data, err := yaml.Marshal(rec)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return data, "application/yaml", nil
	default:
		return nil, "", fmt.Errorf("%w: unknown snapshot format %q", types.ErrValidation, format)
	}
}
