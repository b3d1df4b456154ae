package storage

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotRecord is a persisted instrument snapshot.
type SnapshotRecord struct {
	ID             uuid.UUID      `json:"id" yaml:"id"`
	InstrumentID   uuid.UUID      `json:"instrument_id" yaml:"instrument_id"`
	InstrumentName string         `json:"instrument_name" yaml:"instrument_name"`
	Kind           string         `json:"kind" yaml:"kind"`
	Snapshot       map[string]any `json:"snapshot" yaml:"snapshot"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}
