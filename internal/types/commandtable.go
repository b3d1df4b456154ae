package types

import (
	"encoding/json"
	"fmt"
)

// CommandTableSource is anything that can be uploaded as a command table.
// Raw sources (JSON strings and mappings) are subject to schema validation
// on upload; structured tables are not.
type CommandTableSource interface {
	CommandTableJSON() ([]byte, error)
	Raw() bool
}

// CommandTable is the structured form of an AWG command table.
type CommandTable struct {
	Schema string              `json:"$schema,omitempty"`
	Header CommandTableHeader  `json:"header"`
	Table  []CommandTableEntry `json:"table"`
}

type CommandTableHeader struct {
	Version    string `json:"version"`
	UserString string `json:"userString,omitempty"`
	Partial    bool   `json:"partial,omitempty"`
}

type CommandTableEntry struct {
	Index      int                   `json:"index"`
	Waveform   *CommandTableWaveform `json:"waveform,omitempty"`
	Phase0     *CommandTableValue    `json:"phase0,omitempty"`
	Phase1     *CommandTableValue    `json:"phase1,omitempty"`
	Amplitude0 *CommandTableValue    `json:"amplitude0,omitempty"`
	Amplitude1 *CommandTableValue    `json:"amplitude1,omitempty"`
}

type CommandTableWaveform struct {
	Index    *int `json:"index,omitempty"`
	Length   *int `json:"length,omitempty"`
	PlayZero bool `json:"playZero,omitempty"`
}

type CommandTableValue struct {
	Value     float64 `json:"value"`
	Increment bool    `json:"increment,omitempty"`
}

func (ct *CommandTable) CommandTableJSON() ([]byte, error) {
	return json.Marshal(ct)
}

func (*CommandTable) Raw() bool { return false }

// RawCommandTable is a command table given as a JSON string.
type RawCommandTable string

func (r RawCommandTable) CommandTableJSON() ([]byte, error) {
	if !json.Valid([]byte(r)) {
		return nil, fmt.Errorf("%w: command table is not valid JSON", ErrValidation)
	}
	return []byte(r), nil
}

func (RawCommandTable) Raw() bool { return true }

// CommandTableMap is a command table given as a decoded JSON mapping.
type CommandTableMap map[string]any

func (m CommandTableMap) CommandTableJSON() ([]byte, error) {
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return data, nil
}

func (CommandTableMap) Raw() bool { return true }

// ParseCommandTable decodes a command table JSON document.
func ParseCommandTable(data []byte) (*CommandTable, error) {
	var ct CommandTable
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal command table: %w", err)
	}
	return &ct, nil
}
