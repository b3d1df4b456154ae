package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Node value messages
	MessageTypeNodeUpdate MessageType = "node_update"

	// Instrument lifecycle messages
	MessageTypeDeviceConnected MessageType = "device_connected"
	MessageTypeModuleCreated   MessageType = "module_created"
	MessageTypeModuleClosed    MessageType = "module_closed"

	// Sequencer messages
	MessageTypeSequencerLoaded MessageType = "sequencer_loaded"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
	MessageTypeStreamError  MessageType = "stream_error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// NodeUpdateData carries one polled node value.
type NodeUpdateData struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// InstrumentData identifies a device or module.
type InstrumentData struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Serial string `json:"serial,omitempty"`
	Type   string `json:"type,omitempty"`
}

type SequencerData struct {
	Instrument string `json:"instrument"`
	AWG        int    `json:"awg"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewNodeUpdateMessage(path string, value any) Message {
	return NewMessage(MessageTypeNodeUpdate, NodeUpdateData{
		Path:  path,
		Value: value,
	})
}

func NewInstrumentMessage(msgType MessageType, name, kind, serial, instrumentType string) Message {
	return NewMessage(msgType, InstrumentData{
		Name:   name,
		Kind:   kind,
		Serial: serial,
		Type:   instrumentType,
	})
}

func NewSequencerMessage(instrument string, awg int, status, message string) Message {
	return NewMessage(MessageTypeSequencerLoaded, SequencerData{
		Instrument: instrument,
		AWG:        awg,
		Status:     status,
		Message:    message,
	})
}
