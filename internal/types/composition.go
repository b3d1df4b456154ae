package types

import "time"

// DeviceDescriptor describes a device the way a toolkit backend reports
// it after connecting: identity, repeated hardware blocks and the flat
// node list.
type DeviceDescriptor struct {
	Serial       string           `yaml:"serial" json:"serial"`
	DeviceType   string           `yaml:"device_type" json:"device_type"`
	Interface    string           `yaml:"interface,omitempty" json:"interface,omitempty"`
	QAChannels   int              `yaml:"qa_channels,omitempty" json:"qa_channels,omitempty"`
	DelayWindow  int              `yaml:"delay_window,omitempty" json:"delay_window,omitempty"`
	// DefaultDelay is the QA delay that adjusted delays are added to.
	DefaultDelay int              `yaml:"default_delay,omitempty" json:"default_delay,omitempty"`
	AWGs         []AWGDescriptor  `yaml:"awgs,omitempty" json:"awgs,omitempty"`
	Nodes        []NodeDescriptor `yaml:"nodes" json:"nodes"`
}

// AWGDescriptor describes one AWG core of a device.
type AWGDescriptor struct {
	WaveformSlots int           `yaml:"waveform_slots" json:"waveform_slots"`
	Placeholders  []int         `yaml:"placeholders,omitempty" json:"placeholders,omitempty"`
	CommandTable  bool          `yaml:"command_table,omitempty" json:"command_table,omitempty"`
	RunTime       time.Duration `yaml:"run_time,omitempty" json:"run_time,omitempty"`
	CompileTime   time.Duration `yaml:"compile_time,omitempty" json:"compile_time,omitempty"`
}

// NodeDescriptor is a node together with its initial value.
type NodeDescriptor struct {
	NodeInfo `yaml:",inline"`
	Value    any `yaml:"value,omitempty" json:"value,omitempty"`
}
