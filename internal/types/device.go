package types

import (
	"slices"
	"strings"
)

// NodeInfo describes a single node of a device or module node tree as
// reported by the data server.
type NodeInfo struct {
	Path        string           `json:"node" yaml:"path"`
	Type        string           `json:"type" yaml:"type"`
	Properties  []string         `json:"properties" yaml:"properties"`
	Unit        string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Options     map[int64]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Node types as reported by the data server.
const (
	NodeTypeInteger     = "Integer (64 bit)"
	NodeTypeEnumerated  = "Integer (enumerated)"
	NodeTypeDouble      = "Double"
	NodeTypeComplex     = "Complex Double"
	NodeTypeString      = "String"
	NodeTypeVector      = "ZIVectorData"
	NodeTypeDemodSample = "ZIDemodSample"
)

// Node properties as reported by the data server.
const (
	PropertyRead    = "Read"
	PropertyWrite   = "Write"
	PropertySetting = "Setting"
	PropertyStream  = "Stream"
)

type AccessType string

const (
	AccessTypeReadOnly  AccessType = "read_only"
	AccessTypeWriteOnly AccessType = "write_only"
	AccessTypeReadWrite AccessType = "read_write"
	AccessTypeNone      AccessType = "none"
)

func (n NodeInfo) HasProperty(p string) bool {
	return slices.Contains(n.Properties, p)
}

func (n NodeInfo) Readable() bool { return n.HasProperty(PropertyRead) }

func (n NodeInfo) Writable() bool { return n.HasProperty(PropertyWrite) }

// Access derives the access mode from the node properties.
func (n NodeInfo) Access() AccessType {
	switch {
	case n.Readable() && n.Writable():
		return AccessTypeReadWrite
	case n.Readable():
		return AccessTypeReadOnly
	case n.Writable():
		return AccessTypeWriteOnly
	default:
		return AccessTypeNone
	}
}

// IsVector reports whether the node carries vector data.
func (n NodeInfo) IsVector() bool {
	return strings.Contains(n.Type, "ZIVector")
}

// IsStreaming reports whether the node is a streaming node.
func (n NodeInfo) IsStreaming() bool { return n.HasProperty(PropertyStream) }

// DisplayUnit returns the unit or an empty string for the placeholder
// units the data server reports for unitless nodes.
func (n NodeInfo) DisplayUnit() string {
	switch n.Unit {
	case "None", "Dependent":
		return ""
	}
	return n.Unit
}

// OptionValue resolves an enum keyword to its integer value.
func (n NodeInfo) OptionValue(keyword string) (int64, bool) {
	for k, v := range n.Options {
		if strings.EqualFold(v, keyword) {
			return k, true
		}
	}
	return 0, false
}
