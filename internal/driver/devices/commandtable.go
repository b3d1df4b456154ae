package devices

import (
	"context"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// CommandTableNode wraps the command table of an AWG core.
type CommandTableNode struct {
	*instrument.Node
	tk toolkit.CommandTable
}

func newCommandTableNode(tk toolkit.CommandTable, cache *parameter.SnapshotCache) *CommandTableNode {
	return &CommandTableNode{
		Node: instrument.NewNode("commandtable", tk.Path(), cache),
		tk:   tk,
	}
}

// CheckStatus reports whether the uploaded table is valid on the device.
func (c *CommandTableNode) CheckStatus(ctx context.Context) (bool, error) {
	return c.tk.CheckStatus(ctx)
}

func (c *CommandTableNode) LoadValidationSchema(ctx context.Context) (map[string]any, error) {
	return c.tk.LoadValidationSchema(ctx)
}

// UploadToDevice uploads a structured table, a JSON string or a JSON
// mapping. With validate set, raw sources are checked against the
// device schema first.
func (c *CommandTableNode) UploadToDevice(ctx context.Context, ct types.CommandTableSource, validate bool) error {
	return c.tk.UploadToDevice(ctx, ct, validate)
}

func (c *CommandTableNode) LoadFromDevice(ctx context.Context) (*types.CommandTable, error) {
	return c.tk.LoadFromDevice(ctx)
}
