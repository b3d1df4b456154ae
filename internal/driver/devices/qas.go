package devices

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/parameter"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
)

// QAS is one quantum analyzer channel of a UHFQA.
type QAS struct {
	*instrument.Node
	tk    toolkit.QAChannel
	index int
}

func newQAS(tk toolkit.QAChannel, index int, cache *parameter.SnapshotCache) *QAS {
	return &QAS{
		Node:  instrument.NewNode(fmt.Sprintf("qas_%d", index), tk.Path(), cache),
		tk:    tk,
		index: index,
	}
}

func (q *QAS) Index() int { return q.index }

func (q *QAS) CrosstalkMatrix(ctx context.Context) ([][]float64, error) {
	return q.tk.CrosstalkMatrix(ctx)
}

// SetCrosstalkMatrix writes the crosstalk matrix. The device rejects
// matrices larger than 10 on either axis.
func (q *QAS) SetCrosstalkMatrix(ctx context.Context, matrix [][]float64) error {
	return q.tk.SetCrosstalkMatrix(ctx, matrix)
}

func (q *QAS) AdjustedDelay(ctx context.Context) (int, error) {
	return q.tk.AdjustedDelay(ctx)
}

// SetAdjustedDelay sets the delay relative to the device default and
// returns the value applied.
func (q *QAS) SetAdjustedDelay(ctx context.Context, value int) (int, error) {
	return q.tk.SetAdjustedDelay(ctx, value)
}
