package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

const maxCrosstalkSize = 10

// QAChannel is a simulated quantum analyzer channel.
type QAChannel struct {
	device       *Device
	index        int
	window       int
	defaultDelay int

	mu         sync.Mutex
	crosstalk  [][]float64
	adjustment int
}

func newQAChannel(d *Device, index, window, defaultDelay int) *QAChannel {
	m := make([][]float64, maxCrosstalkSize)
	for i := range m {
		m[i] = make([]float64, maxCrosstalkSize)
		m[i][i] = 1
	}
	return &QAChannel{
		device:       d,
		index:        index,
		window:       window,
		defaultDelay: defaultDelay,
		crosstalk:    m,
	}
}

func (q *QAChannel) Path() string {
	return fmt.Sprintf("/%s/qas/%d", q.device.serial, q.index)
}

func (q *QAChannel) CrosstalkMatrix(ctx context.Context) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return copyMatrix(q.crosstalk), nil
}

// SetCrosstalkMatrix replaces the upper left part of the matrix.
func (q *QAChannel) SetCrosstalkMatrix(ctx context.Context, matrix [][]float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := len(matrix)
	cols := 0
	for _, row := range matrix {
		cols = max(cols, len(row))
	}
	if rows > maxCrosstalkSize || cols > maxCrosstalkSize {
		return fmt.Errorf("%w: crosstalk matrix is %dx%d, maximum is %dx%d",
			types.ErrValidation, rows, cols, maxCrosstalkSize, maxCrosstalkSize)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for r, row := range matrix {
		for c, v := range row {
			q.crosstalk[r][c] = v
			q.device.tree.setValue(fmt.Sprintf("qas/%d/crosstalk/rows/%d/cols/%d", q.index, r, c), v)
		}
	}
	return nil
}

func (q *QAChannel) AdjustedDelay(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.adjustment, nil
}

// SetAdjustedDelay adds value samples to the default delay. The resulting
// delay must stay within [0, window].
func (q *QAChannel) SetAdjustedDelay(ctx context.Context, value int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	delay := q.defaultDelay + value
	if delay < 0 || delay > q.window {
		return 0, fmt.Errorf("%w: adjusted delay %d outside [0, %d]", types.ErrOutOfRange, delay, q.window)
	}
	q.mu.Lock()
	q.adjustment = value
	q.mu.Unlock()
	q.device.tree.setValue(fmt.Sprintf("qas/%d/delay", q.index), int64(delay))
	return value, nil
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
