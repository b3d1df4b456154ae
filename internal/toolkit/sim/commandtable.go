package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// CommandTable is the simulated command table of an AWG core.
type CommandTable struct {
	path      string
	validator *Validator

	mu          sync.Mutex
	uploaded     []byte
	valid        bool
	failUploads  bool
	uploadFailed bool
}

func newCommandTable(path string, validator *Validator) *CommandTable {
	return &CommandTable{
		path:      path,
		validator: validator,
	}
}

func (c *CommandTable) Path() string { return c.path }

// SetFailUploads makes subsequent uploads fail on the device side.
func (c *CommandTable) SetFailUploads(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failUploads = fail
}

// CheckStatus reports whether the uploaded table is valid. It fails while
// the last upload failed on the device side.
func (c *CommandTable) CheckStatus(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploadFailed {
		return false, fmt.Errorf("%w: command table upload to %s failed", types.ErrRuntime, c.path)
	}
	return c.valid, nil
}

func (c *CommandTable) LoadValidationSchema(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.validator.Schema()
}

// UploadToDevice stores the table. Raw sources are validated against the
// schema when validate is set.
func (c *CommandTable) UploadToDevice(ctx context.Context, ct types.CommandTableSource, validate bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ct == nil {
		return fmt.Errorf("%w: no command table given", types.ErrValidation)
	}
	data, err := ct.CommandTableJSON()
	if err != nil {
		return err
	}
	if validate && ct.Raw() {
		if err := c.validator.ValidateCommandTable(data); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failUploads {
		c.valid = false
		c.uploadFailed = true
		return fmt.Errorf("%w: uploading command table to %s failed", types.ErrRuntime, c.path)
	}
	c.uploaded = append([]byte(nil), data...)
	c.valid = true
	c.uploadFailed = false
	return nil
}

func (c *CommandTable) LoadFromDevice(ctx context.Context) (*types.CommandTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	data := c.uploaded
	c.mu.Unlock()
	if data == nil {
		return nil, fmt.Errorf("%w: no command table on %s", types.ErrNotFound, c.path)
	}
	return types.ParseCommandTable(data)
}
