package parameter

import (
	"fmt"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

// NodeRef identifies a node either by its raw path or by the parameter
// bound to it. Implemented by Path and *Parameter only.
type NodeRef interface {
	isNodeRef()
}

// Path is a raw node path.
type Path string

func (Path) isNodeRef() {}

func (*Parameter) isNodeRef() {}

// ResolvePath returns the raw node path of a reference.
func ResolvePath(ref NodeRef) (string, error) {
	switch r := ref.(type) {
	case Path:
		if r == "" {
			return "", fmt.Errorf("%w: empty node path", types.ErrValidation)
		}
		return string(r), nil
	case *Parameter:
		if r == nil {
			return "", fmt.Errorf("%w: nil parameter", types.ErrValidation)
		}
		return r.Path(), nil
	default:
		return "", fmt.Errorf("%w: unsupported node reference %T", types.ErrValidation, ref)
	}
}
