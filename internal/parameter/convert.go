package parameter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
)

type valueKind int

const (
	kindOther valueKind = iota
	kindInteger
	kindEnum
	kindDouble
	kindComplex
	kindString
	kindVector
)

func kindOf(info types.NodeInfo) valueKind {
	t := info.Type
	switch {
	case strings.Contains(t, "ZIVector"):
		return kindVector
	case strings.Contains(t, "enumerated"):
		return kindEnum
	case strings.Contains(t, "Integer"):
		return kindInteger
	case strings.Contains(t, "Complex"):
		return kindComplex
	case strings.Contains(t, "Double"):
		return kindDouble
	case strings.Contains(t, "String"):
		return kindString
	default:
		return kindOther
	}
}

// toRaw converts a framework value into the representation the node
// expects. Values that cannot represent the declared type fail with
// types.ErrValidation.
func toRaw(info types.NodeInfo, value any) (any, error) {
	switch kindOf(info) {
	case kindEnum:
		if s, ok := value.(string); ok {
			v, found := info.OptionValue(s)
			if !found {
				return nil, fmt.Errorf("%w: %q is not an option of %s", types.ErrValidation, s, info.Path)
			}
			return v, nil
		}
		return toInt64(info, value)
	case kindInteger:
		return toInt64(info, value)
	case kindDouble:
		f, ok := toFloat64(value)
		if !ok {
			return nil, typeError(info, value)
		}
		return f, nil
	case kindComplex:
		return toComplex(info, value)
	case kindString:
		switch v := value.(type) {
		case string:
			return v, nil
		case interface{ Serial() string }:
			// device handles are written as their serial
			return v.Serial(), nil
		default:
			return nil, typeError(info, value)
		}
	case kindVector:
		switch v := value.(type) {
		case []float64, []complex128, []int64, []uint32:
			return v, nil
		default:
			return nil, typeError(info, value)
		}
	default:
		return value, nil
	}
}

// fromRaw normalises a value read from the node to the framework type.
func fromRaw(info types.NodeInfo, raw any) any {
	switch kindOf(info) {
	case kindEnum, kindInteger:
		if v, err := toInt64(info, raw); err == nil {
			return v
		}
	case kindDouble:
		if f, ok := toFloat64(raw); ok {
			return f
		}
	case kindComplex:
		if c, err := toComplex(info, raw); err == nil {
			return c
		}
	}
	return raw
}

func typeError(info types.NodeInfo, value any) error {
	return fmt.Errorf("%w: %T is not a valid value for %s node %s", types.ErrValidation, value, info.Type, info.Path)
}

func toInt64(info types.NodeInfo, value any) (int64, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows node %s", types.ErrValidation, v, info.Path)
		}
		return int64(v), nil
	case float32, float64:
		f, _ := toFloat64(v)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %v is not an integer", types.ErrValidation, v)
		}
		return int64(f), nil
	default:
		return 0, typeError(info, value)
	}
}

func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toComplex(info types.NodeInfo, value any) (complex128, error) {
	switch v := value.(type) {
	case complex128:
		return v, nil
	case complex64:
		return complex128(v), nil
	case string:
		c, err := strconv.ParseComplex(strings.TrimSpace(v), 128)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a complex number", types.ErrValidation, v)
		}
		return c, nil
	default:
		if f, ok := toFloat64(v); ok {
			return complex(f, 0), nil
		}
		return 0, typeError(info, value)
	}
}

// snapshotValue converts a value into something JSON can carry.
func snapshotValue(value any) any {
	switch v := value.(type) {
	case complex128:
		return strconv.FormatComplex(v, 'g', -1, 128)
	case complex64:
		return strconv.FormatComplex(complex128(v), 'g', -1, 64)
	case interface{ Name() string }:
		return v.Name()
	}
	return value
}

// JSONValue converts a parameter value into a JSON compatible form.
// Complex numbers become strings and device handles their name.
func JSONValue(value any) any {
	return snapshotValue(value)
}
