package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"gopkg.in/yaml.v3"
)

// DescriptorSource returns the descriptor of a device by serial.
type DescriptorSource interface {
	Load(serial string) (*types.DeviceDescriptor, error)
}

// DescriptorLoader reads device descriptors from YAML files named
// <serial>.yaml in a list of search paths.
type DescriptorLoader struct {
	cache       sync.Map
	searchPaths []string
}

func NewDescriptorLoader(searchPaths []string) *DescriptorLoader {
	return &DescriptorLoader{
		searchPaths: searchPaths,
	}
}

func (l *DescriptorLoader) Load(serial string) (*types.DeviceDescriptor, error) {
	serial = strings.ToLower(serial)
	if cached, ok := l.cache.Load(serial); ok {
		return cached.(*types.DeviceDescriptor), nil
	}

	var data []byte
	var foundPath string

	for _, searchPath := range l.searchPaths {
		fullPath := filepath.Join(searchPath, serial+".yaml")
		content, err := os.ReadFile(fullPath)
		if err == nil {
			data = content
			foundPath = fullPath
			break
		}
	}

	if data == nil {
		return nil, fmt.Errorf("%w: descriptor for %s (searched in: %v)", types.ErrNotFound, serial, l.searchPaths)
	}

	var desc types.DeviceDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal descriptor %s: %w", foundPath, err)
	}
	if err := normalizeDescriptor(&desc, serial); err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", foundPath, err)
	}

	l.cache.Store(serial, &desc)

	return &desc, nil
}

func (l *DescriptorLoader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}

// Descriptors is an in-memory DescriptorSource keyed by serial.
type Descriptors map[string]*types.DeviceDescriptor

func (d Descriptors) Load(serial string) (*types.DeviceDescriptor, error) {
	serial = strings.ToLower(serial)
	desc, ok := d[serial]
	if !ok {
		return nil, fmt.Errorf("%w: descriptor for %s", types.ErrNotFound, serial)
	}
	if err := normalizeDescriptor(desc, serial); err != nil {
		return nil, err
	}
	return desc, nil
}

// normalizeDescriptor lower cases the serial and turns node paths into
// absolute paths below the serial.
func normalizeDescriptor(desc *types.DeviceDescriptor, serial string) error {
	if desc.Serial == "" {
		desc.Serial = serial
	}
	desc.Serial = strings.ToLower(desc.Serial)
	if desc.Serial != serial {
		return fmt.Errorf("%w: descriptor serial %s does not match %s", types.ErrValidation, desc.Serial, serial)
	}
	if desc.DeviceType == "" {
		return fmt.Errorf("%w: descriptor for %s has no device type", types.ErrValidation, serial)
	}
	prefix := "/" + desc.Serial + "/"
	for i := range desc.Nodes {
		path := strings.ToLower(strings.Trim(desc.Nodes[i].Path, "/"))
		if path == "" {
			return fmt.Errorf("%w: node %d of %s has no path", types.ErrValidation, i, serial)
		}
		if !strings.HasPrefix("/"+path+"/", prefix) {
			path = desc.Serial + "/" + path
		}
		desc.Nodes[i].Path = "/" + path
	}
	return nil
}
