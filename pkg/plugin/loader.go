package plugin

import (
	"errors"
	"fmt"
	goplugin "plugin"
)

// Loader resolves plugin binaries into Plugin implementations.
type Loader interface {
	Load(path string) (Plugin, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (Plugin, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) (Plugin, error) {
	return f(path)
}

// ExportNames lists the exported symbols probed by GoPluginLoader, in order.
var ExportNames = []string{"SeiPlugin", "Plugin", "New"}

// ErrNoExport is returned when none of ExportNames resolves to a Plugin.
var ErrNoExport = errors.New("plugin exports no usable symbol")

// GoPluginLoader uses the Go standard library plugin mechanism to open a
// shared object and discover its export shape.
type GoPluginLoader struct{}

// Load opens the shared object and returns the first symbol in ExportNames
// that can be turned into a Plugin.
func (GoPluginLoader) Load(path string) (Plugin, error) {
	if path == "" {
		return nil, errors.New("plugin path cannot be empty")
	}
	so, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	for _, name := range ExportNames {
		symbol, err := so.Lookup(name)
		if err != nil {
			continue
		}
		p, err := FromSymbol(symbol)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", name, err)
		}
		return p, nil
	}
	return nil, ErrNoExport
}

// FromSymbol converts the supported export shapes into a Plugin: a value,
// a pointer to a value, or a constructor function.
func FromSymbol(symbol any) (Plugin, error) {
	switch p := symbol.(type) {
	case Plugin:
		return p, nil
	case *Plugin:
		if p == nil || *p == nil {
			return nil, errors.New("plugin symbol is nil")
		}
		return *p, nil
	case func() Plugin:
		created := p()
		if created == nil {
			return nil, errors.New("plugin constructor returned nil")
		}
		return created, nil
	case func() (Plugin, error):
		return p()
	default:
		return nil, fmt.Errorf("unsupported plugin symbol type %T", symbol)
	}
}
