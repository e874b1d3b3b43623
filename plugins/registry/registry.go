// Package registry maps builtin plugin names to constructors, so pkg/config
// can resolve a list of names from a YAML document into live plugin.Plugin
// values without every caller importing each plugins/* package directly.
package registry

import (
	"fmt"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/plugins/datetime"
	"github.com/textsense/recognizer/plugins/email"
	"github.com/textsense/recognizer/plugins/phone"
	"github.com/textsense/recognizer/plugins/quantity"
	"github.com/textsense/recognizer/plugins/url"
)

// Constructor builds a fresh plugin instance.
type Constructor func() plugin.Plugin

var builtins = map[string]Constructor{
	quantity.Name: func() plugin.Plugin { return quantity.New() },
	datetime.Name: func() plugin.Plugin { return datetime.New() },
	email.Name:    func() plugin.Plugin { return email.New() },
	url.Name:      func() plugin.Plugin { return url.New() },
	phone.Name:    func() plugin.Plugin { return phone.New() },
}

// Names returns every builtin plugin name, for validation and help text.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

// Resolve builds one plugin instance per name, in order, failing on the
// first unrecognized name.
func Resolve(names []string) ([]plugin.Plugin, error) {
	plugins := make([]plugin.Plugin, 0, len(names))
	for _, name := range names {
		ctor, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q", name)
		}
		plugins = append(plugins, ctor())
	}
	return plugins, nil
}
