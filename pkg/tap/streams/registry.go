// Package streams declares the extraction catalog. Each stream file
// registers its definitions in init; BuildCatalog turns the registry into
// wired RESTStream instances with parent-child relationships attached.
package streams

import (
	"sync"

	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/tap/base"
)

var (
	registryMu  sync.Mutex
	definitions []base.Definition
	byName      = make(map[string]int)
)

// register adds a stream definition to the catalog. Called from init.
func register(def base.Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := byName[def.Name]; exists {
		panic("duplicate stream registration: " + def.Name)
	}
	byName[def.Name] = len(definitions)
	definitions = append(definitions, def)
}

// Names returns every registered stream name in catalog order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, len(definitions))
	for i, def := range definitions {
		names[i] = def.Name
	}
	return names
}

// Catalog is the wired stream set for one sync run.
type Catalog struct {
	// Roots holds the top-level streams to drive, children attached
	Roots []*base.RESTStream
	// All holds every selected stream in catalog order, children
	// included, for schema announcement
	All []*base.RESTStream
}

// BuildCatalog instantiates the registered streams over the shared client,
// applies primary key overrides and stream selection, and wires children
// to their parents. Unknown names in either config section are errors.
func BuildCatalog(cfg *config.Config, client *clients.Client) (*Catalog, error) {
	registryMu.Lock()
	defs := make([]base.Definition, len(definitions))
	copy(defs, definitions)
	index := make(map[string]int, len(byName))
	for k, v := range byName {
		index[k] = v
	}
	registryMu.Unlock()

	for stream, keys := range cfg.Catalog.PrimaryKeyOverrides {
		if _, ok := index[stream]; !ok {
			return nil, errors.Newf(errors.ErrorTypeConfig, "primary key override for unknown stream %q", stream)
		}
		if len(keys) == 0 {
			return nil, errors.Newf(errors.ErrorTypeConfig, "primary key override for stream %q is empty", stream)
		}
	}

	selected := make(map[string]bool, len(defs))
	if len(cfg.Catalog.Streams) == 0 {
		for _, def := range defs {
			selected[def.Name] = true
		}
	} else {
		for _, name := range cfg.Catalog.Streams {
			i, ok := index[name]
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeConfig, "unknown stream %q in selection", name)
			}
			if parent := defs[i].Parent; parent != "" {
				return nil, errors.Newf(errors.ErrorTypeConfig, "stream %q syncs through its parent %q; select the parent instead", name, parent)
			}
			selected[name] = true
		}
		// A selected parent carries its children.
		for _, def := range defs {
			if def.Parent != "" && selected[def.Parent] {
				selected[def.Name] = true
			}
		}
	}

	built := make(map[string]*base.RESTStream, len(defs))
	catalog := &Catalog{}
	for _, def := range defs {
		if !selected[def.Name] {
			continue
		}
		if keys, ok := cfg.Catalog.PrimaryKeyOverrides[def.Name]; ok {
			def.PrimaryKeys = keys
		}
		s := base.NewRESTStream(def, client, cfg)
		built[def.Name] = s
		catalog.All = append(catalog.All, s)
	}

	for _, s := range catalog.All {
		if parent := s.Parent(); parent != "" {
			p, ok := built[parent]
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeInternal, "stream %q declares missing parent %q", s.Name(), parent)
			}
			p.AddChild(s)
			continue
		}
		catalog.Roots = append(catalog.Roots, s)
	}

	return catalog, nil
}
