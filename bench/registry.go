package bench

import (
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// EntryPoint runs one job and returns the table to record alongside its
// start_time/stop_time. raw is the job's own TOML table, still undecoded
// (decode it into the schema type EntryPoint expects with meta.PrimitiveDecode).
type EntryPoint func(raw toml.Primitive, meta *toml.MetaData) (result any, err error)

var (
	registryMu sync.RWMutex
	registry   = map[string]EntryPoint{}
)

// Register installs an entry point under name (e.g. "vamana_static_build").
// Registering the same name twice is a programming error and panics --
// this runs at package init, not in response to external input.
func Register(name string, ep EntryPoint) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("bench: duplicate registration for entry point " + name)
	}
	registry[name] = ep
}

// Lookup resolves name to its registered entry point.
func Lookup(name string) (EntryPoint, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ep, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("bench: no benchmark entry point registered for %q", name)
	}
	return ep, nil
}

// Registered lists every installed entry point name, for the driver's
// "listing of compiled specializations" diagnostic (spec §7).
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
