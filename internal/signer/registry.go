package signer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/signoracle/internal/determinism"
)

// Factory builds a native Signer bound to src. Implementations must read
// randomness and time only through src.
type Factory func(src determinism.Source) (Signer, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a native implementation available as "native:<name>".
// It panics if name is empty, factory is nil, or name is already taken.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if name == "" {
		panic("signer: Register with empty name")
	}
	if factory == nil {
		panic("signer: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("signer: Register called twice for %q", name))
	}
	registry[name] = factory
}

// Registered lists native implementation names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupNative(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}
