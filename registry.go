package fmgo

import (
	"fmt"
	"sync"

	"github.com/hupe1980/fmgo/bundle"
)

// Model is the surface common to all saved-model variants. Load returns
// it so callers never have to name a concrete type.
type Model interface {
	Save() ([]byte, error)
	Dispose() error
	IsFitted() bool
	NumFeatures() int
}

// LoaderFunc reconstructs one model variant from a decoded bundle.
type LoaderFunc func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error)

var registry = struct {
	mu      sync.RWMutex
	loaders map[string]LoaderFunc
}{
	loaders: make(map[string]LoaderFunc),
}

// Register installs a loader for a type id. Each model variant registers
// itself at package init; Register is exported so external variants can
// participate in Load dispatch too.
func Register(typeID string, loader LoaderFunc) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, dup := registry.loaders[typeID]; dup {
		panic(fmt.Sprintf("fmgo: duplicate loader registration for %q", typeID))
	}
	registry.loaders[typeID] = loader
}

// Load decodes a saved bundle and dispatches to the loader registered for
// the type id in its manifest.
func Load(data []byte, optFns ...Option) (Model, error) {
	b, err := bundle.Decode(data)
	if err != nil {
		return nil, err
	}

	var man Manifest
	if err := b.DecodeManifest(&man); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	registry.mu.RLock()
	loader, ok := registry.loaders[man.TypeID]
	registry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no loader registered for model type %q", man.TypeID)
	}
	return loader(b, &man, optFns)
}
