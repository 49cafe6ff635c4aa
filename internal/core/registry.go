package core

import (
	"fmt"
	"sort"
	"sync"

	"sitereport/pkg/datasetapi"
)

// ModuleRegistry keeps dataset modules in dispatch order. A single catch-all
// module closes the registry and always dispatches last.
type ModuleRegistry struct {
	mu          sync.RWMutex
	modules     []datasetapi.Module
	catchAll    datasetapi.Module
	names       map[string]struct{}
	methodOwner map[int]string
	groupOwner  map[int]string
	plugins     map[string]PluginMetadata
}

// PluginMetadata describes an installed plugin and the modules it contributed.
type PluginMetadata struct {
	Name    string                        `json:"name"`
	Version string                        `json:"version"`
	Modules []datasetapi.ModuleDescriptor `json:"modules"`
}

// NewModuleRegistry constructs an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		names:       make(map[string]struct{}),
		methodOwner: make(map[int]string),
		groupOwner:  make(map[int]string),
		plugins:     make(map[string]PluginMetadata),
	}
}

var _ datasetapi.Registrar = (*ModuleRegistry)(nil)

// Register appends a filtered module. Modules listing a method id or method
// group already owned by an earlier module are rejected.
func (r *ModuleRegistry) Register(m datasetapi.Module) error {
	if m == nil {
		return fmt.Errorf("module cannot be nil")
	}
	filter := m.Filter()
	if filter.All {
		return fmt.Errorf("module %s claims everything; use RegisterCatchAll", m.Name())
	}
	if filter.Empty() {
		return fmt.Errorf("module %s declares no method ids or groups", m.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catchAll != nil {
		return fmt.Errorf("%w: %s", ErrRegistryClosed, m.Name())
	}
	if err := r.reserveName(m.Name()); err != nil {
		return err
	}
	for _, id := range filter.MethodIDs {
		if owner, taken := r.methodOwner[id]; taken {
			delete(r.names, m.Name())
			return fmt.Errorf("%w: method %d claimed by %s and %s", ErrClaimConflict, id, owner, m.Name())
		}
	}
	for _, id := range filter.MethodGroupIDs {
		if owner, taken := r.groupOwner[id]; taken {
			delete(r.names, m.Name())
			return fmt.Errorf("%w: method group %d claimed by %s and %s", ErrClaimConflict, id, owner, m.Name())
		}
	}
	for _, id := range filter.MethodIDs {
		r.methodOwner[id] = m.Name()
	}
	for _, id := range filter.MethodGroupIDs {
		r.groupOwner[id] = m.Name()
	}
	r.modules = append(r.modules, m)
	return nil
}

// RegisterCatchAll installs the unfiltered fallback module.
func (r *ModuleRegistry) RegisterCatchAll(m datasetapi.Module) error {
	if m == nil {
		return fmt.Errorf("module cannot be nil")
	}
	if !m.Filter().All {
		return fmt.Errorf("catch-all module %s must claim all records", m.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catchAll != nil {
		return fmt.Errorf("catch-all already registered: %s", r.catchAll.Name())
	}
	if err := r.reserveName(m.Name()); err != nil {
		return err
	}
	r.catchAll = m
	return nil
}

func (r *ModuleRegistry) reserveName(name string) error {
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("module %s already registered", name)
	}
	r.names[name] = struct{}{}
	return nil
}

// Install registers every module contributed by the plugin.
func (r *ModuleRegistry) Install(plugin datasetapi.Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	r.mu.RLock()
	_, installed := r.plugins[plugin.Name()]
	before := len(r.modules)
	hadCatchAll := r.catchAll != nil
	r.mu.RUnlock()
	if installed {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}
	if err := plugin.Register(r); err != nil {
		return PluginMetadata{}, fmt.Errorf("install plugin %s: %w", plugin.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version()}
	for _, m := range r.modules[before:] {
		meta.Modules = append(meta.Modules, datasetapi.Describe(m))
	}
	if !hadCatchAll && r.catchAll != nil {
		meta.Modules = append(meta.Modules, datasetapi.Describe(r.catchAll))
	}
	r.plugins[plugin.Name()] = meta
	return meta, nil
}

// Plugins returns metadata of installed plugins sorted by name.
func (r *ModuleRegistry) Plugins() []PluginMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(r.plugins))
	for _, meta := range r.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate reports whether the registry can dispatch.
func (r *ModuleRegistry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.catchAll == nil {
		return ErrNoCatchAll
	}
	return nil
}

// Modules returns the modules in dispatch order, catch-all last.
func (r *ModuleRegistry) Modules() []datasetapi.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]datasetapi.Module, 0, len(r.modules)+1)
	out = append(out, r.modules...)
	if r.catchAll != nil {
		out = append(out, r.catchAll)
	}
	return out
}

// Descriptors describes the modules in dispatch order.
func (r *ModuleRegistry) Descriptors() []datasetapi.ModuleDescriptor {
	modules := r.Modules()
	out := make([]datasetapi.ModuleDescriptor, len(modules))
	for i, m := range modules {
		out[i] = datasetapi.Describe(m)
	}
	return out
}
