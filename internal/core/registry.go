package core

import (
	"fmt"
	"sort"
	"sync"
)

// TabDefinition describes one spreadsheet tab.
type TabDefinition struct {
	Key      string   // Unique identifier: "members"
	Name     string   // Sheet tab name: "Members"
	Label    string   // Display name
	Columns  []string // Header row, column A first
	IDPrefix string   // Prefix of generated IDs in column A, if any
}

// Width returns the number of columns in the tab.
func (d TabDefinition) Width() int { return len(d.Columns) }

var (
	registry   = make(map[string]TabDefinition)
	registryMu sync.RWMutex
)

// Register adds a tab definition to the registry.
// Panics if a tab with the same key is already registered.
func Register(def TabDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("tab already registered: %s", def.Key))
	}
	if def.Label == "" {
		def.Label = def.Name
	}
	registry[def.Key] = def
}

// Get returns a tab definition by key.
// Returns false if not found.
func Get(key string) (TabDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// MustGet returns a tab definition by key and panics if it is missing.
func MustGet(key string) TabDefinition {
	def, ok := Get(key)
	if !ok {
		panic(fmt.Sprintf("unknown tab: %s", key))
	}
	return def
}

// All returns all registered tab definitions sorted by key.
func All() []TabDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TabDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// TabCount returns the number of registered tabs.
func TabCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
