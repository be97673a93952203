package catalog

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// Catalog holds the current set of node definitions keyed by type id.
// Safe for concurrent use: registry pushes replace the set while the UI
// reads it.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]NodeDefinition
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{defs: make(map[string]NodeDefinition)}
}

// Replace swaps in a full set of definitions, dropping everything the new
// set does not mention. Last write wins between concurrent refreshes.
func (c *Catalog) Replace(defs []NodeDefinition) {
	next := make(map[string]NodeDefinition, len(defs))
	for _, d := range defs {
		if d.TypeID == "" {
			continue
		}
		next[d.TypeID] = d
	}

	c.mu.Lock()
	c.defs = next
	c.mu.Unlock()
}

// RefreshFromRegistry parses a registry payload (HTTP response body or a
// node_registry push) and replaces the catalog contents.
func (c *Catalog) RefreshFromRegistry(data []byte) error {
	defs, err := ParseRegistry(data)
	if err != nil {
		return err
	}
	c.Replace(defs)
	return nil
}

// Get returns the definition for a type id.
func (c *Catalog) Get(typeID string) (NodeDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[typeID]
	return d, ok
}

// Resolve returns the routing key for a type id, falling back to the
// default key for unknown types.
func (c *Catalog) Resolve(typeID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.defs[typeID]; ok {
		return d.RoutingKey()
	}
	return DefaultRoutingKey
}

// Types lists the known type ids in sorted order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	ids := maps.Keys(c.defs)
	c.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// List returns all definitions sorted by type id.
func (c *Catalog) List() []NodeDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := maps.Keys(c.defs)
	sort.Strings(ids)
	out := make([]NodeDefinition, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.defs[id])
	}
	return out
}

// Len reports how many definitions the catalog holds.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}
