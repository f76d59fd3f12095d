package chat

import (
	"sort"
	"sync"
)

// Channel is the duplex connection to one client as seen by the core. Send
// must not block indefinitely: implementations either queue the text or
// fail fast so one slow peer cannot stall a broadcast. Implementations need
// not be comparable; the registry never compares channels.
type Channel interface {
	Send(text string) error
}

// Registration is the handle returned by Registry.Add. It identifies one
// insertion, independent of the channel value it carries.
type Registration struct {
	name    string
	channel Channel
}

// Entry is one name → channel pair taken from a registry snapshot.
type Entry struct {
	Name    string
	Channel Channel
}

// Registry is the authoritative live mapping from username to Channel. All
// operations are serialized by a single RWMutex; readers may run together
// but never interleave with a mutation.
//
// The registry holds channels by reference only and never closes them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Registration),
	}
}

// Add inserts or overwrites the entry for name. Last writer wins. replaced
// reports whether an earlier registration under name was overwritten.
func (r *Registry) Add(name string, ch Channel) (reg *Registration, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.entries[name]
	reg = &Registration{name: name, channel: ch}
	r.entries[name] = reg
	return reg, replaced
}

// Get returns the channel registered under name or ErrNotFound.
func (r *Registry) Get(name string) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return reg.channel, nil
}

// Remove deletes the entry for name. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// RemoveIf deletes reg's entry only while it is still the current one for
// its name, so a superseded session closing late cannot evict the
// connection that replaced it. It reports whether an entry was removed.
func (r *Registry) RemoveIf(reg *Registration) bool {
	if reg == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[reg.name] != reg {
		return false
	}
	delete(r.entries, reg.name)
	return true
}

// Snapshot returns the entries registered at call time.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for name, reg := range r.entries {
		entries = append(entries, Entry{Name: name, Channel: reg.channel})
	}
	return entries
}

// Names returns the registered usernames in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
