package bond

import (
	"github.com/cornelk/hashmap"
	"github.com/rigado/keyfob"
)

// Registry maps a peer address to its DeviceInfo. There is never more than
// one entry per address.
type Registry struct {
	m   *hashmap.Map[uint64, *DeviceInfo]
	max int
}

// NewRegistry returns an empty registry. max bounds the number of entries;
// zero or less means unbounded.
func NewRegistry(max int) *Registry {
	return &Registry{m: hashmap.New[uint64, *DeviceInfo](), max: max}
}

// Create inserts a new entry for addr. It returns false, leaving the
// registry unchanged, if an entry already exists, the registry is full or
// addr is null.
func (r *Registry) Create(addr keyfob.Addr, typ keyfob.AddrType) bool {
	if addr.IsNull() {
		return false
	}
	if r.max > 0 && r.m.Len() >= r.max {
		return false
	}
	return r.m.Insert(addr.Uint64(), NewDeviceInfo(addr, typ))
}

// Put inserts an existing entry, e.g. one loaded from a bond file.
func (r *Registry) Put(d *DeviceInfo) bool {
	if d == nil {
		return false
	}
	if r.max > 0 && r.m.Len() >= r.max {
		return false
	}
	return r.m.Insert(d.Peer.Addr.Uint64(), d)
}

// Find returns the entry for addr.
func (r *Registry) Find(addr keyfob.Addr) (*DeviceInfo, bool) {
	return r.m.Get(addr.Uint64())
}

// Delete removes the entry for addr and hands it to the caller.
func (r *Registry) Delete(addr keyfob.Addr) (*DeviceInfo, bool) {
	k := addr.Uint64()

	d, ok := r.m.Get(k)
	if !ok {
		return nil, false
	}
	if !r.m.Del(k) {
		return nil, false
	}
	return d, true
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return r.m.Len()
}

// Range calls fn for every entry until fn returns false.
func (r *Registry) Range(fn func(*DeviceInfo) bool) {
	r.m.Range(func(_ uint64, d *DeviceInfo) bool {
		return fn(d)
	})
}

// Clear drops every entry.
func (r *Registry) Clear() {
	var keys []uint64
	r.m.Range(func(k uint64, _ *DeviceInfo) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		r.m.Del(k)
	}
}
